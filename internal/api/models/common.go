// Package models provides request and response models for the gateway HTTP API.
package models

import "time"

// EntityResponse is the envelope for successful JSON responses.
type EntityResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Total   int64       `json:"total"`
}

// NewEntityResponse wraps a single entity.
func NewEntityResponse(message string, data interface{}) *EntityResponse {
	return &EntityResponse{Message: message, Data: data, Total: 1}
}

// NewListResponse wraps a collection and reports its size.
func NewListResponse(message string, data interface{}, total int) *EntityResponse {
	return &EntityResponse{Message: message, Data: data, Total: int64(total)}
}

// HealthStatus represents the health status of the gateway or a dependency.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a helper type for time.Time with custom JSON formatting.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	s := string(data[1 : len(data)-1])
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
