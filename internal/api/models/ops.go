package models

// Health represents the health status of the gateway process.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents the state of the gateway's dependencies and
// upstream circuit breakers.
type SystemStatus struct {
	Status       HealthStatus       `json:"status"`
	Time         Timestamp          `json:"time"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Breakers     []BreakerStatus    `json:"breakers,omitempty"`
}

// DependencyStatus represents the status of a backing dependency.
type DependencyStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// BreakerStatus exposes the circuit breaker state for one upstream.
type BreakerStatus struct {
	Service  string `json:"service"`
	State    string `json:"state"`
	Requests uint32 `json:"requests"`
	Failures uint32 `json:"failures"`
}
