package registry

import "time"

// ServiceSpec is the external representation of a ServiceConfig used by the services
// file, the admin API and the Pub/Sub feed.
type ServiceSpec struct {
	Name            string `json:"name" yaml:"name"`
	BaseURL         string `json:"base_url" yaml:"base_url"`
	HealthCheckPath string `json:"health_check_path,omitempty" yaml:"health_check_path"`
	TimeoutSecs     int    `json:"timeout_secs,omitempty" yaml:"timeout_secs"`

	// RequireAuth defaults to true when omitted.
	RequireAuth *bool `json:"require_auth,omitempty" yaml:"require_auth"`
}

// Config converts the spec, applying defaults for omitted fields.
func (s ServiceSpec) Config() ServiceConfig {
	timeout := DefaultTimeout
	if s.TimeoutSecs > 0 {
		timeout = time.Duration(s.TimeoutSecs) * time.Second
	}
	requireAuth := true
	if s.RequireAuth != nil {
		requireAuth = *s.RequireAuth
	}

	return ServiceConfig{
		Name:            s.Name,
		BaseURL:         s.BaseURL,
		HealthCheckPath: s.HealthCheckPath,
		Timeout:         timeout,
		RequireAuth:     requireAuth,
	}
}

// SpecFor converts a config to its external representation.
func SpecFor(c ServiceConfig) ServiceSpec {
	requireAuth := c.RequireAuth
	return ServiceSpec{
		Name:            c.Name,
		BaseURL:         c.BaseURL,
		HealthCheckPath: c.HealthCheckPath,
		TimeoutSecs:     int(c.Timeout / time.Second),
		RequireAuth:     &requireAuth,
	}
}
