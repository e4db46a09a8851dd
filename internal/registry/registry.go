// Package registry holds the set of downstream services the gateway can route to.
package registry

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"sync"
	"time"
)

// DefaultTimeout is the per-request upstream timeout used when a service sets none.
const DefaultTimeout = 30 * time.Second

// Registry errors.
var (
	ErrServiceNotFound = errors.New("service not found")
	ErrInvalidService  = errors.New("invalid service config")
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// ServiceConfig describes one downstream service.
type ServiceConfig struct {
	// Name is the logical name; requests to /gateway/{Name}-service/... route here.
	Name string

	// BaseURL is the absolute URL requests are forwarded to. Its path is kept as a prefix.
	BaseURL string

	// HealthCheckPath is appended to BaseURL by the prober. Empty skips probing.
	HealthCheckPath string

	// Timeout bounds each forwarded request.
	Timeout time.Duration

	// RequireAuth rejects unauthenticated requests before any upstream call.
	RequireAuth bool
}

// Validate checks the config and returns an ErrInvalidService-wrapped error.
func (c ServiceConfig) Validate() error {
	if !namePattern.MatchString(c.Name) {
		return fmt.Errorf("%w: name %q must be lowercase letters, digits and dashes", ErrInvalidService, c.Name)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base_url: %v", ErrInvalidService, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base_url must be http or https", ErrInvalidService)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: base_url must include a host", ErrInvalidService)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidService)
	}
	return nil
}

// Registry is a concurrency-safe name → ServiceConfig map. Readers always receive copies,
// so a config obtained before a Register or Remove is unaffected by it.
type Registry struct {
	mu       sync.RWMutex
	services map[string]ServiceConfig
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		services: make(map[string]ServiceConfig),
	}
}

// Register validates cfg and inserts or replaces the service under cfg.Name.
func (r *Registry) Register(cfg ServiceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[cfg.Name] = cfg
	return nil
}

// Get returns the service registered under name.
func (r *Registry) Get(name string) (ServiceConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.services[name]
	if !ok {
		return ServiceConfig{}, ErrServiceNotFound
	}
	return cfg, nil
}

// List returns a snapshot of all services ordered by name.
func (r *Registry) List() []ServiceConfig {
	r.mu.RLock()
	list := make([]ServiceConfig, 0, len(r.services))
	for _, cfg := range r.services {
		list = append(list, cfg)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Remove deletes the service and returns its last config.
func (r *Registry) Remove(name string) (ServiceConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.services[name]
	if !ok {
		return ServiceConfig{}, ErrServiceNotFound
	}
	delete(r.services, name)
	return cfg, nil
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}
