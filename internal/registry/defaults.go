package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default services and the environment variables overriding their base URLs.
var defaultServices = []struct {
	name        string
	env         string
	fallback    string
	requireAuth bool
}{
	{"product", "PRODUCT_SERVICE_URL", "http://localhost:3002", true},
	{"order", "ORDER_SERVICE_URL", "http://localhost:3003", true},
	{"inventory", "INVENTORY_SERVICE_URL", "http://localhost:3004", true},
	{"notification", "NOTIFICATION_SERVICE_URL", "http://localhost:3005", false},
}

// Defaults returns the built-in service set. lookup resolves environment variables;
// pass os.Getenv in production.
func Defaults(lookup func(string) string) []ServiceConfig {
	configs := make([]ServiceConfig, 0, len(defaultServices))
	for _, d := range defaultServices {
		baseURL := d.fallback
		if lookup != nil {
			if v := lookup(d.env); v != "" {
				baseURL = v
			}
		}
		configs = append(configs, ServiceConfig{
			Name:            d.name,
			BaseURL:         baseURL,
			HealthCheckPath: "/health",
			Timeout:         DefaultTimeout,
			RequireAuth:     d.requireAuth,
		})
	}
	return configs
}

// File is the layout of a services YAML file.
type File struct {
	Services []ServiceSpec `yaml:"services"`
}

// LoadFile reads service definitions from a YAML file.
func LoadFile(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading services file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes service definitions from YAML and validates each one.
func ParseFile(data []byte) ([]ServiceConfig, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing services file: %w", err)
	}

	seen := make(map[string]bool, len(f.Services))
	configs := make([]ServiceConfig, 0, len(f.Services))
	for i, s := range f.Services {
		cfg := s.Config()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("service %d: %w", i, err)
		}
		if seen[cfg.Name] {
			return nil, fmt.Errorf("service %d: %w: duplicate name %q", i, ErrInvalidService, cfg.Name)
		}
		seen[cfg.Name] = true
		configs = append(configs, cfg)
	}
	return configs, nil
}

// RegisterAll registers every config, stopping at the first invalid one.
func (r *Registry) RegisterAll(configs []ServiceConfig) error {
	for _, cfg := range configs {
		if err := r.Register(cfg); err != nil {
			return fmt.Errorf("registering %q: %w", cfg.Name, err)
		}
	}
	return nil
}
