// Package handler provides HTTP handlers for the gateway.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/edgegate/edgegate/internal/api/models"
	"github.com/edgegate/edgegate/internal/api/response"
	"github.com/edgegate/edgegate/internal/proxy"
)

const dependencyCheckTimeout = 2 * time.Second

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is a named dependency checked by the readiness endpoint.
type Dependency struct {
	Name   string
	Pinger Pinger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version      string
	buildTime    string
	dependencies []Dependency
	breakers     *proxy.BreakerSet
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, breakers *proxy.BreakerSet, dependencies ...Dependency) *OpsHandler {
	return &OpsHandler{
		version:      version,
		buildTime:    buildTime,
		dependencies: dependencies,
		breakers:     breakers,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// Responds 503 when any dependency is unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	deps, overall := h.checkDependencies(r.Context())

	details := make(map[string]interface{}, len(deps))
	for _, d := range deps {
		details[d.Name] = d.Status
	}
	health := models.Health{
		Status:  overall,
		Time:    models.Timestamp(time.Now()),
		Details: details,
	}

	status := http.StatusOK
	if overall == models.HealthStatusFail {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - dependency and circuit breaker status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	deps, overall := h.checkDependencies(r.Context())

	status := models.SystemStatus{
		Status:       overall,
		Time:         models.Timestamp(time.Now()),
		Dependencies: deps,
	}
	if h.breakers != nil {
		for _, b := range h.breakers.States() {
			status.Breakers = append(status.Breakers, models.BreakerStatus{
				Service:  b.Name,
				State:    b.State.String(),
				Requests: b.Counts.Requests,
				Failures: b.Counts.TotalFailures,
			})
			if b.State != gobreaker.StateClosed && overall == models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
		}
	}
	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) checkDependencies(ctx context.Context) ([]models.DependencyStatus, models.HealthStatus) {
	overall := models.HealthStatusOK
	deps := make([]models.DependencyStatus, 0, len(h.dependencies))

	for _, d := range h.dependencies {
		pingCtx, cancel := context.WithTimeout(ctx, dependencyCheckTimeout)
		err := d.Pinger.Ping(pingCtx)
		cancel()

		dep := models.DependencyStatus{Name: d.Name, Status: models.HealthStatusOK}
		if err != nil {
			detail := "unreachable"
			dep.Status = models.HealthStatusFail
			dep.Detail = &detail
			overall = models.HealthStatusFail
		}
		deps = append(deps, dep)
	}
	return deps, overall
}
