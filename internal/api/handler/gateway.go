package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edgegate/edgegate/internal/api/models"
	"github.com/edgegate/edgegate/internal/api/response"
	"github.com/edgegate/edgegate/internal/health"
	"github.com/edgegate/edgegate/internal/proxy"
	"github.com/edgegate/edgegate/internal/registry"
)

const proxyCopyBufferSize = 32 * 1024

// GatewayHandlerConfig holds the dependencies of the gateway endpoints.
type GatewayHandlerConfig struct {
	Registry   *registry.Registry
	Prober     *health.Prober
	Dispatcher *proxy.Dispatcher
	Breakers   *proxy.BreakerSet
	Logger     zerolog.Logger

	// HealthMaxAge is how old a background snapshot may be before
	// GET /gateway/health probes synchronously.
	HealthMaxAge time.Duration
}

// GatewayHandler serves the gateway's own endpoints and the proxy route.
type GatewayHandler struct {
	registry     *registry.Registry
	prober       *health.Prober
	dispatcher   *proxy.Dispatcher
	breakers     *proxy.BreakerSet
	logger       zerolog.Logger
	healthMaxAge time.Duration
}

// NewGatewayHandler creates a new GatewayHandler.
func NewGatewayHandler(cfg GatewayHandlerConfig) *GatewayHandler {
	maxAge := cfg.HealthMaxAge
	if maxAge <= 0 && cfg.Prober != nil {
		maxAge = 2 * cfg.Prober.Interval()
	}
	return &GatewayHandler{
		registry:     cfg.Registry,
		prober:       cfg.Prober,
		dispatcher:   cfg.Dispatcher,
		breakers:     cfg.Breakers,
		logger:       cfg.Logger,
		healthMaxAge: maxAge,
	}
}

// Health handles GET /gateway/health - aggregate downstream health.
func (h *GatewayHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.prober.Current(r.Context(), h.healthMaxAge))
}

// ListServices handles GET /gateway/services - list registered services.
func (h *GatewayHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	configs := h.registry.List()
	specs := make([]registry.ServiceSpec, len(configs))
	for i, c := range configs {
		specs[i] = registry.SpecFor(c)
	}

	identity := GetIdentity(r.Context())
	if identity != nil {
		h.logger.Info().Int64("subject_id", identity.SubjectID).Msg("listing gateway services")
	}
	response.JSON(w, r, http.StatusOK, models.NewListResponse("Services retrieved successfully", specs, len(specs)))
}

// RegisterService handles POST /gateway/services - register or replace a service.
func (h *GatewayHandler) RegisterService(w http.ResponseWriter, r *http.Request) {
	var spec registry.ServiceSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	cfg := spec.Config()
	if err := h.registry.Register(cfg); err != nil {
		if errors.Is(err, registry.ErrInvalidService) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		response.InternalError(w, r, "failed to register service")
		return
	}
	// A replaced service starts with a fresh breaker.
	h.forgetBreaker(cfg.Name)

	h.logger.Info().
		Str("service", cfg.Name).
		Str("base_url", cfg.BaseURL).
		Bool("require_auth", cfg.RequireAuth).
		Msg("service registered")
	response.Created(w, r, "/gateway/services/"+cfg.Name, models.NewEntityResponse("Service registered", registry.SpecFor(cfg)))
}

// RemoveService handles DELETE /gateway/services/{name} - deregister a service.
func (h *GatewayHandler) RemoveService(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	previous, err := h.registry.Remove(name)
	if err != nil {
		if errors.Is(err, registry.ErrServiceNotFound) {
			response.NotFound(w, r, "service not found")
			return
		}
		response.InternalError(w, r, "failed to remove service")
		return
	}
	h.forgetBreaker(name)

	h.logger.Info().Str("service", name).Msg("service removed")
	response.Entity(w, r, "Service removed", registry.SpecFor(previous))
}

// Proxy handles ANY /gateway/{segment}/* - forward to the named service.
// The upstream status, headers and body are relayed as received.
func (h *GatewayHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	name, ok := h.dispatcher.ServiceName(chi.URLParam(r, "segment"))
	if !ok {
		response.NotFound(w, r, "service not found")
		return
	}

	resp, err := h.dispatcher.Forward(r.Context(), name, r, GetIdentity(r.Context()))
	if err != nil {
		h.writeForwardError(w, r, err)
		return
	}
	defer resp.Body.Close()

	header := w.Header()
	header.Del("Content-Type")
	for k, vv := range resp.Header {
		header[k] = append([]string(nil), vv...)
	}
	w.WriteHeader(resp.StatusCode)

	if err := copyFlushing(w, resp.Body); err != nil {
		h.logger.Debug().Err(err).Str("service", name).Msg("response stream interrupted")
	}
}

func (h *GatewayHandler) forgetBreaker(name string) {
	if h.breakers != nil {
		h.breakers.Forget(name)
	}
}

func (h *GatewayHandler) writeForwardError(w http.ResponseWriter, r *http.Request, err error) {
	var gwErr *proxy.GatewayError
	if !errors.As(err, &gwErr) {
		response.InternalError(w, r, "an unexpected error occurred")
		return
	}

	switch gwErr.Kind {
	case proxy.KindUnknownService:
		response.NotFound(w, r, "service not found")
	case proxy.KindAuthRequired:
		response.Unauthorized(w, r, "service requires authentication")
	default:
		switch gwErr.Status() {
		case http.StatusGatewayTimeout:
			response.GatewayTimeout(w, r, "upstream service did not respond in time")
		case http.StatusServiceUnavailable:
			response.ServiceUnavailable(w, r, "upstream service is temporarily unavailable")
		default:
			response.BadGateway(w, r, "upstream service is unreachable")
		}
	}
}

// copyFlushing streams src to w, flushing after every chunk so long-lived
// responses reach the client as they are produced.
func copyFlushing(w http.ResponseWriter, src io.Reader) error {
	rc := http.NewResponseController(w)
	buf := make([]byte, proxyCopyBufferSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			_ = rc.Flush()
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
