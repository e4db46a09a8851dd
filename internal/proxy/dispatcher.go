package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/edgegate/edgegate/internal/auth"
	"github.com/edgegate/edgegate/internal/registry"
)

// Identity headers set on forwarded requests.
const (
	HeaderUserID    = "X-User-Id"
	HeaderSessionID = "X-Session-Id"
)

// Routing defaults: /gateway/{name}-service/...
const (
	DefaultPathPrefix    = "/gateway"
	DefaultServiceSuffix = "-service"
)

// hopHeaders are connection-specific and never forwarded (RFC 9110 section 7.6.1).
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Config holds configuration for the dispatcher.
type Config struct {
	Registry *registry.Registry
	Breakers *BreakerSet
	Metrics  *Metrics
	Logger   zerolog.Logger

	// Transport performs upstream calls. Default: http.DefaultTransport.
	Transport http.RoundTripper

	// PathPrefix and ServiceSuffix define the routing prefix stripped from inbound paths.
	PathPrefix    string
	ServiceSuffix string
}

// Dispatcher forwards inbound requests to registered services.
type Dispatcher struct {
	registry *registry.Registry
	breakers *BreakerSet
	metrics  *Metrics
	logger   zerolog.Logger
	client   *http.Client
	tracer   trace.Tracer
	prefix   string
	suffix   string
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	breakers := cfg.Breakers
	if breakers == nil {
		breakers = NewBreakerSet(DefaultBreakerConfig())
	}
	prefix := cfg.PathPrefix
	if prefix == "" {
		prefix = DefaultPathPrefix
	}
	suffix := cfg.ServiceSuffix
	if suffix == "" {
		suffix = DefaultServiceSuffix
	}

	return &Dispatcher{
		registry: cfg.Registry,
		breakers: breakers,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		client: &http.Client{
			Transport: transport,
			// Redirects are the client's business.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		tracer: otel.Tracer(instrumentationName),
		prefix: strings.TrimRight(prefix, "/"),
		suffix: suffix,
	}
}

// ServiceName extracts the service name from a routing segment such as "orders-service".
func (d *Dispatcher) ServiceName(segment string) (string, bool) {
	name, ok := strings.CutSuffix(segment, d.suffix)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// Forward sends r to the service registered under name and returns its response
// unmodified apart from hop-by-hop headers. The caller must close the response body;
// the per-service timeout stays in effect until it does.
//
// identity may be nil. For services that require auth a nil identity fails with
// ErrAuthRequired before any upstream connection is made.
func (d *Dispatcher) Forward(ctx context.Context, name string, r *http.Request, identity *auth.Identity) (*http.Response, error) {
	svc, err := d.registry.Get(name)
	if err != nil {
		return nil, unknownService(name)
	}
	if svc.RequireAuth && identity == nil {
		return nil, authRequired(name)
	}

	target, err := d.targetURL(svc, name, r.URL)
	if err != nil {
		return nil, upstreamUnavailable(name, http.StatusBadGateway, err)
	}

	ctx, cancel := context.WithTimeout(ctx, svc.Timeout)
	ctx, span := d.tracer.Start(ctx, "proxy "+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("service.name", name),
			attribute.String("http.method", r.Method),
		),
	)

	out, err := d.outboundRequest(ctx, r, target, identity)
	if err != nil {
		span.End()
		cancel()
		return nil, upstreamUnavailable(name, http.StatusBadGateway, err)
	}

	start := time.Now()
	resp, err := d.breakers.Get(name).Execute(func() (*http.Response, error) {
		resp, err := d.client.Do(out)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, &serverError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})

	var srvErr *serverError
	if errors.As(err, &srvErr) && resp != nil {
		err = nil
	}
	if err != nil {
		status := upstreamStatus(ctx, err)
		d.metrics.RecordRequest(name, r.Method, 0, time.Since(start), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream unavailable")
		span.End()
		cancel()

		d.logger.Warn().Err(err).
			Str("service", name).
			Str("method", r.Method).
			Int("status", status).
			Msg("upstream request failed")
		return nil, upstreamUnavailable(name, status, err)
	}

	d.metrics.RecordRequest(name, r.Method, resp.StatusCode, time.Since(start), nil)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 500 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}

	removeHopHeaders(resp.Header)
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: func() {
		span.End()
		cancel()
	}}
	return resp, nil
}

// targetURL joins the service base URL with the inbound path minus the routing prefix.
func (d *Dispatcher) targetURL(svc registry.ServiceConfig, name string, in *url.URL) (*url.URL, error) {
	base, err := url.Parse(svc.BaseURL)
	if err != nil {
		return nil, err
	}

	rest := in.EscapedPath()
	routePrefix := d.prefix + "/" + name + d.suffix
	if after, ok := strings.CutPrefix(rest, routePrefix); ok && (after == "" || after[0] == '/') {
		rest = after
	}

	escaped := strings.TrimRight(base.EscapedPath(), "/") + rest
	if escaped == "" {
		escaped = "/"
	}
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return nil, err
	}

	target := *base
	target.Path = path
	target.RawPath = escaped
	target.RawQuery = in.RawQuery
	target.Fragment = ""
	return &target, nil
}

func (d *Dispatcher) outboundRequest(ctx context.Context, r *http.Request, target *url.URL, identity *auth.Identity) (*http.Request, error) {
	body := r.Body
	if r.ContentLength == 0 {
		body = nil
	}

	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	out.ContentLength = r.ContentLength

	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	removeHopHeaders(out.Header)

	out.Header.Del(HeaderUserID)
	out.Header.Del(HeaderSessionID)
	if identity != nil {
		out.Header.Set(HeaderUserID, strconv.FormatInt(identity.SubjectID, 10))
		out.Header.Set(HeaderSessionID, identity.SessionID)
	}

	setForwardedHeaders(out.Header, r)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(out.Header))
	return out, nil
}

func setForwardedHeaders(h http.Header, r *http.Request) {
	// RemoteAddr carries no port once chi's RealIP has rewritten it.
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if ip != "" {
		if prior := h.Values("X-Forwarded-For"); len(prior) > 0 {
			ip = strings.Join(prior, ", ") + ", " + ip
		}
		h.Set("X-Forwarded-For", ip)
	}
	if h.Get("X-Forwarded-Host") == "" && r.Host != "" {
		h.Set("X-Forwarded-Host", r.Host)
	}
	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	h.Set("X-Forwarded-Proto", proto)
}

// removeHopHeaders drops the standard hop-by-hop headers and any named in Connection.
func removeHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, field := range strings.Split(v, ",") {
			if field = strings.TrimSpace(field); field != "" {
				h.Del(field)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

func upstreamStatus(ctx context.Context, err error) int {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
}

// releasingBody runs release once when the body is closed.
type releasingBody struct {
	io.ReadCloser
	release func()
	closed  bool
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	if !b.closed {
		b.closed = true
		b.release()
	}
	return err
}
