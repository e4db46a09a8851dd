// Package health probes downstream services and aggregates their status.
package health

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/edgegate/edgegate/internal/registry"
)

const meterName = "github.com/edgegate/edgegate/internal/health"

// Status is the aggregate gateway status.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// Prober defaults.
const (
	DefaultProbeTimeout = 5 * time.Second
	DefaultInterval     = 30 * time.Second
	DefaultConcurrency  = 8
)

// ServiceHealth is one service's probe result.
type ServiceHealth struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	Healthy bool   `json:"healthy"`
}

// Snapshot is the result of one probe cycle.
type Snapshot struct {
	Status    Status          `json:"status"`
	Services  []ServiceHealth `json:"services"`
	CheckedAt time.Time       `json:"checked_at"`
}

// AggregateStatus is healthy iff every result is healthy. An empty list is healthy.
func AggregateStatus(results []bool) Status {
	for _, ok := range results {
		if !ok {
			return StatusDegraded
		}
	}
	return StatusHealthy
}

// Config holds configuration for the prober.
type Config struct {
	Registry *registry.Registry
	Client   *http.Client
	Logger   zerolog.Logger

	// Timeout caps each probe; a service with a shorter timeout is probed within
	// its own. Default: 5 seconds.
	Timeout time.Duration

	// Interval is the period of Run. Default: 30 seconds.
	Interval time.Duration

	// Concurrency caps simultaneous probes. Default: 8.
	Concurrency int

	// ProbeUnconfigured probes services without a health path at DefaultHealthPath
	// instead of reporting them healthy.
	ProbeUnconfigured bool
	DefaultHealthPath string
}

// Prober checks service health on demand and on a fixed interval.
type Prober struct {
	registry          *registry.Registry
	client            *http.Client
	logger            zerolog.Logger
	timeout           time.Duration
	interval          time.Duration
	concurrency       int
	probeUnconfigured bool
	defaultPath       string
	probeTotal        metric.Int64Counter

	mu   sync.RWMutex
	last *Snapshot
}

// NewProber creates a new prober.
func NewProber(cfg Config) *Prober {
	p := &Prober{
		registry:          cfg.Registry,
		client:            cfg.Client,
		logger:            cfg.Logger,
		timeout:           cfg.Timeout,
		interval:          cfg.Interval,
		concurrency:       cfg.Concurrency,
		probeUnconfigured: cfg.ProbeUnconfigured,
		defaultPath:       cfg.DefaultHealthPath,
	}
	if p.client == nil {
		p.client = &http.Client{}
	}
	if p.timeout <= 0 {
		p.timeout = DefaultProbeTimeout
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.concurrency <= 0 {
		p.concurrency = DefaultConcurrency
	}
	if p.defaultPath == "" {
		p.defaultPath = "/health"
	}

	counter, err := otel.Meter(meterName).Int64Counter(
		"health.probe.total",
		metric.WithDescription("Total number of downstream health probes"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to create probe counter")
	}
	p.probeTotal = counter

	return p
}

// Probe issues GET base_url+health_path and reports true only for a 2xx response
// within the service's timeout. Services without a health path are skipped and reported healthy
// unless the prober is configured to probe them.
func (p *Prober) Probe(ctx context.Context, svc registry.ServiceConfig) bool {
	path := svc.HealthCheckPath
	if path == "" {
		if !p.probeUnconfigured {
			return true
		}
		path = p.defaultPath
	}

	healthy := p.probe(ctx, strings.TrimRight(svc.BaseURL, "/")+"/"+strings.TrimLeft(path, "/"), p.timeoutFor(svc))
	if p.probeTotal != nil {
		p.probeTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("service.name", svc.Name),
			attribute.Bool("healthy", healthy),
		))
	}
	return healthy
}

func (p *Prober) timeoutFor(svc registry.ServiceConfig) time.Duration {
	if svc.Timeout > 0 && svc.Timeout < p.timeout {
		return svc.Timeout
	}
	return p.timeout
}

func (p *Prober) probe(ctx context.Context, url string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Check probes every registered service concurrently and stores the snapshot.
func (p *Prober) Check(ctx context.Context) *Snapshot {
	services := p.registry.List()
	results := make([]ServiceHealth, len(services))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, svc := range services {
		g.Go(func() error {
			results[i] = ServiceHealth{
				Name:    svc.Name,
				BaseURL: svc.BaseURL,
				Healthy: p.Probe(gctx, svc),
			}
			return nil
		})
	}
	_ = g.Wait()

	flags := make([]bool, len(results))
	for i, r := range results {
		flags[i] = r.Healthy
	}

	snap := &Snapshot{
		Status:    AggregateStatus(flags),
		Services:  results,
		CheckedAt: time.Now().UTC(),
	}

	p.mu.Lock()
	p.last = snap
	p.mu.Unlock()

	return snap
}

// Latest returns the most recent snapshot, or nil before the first check.
func (p *Prober) Latest() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Current returns the latest snapshot if it is younger than maxAge, otherwise it runs
// a fresh check.
func (p *Prober) Current(ctx context.Context, maxAge time.Duration) *Snapshot {
	if snap := p.Latest(); snap != nil && time.Since(snap.CheckedAt) < maxAge {
		return snap
	}
	return p.Check(ctx)
}

// Interval returns the configured probe period.
func (p *Prober) Interval() time.Duration {
	return p.interval
}

// Run checks immediately and then every interval until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) {
	p.logger.Info().Dur("interval", p.interval).Msg("starting health prober")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		snap := p.Check(ctx)
		evt := p.logger.Debug()
		if snap.Status != StatusHealthy {
			evt = p.logger.Warn()
		}
		evt.Str("status", string(snap.Status)).Int("services", len(snap.Services)).Msg("health check completed")

		select {
		case <-ctx.Done():
			p.logger.Info().Msg("health prober stopped")
			return
		case <-ticker.C:
		}
	}
}
