package proxy

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/edgegate/edgegate/internal/proxy"

// Metrics holds instruments for upstream calls.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// NewMetrics creates metrics for monitoring upstream calls.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"proxy.upstream.request.duration",
		metric.WithDescription("Duration of proxied upstream requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"proxy.upstream.request.total",
		metric.WithDescription("Total number of proxied upstream requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// RecordRequest records one upstream call. status is 0 when no response was received.
func (m *Metrics) RecordRequest(service, method string, status int, duration time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("service.name", service),
		attribute.String("http.method", method),
	}
	if status != 0 {
		attrs = append(attrs, attribute.String("http.status_code", strconv.Itoa(status)))
	}
	if err != nil || status >= 500 {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Background context so a cancelled request still gets recorded.
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
