package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	meterScope         = "github.com/formbricks/embedding-gateway/internal/observability"
	defaultServiceName = "embedding-gateway"
	cardinalityLimit   = 2000
)

// latencyHistogramBoundaries are Prometheus-style buckets (seconds) for request and provider duration histograms.
var latencyHistogramBoundaries = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// GatewayMetrics is the single metrics interface for the gateway (HTTP and embedding calls).
// Callers treat a nil GatewayMetrics as "metrics disabled".
type GatewayMetrics interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
	RecordRequestBodyTooLarge(ctx context.Context)
	RecordEmbeddingRequest(ctx context.Context, outcome string, statusCode int, duration time.Duration)
	RecordLogWriteError(ctx context.Context, sink string)
}

// MeterProviderShutdown is the subset of the SDK MeterProvider needed for shutdown.
type MeterProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// MeterProviderConfig holds configuration for creating the MeterProvider and metrics.
type MeterProviderConfig struct {
	// ServiceName is used in the resource (default: embedding-gateway).
	ServiceName string
}

// NewMeterProvider creates a MeterProvider with Prometheus exporter and returns the provider,
// an HTTP handler for /metrics, and GatewayMetrics that use the provider's Meter.
// Caller must call provider.Shutdown on exit.
func NewMeterProvider(_ context.Context, cfg MeterProviderConfig) (provider MeterProviderShutdown, metricsHandler http.Handler, metrics GatewayMetrics, err error) {
	serviceNameVal := cfg.ServiceName
	if serviceNameVal == "" {
		serviceNameVal = defaultServiceName
	}

	// Single resource avoids Schema URL conflicts when merging with resource.Default().
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceNameVal),
	)

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(
		prometheusexporter.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
		sdkmetric.WithView(
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: MetricNameHTTPDuration},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries}},
			),
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: MetricNameEmbeddingRequestDuration},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries}},
			),
		),
	)
	provider = mp

	gm, err := NewGatewayMetrics(mp.Meter(meterScope))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create metrics instruments: %w", err)
	}

	metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return provider, metricsHandler, gm, nil
}

// NewGatewayMetrics creates the gateway instruments on meter.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewGatewayMetrics(meter metric.Meter) (GatewayMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	requestCount, err := meter.Int64Counter(
		MetricNameHTTPRequestCount,
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameHTTPRequestCount, err)
	}

	requestDuration, err := meter.Float64Histogram(
		MetricNameHTTPDuration,
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameHTTPDuration, err)
	}

	bodyTooLarge, err := meter.Int64Counter(
		MetricNameRequestBodyTooLarge,
		metric.WithDescription("Requests rejected because the body exceeded the configured limit (413)"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameRequestBodyTooLarge, err)
	}

	embeddingRequests, err := meter.Int64Counter(
		MetricNameEmbeddingRequests,
		metric.WithDescription("Embedding calls by outcome and provider status class"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameEmbeddingRequests, err)
	}

	embeddingDuration, err := meter.Float64Histogram(
		MetricNameEmbeddingRequestDuration,
		metric.WithDescription("Embedding call latency in seconds, including outcome logging"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameEmbeddingRequestDuration, err)
	}

	logWriteErrors, err := meter.Int64Counter(
		MetricNameLogWriteErrors,
		metric.WithDescription("Failed writes to the request or error log sinks"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameLogWriteErrors, err)
	}

	return &gatewayMetrics{
		requestCount:      requestCount,
		requestDuration:   requestDuration,
		bodyTooLarge:      bodyTooLarge,
		embeddingRequests: embeddingRequests,
		embeddingDuration: embeddingDuration,
		logWriteErrors:    logWriteErrors,
	}, nil
}

type gatewayMetrics struct {
	requestCount      metric.Int64Counter
	requestDuration   metric.Float64Histogram
	bodyTooLarge      metric.Int64Counter
	embeddingRequests metric.Int64Counter
	embeddingDuration metric.Float64Histogram
	logWriteErrors    metric.Int64Counter
}

func (m *gatewayMetrics) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	attrs := attribute.NewSet(
		attribute.String(AttrMethod, method),
		attribute.String(AttrRoute, route),
		attribute.String(AttrStatusClass, statusClass),
	)
	m.requestCount.Add(ctx, 1, metric.WithAttributeSet(attrs))

	durAttrs := attribute.NewSet(
		attribute.String(AttrMethod, method),
		attribute.String(AttrRoute, route),
	)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(durAttrs))
}

func (m *gatewayMetrics) RecordRequestBodyTooLarge(ctx context.Context) {
	m.bodyTooLarge.Add(ctx, 1)
}

func (m *gatewayMetrics) RecordEmbeddingRequest(ctx context.Context, outcome string, statusCode int, duration time.Duration) {
	outcome = NormalizeReason(outcome, AllowedOutcomes)
	attrs := metric.WithAttributes(
		attribute.String(AttrOutcome, outcome),
		attribute.String(AttrStatusClass, StatusClass(statusCode)),
	)
	m.embeddingRequests.Add(ctx, 1, attrs)
	m.embeddingDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
}

func (m *gatewayMetrics) RecordLogWriteError(ctx context.Context, sink string) {
	sink = NormalizeReason(sink, AllowedSinks)
	m.logWriteErrors.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrSink, sink)))
}
