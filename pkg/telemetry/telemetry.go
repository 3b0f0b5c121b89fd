// Package telemetry wires OpenTelemetry traces (OTLP gRPC) and metrics
// (Prometheus pull) for the song service.
//
// Usage:
//
//	p, shutdown, err := telemetry.Init(ctx, &telemetry.Config{
//	    ServiceName:  "song-svc",
//	    Environment:  "production",
//	    OTLPEndpoint: "otel-collector:4317",
//	    Enabled:      true,
//	})
//	defer shutdown(context.Background())
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config holds telemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string // "development", "staging", "production"
	OTLPEndpoint   string // gRPC endpoint, e.g. "otel-collector:4317"
	Enabled        bool
}

// Provider wraps the tracer and meter of one service.
type Provider struct {
	tracer   trace.Tracer
	meter    metric.Meter
	registry *promclient.Registry
	cfg      *Config
}

// ShutdownFunc flushes and shuts down telemetry providers.
type ShutdownFunc func(context.Context) error

// Init sets up metrics when telemetry is enabled, and traces when an OTLP
// endpoint is configured as well. The returned shutdown func must be
// deferred.
func Init(ctx context.Context, cfg *Config) (*Provider, ShutdownFunc, error) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if !cfg.Enabled {
		return newNoopProvider(cfg), func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
			attribute.String("service.namespace", "song-manager"),
		),
		resource.WithProcessPID(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("build otel resource: %w", err)
	}

	var shutdowns []func(context.Context) error

	// Metrics (Prometheus pull) on a private registry.
	registry := promclient.NewRegistry()
	metricExporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithNamespace(sanitizeName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(metricExporter),
	)
	otel.SetMeterProvider(meterProvider)
	shutdowns = append(shutdowns, meterProvider.Shutdown)

	if cfg.OTLPEndpoint != "" {
		conn, err := grpc.NewClient(cfg.OTLPEndpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to otel collector %s: %w", cfg.OTLPEndpoint, err)
		}

		traceExporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithGRPCConn(conn),
			otlptracegrpc.WithTimeout(10*time.Second),
		)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("create trace exporter: %w", err)
		}

		samplingRate := 0.1
		if cfg.Environment != "production" {
			samplingRate = 1.0
		}
		tracerProvider := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter,
				sdktrace.WithBatchTimeout(5*time.Second),
				sdktrace.WithMaxExportBatchSize(512),
			),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(samplingRate))),
		)
		otel.SetTracerProvider(tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{},
		))
		// the tracer provider flushes before the connection closes
		shutdowns = append(shutdowns, tracerProvider.Shutdown, func(context.Context) error { return conn.Close() })
	}

	p := &Provider{
		tracer:   otel.Tracer(cfg.ServiceName),
		meter:    meterProvider.Meter(cfg.ServiceName),
		registry: registry,
		cfg:      cfg,
	}

	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("telemetry shutdown errors: %v", errs)
		}
		return nil
	}

	return p, shutdown, nil
}

// Enabled reports whether metrics are being collected.
func (p *Provider) Enabled() bool { return p.registry != nil }

// Tracer returns the service tracer.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Meter returns the service meter.
func (p *Provider) Meter() metric.Meter { return p.meter }

// MetricsHandler serves the Prometheus scrape endpoint. It returns nil when
// telemetry is disabled.
func (p *Provider) MetricsHandler() http.Handler {
	if p.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// NewHTTPRequestCounter creates a counter for HTTP requests.
func (p *Provider) NewHTTPRequestCounter() (metric.Int64Counter, error) {
	return p.meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
}

// NewHTTPDurationHistogram creates a histogram for HTTP request durations.
func (p *Provider) NewHTTPDurationHistogram() (metric.Float64Histogram, error) {
	return p.meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0,
		),
	)
}

// ObserveListeners exports the number of connected event stream listeners
// as a gauge read from count at scrape time.
func (p *Provider) ObserveListeners(count func() int) error {
	_, err := p.meter.Int64ObservableGauge(
		"event_stream_listeners",
		metric.WithDescription("Active event stream websocket listeners"),
		metric.WithUnit("{connection}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(count()))
			return nil
		}),
	)
	return err
}

// TraceIDFromContext extracts the trace ID string from context.
func TraceIDFromContext(ctx context.Context) string {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

func newNoopProvider(cfg *Config) *Provider {
	return &Provider{
		tracer: otel.Tracer(cfg.ServiceName),
		meter:  otel.Meter(cfg.ServiceName),
		cfg:    cfg,
	}
}

func sanitizeName(s string) string {
	out := make([]byte, len(s))
	for i := range s {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			out[i] = c
		} else {
			out[i] = '_'
		}
	}
	return string(out)
}
