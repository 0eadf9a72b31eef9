package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	promclient "github.com/prometheus/client_golang/prometheus"
)

// Global telemetry handles
var (
	Tracer = otel.Tracer("github.com/tylwright/craft-docs-proxmox")

	Meter = otel.Meter("github.com/tylwright/craft-docs-proxmox")

	// PrometheusRegistry for Prometheus scraping (dual export pattern).
	// The OTEL exporter registers itself with this registry.
	PrometheusRegistry = promclient.NewRegistry()

	SyncRuns         metric.Int64Counter
	SyncFailures     metric.Int64Counter
	ResourcesFetched metric.Int64Counter
	DecisionsPlanned metric.Int64Counter
	PublishFailures  metric.Int64Counter
	SyncDuration     metric.Float64Histogram
	DocumentEntries  metric.Int64Gauge
	SnapshotRevision metric.Int64Gauge
)

// Instruments delegate through the global meter until InitOTEL installs
// the real provider, so recording is safe before initialization.
func init() {
	_ = initMetrics()
}

// Config for OTEL initialization
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTELEndpoint   string // e.g., "localhost:4317"
	Insecure       bool   // true for local dev
}

// InitOTEL initializes OpenTelemetry with traces and metrics
func InitOTEL(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	cfg = applyConfigDefaults(cfg)

	res, err := createOTELResource(cfg)
	if err != nil {
		return nil, err
	}

	return setupProviders(ctx, cfg, res)
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.OTELEndpoint == "" {
		cfg.OTELEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		if cfg.OTELEndpoint == "" {
			cfg.OTELEndpoint = "localhost:4317"
		}
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "proxsync"
	}

	return cfg
}

func createOTELResource(cfg Config) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func setupProviders(ctx context.Context, cfg Config, res *resource.Resource) (func(context.Context) error, error) {
	traceShutdown, err := setupTraceProvider(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("failed to setup traces: %w", err)
	}

	metricShutdown, err := setupMetricProvider(ctx, cfg, res)
	if err != nil {
		_ = traceShutdown(ctx)
		return nil, fmt.Errorf("failed to setup metrics: %w", err)
	}

	if err := initMetrics(); err != nil {
		_ = traceShutdown(ctx)
		_ = metricShutdown(ctx)
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return createCombinedShutdown(traceShutdown, metricShutdown), nil
}

func createCombinedShutdown(traceShutdown, metricShutdown func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		var err error
		if e := traceShutdown(ctx); e != nil {
			err = fmt.Errorf("trace shutdown failed: %w", e)
		}
		if e := metricShutdown(ctx); e != nil && err == nil {
			err = fmt.Errorf("metric shutdown failed: %w", e)
		}
		return err
	}
}

// setupTraceProvider configures trace provider with OTLP exporter
func setupTraceProvider(ctx context.Context, cfg Config, res *resource.Resource) (func(context.Context) error, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.OTELEndpoint),
	}

	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithDialOption(
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	Tracer = provider.Tracer("github.com/tylwright/craft-docs-proxmox")

	return provider.Shutdown, nil
}

// setupMetricProvider configures metric provider with dual export
// (Prometheus pull + OTLP push)
func setupMetricProvider(ctx context.Context, cfg Config, res *resource.Resource) (func(context.Context) error, error) {
	var readers []sdkmetric.Reader

	prometheusExporter, err := prometheus.New(
		prometheus.WithRegisterer(PrometheusRegistry),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	readers = append(readers, prometheusExporter)

	if cfg.OTELEndpoint != "" {
		otlpReader, err := createOTLPReader(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric reader: %w", err)
		}
		readers = append(readers, otlpReader)
	}

	providerOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
	}
	for _, reader := range readers {
		providerOpts = append(providerOpts, sdkmetric.WithReader(reader))
	}

	provider := sdkmetric.NewMeterProvider(providerOpts...)

	otel.SetMeterProvider(provider)

	Meter = provider.Meter("github.com/tylwright/craft-docs-proxmox")

	return provider.Shutdown, nil
}

func createOTLPReader(ctx context.Context, cfg Config) (sdkmetric.Reader, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.OTELEndpoint),
	}

	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		))
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	return sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(10*time.Second),
	), nil
}

func initMetrics() error {
	if err := initCounters(); err != nil {
		return err
	}

	if err := initHistograms(); err != nil {
		return err
	}

	return initGauges()
}

func initCounters() error {
	var err error

	SyncRuns, err = Meter.Int64Counter("proxsync.sync.runs.total",
		metric.WithDescription("Total number of sync runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync_runs counter: %w", err)
	}

	SyncFailures, err = Meter.Int64Counter("proxsync.sync.failures.total",
		metric.WithDescription("Total number of failed sync runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync_failures counter: %w", err)
	}

	ResourcesFetched, err = Meter.Int64Counter("proxsync.resources.fetched.total",
		metric.WithDescription("Total number of guests fetched from Proxmox"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create resources_fetched counter: %w", err)
	}

	DecisionsPlanned, err = Meter.Int64Counter("proxsync.decisions.planned.total",
		metric.WithDescription("Total number of reconciliation decisions planned"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create decisions_planned counter: %w", err)
	}

	PublishFailures, err = Meter.Int64Counter("proxsync.publish.failures.total",
		metric.WithDescription("Total number of failed document operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create publish_failures counter: %w", err)
	}

	return nil
}

func initHistograms() error {
	var err error

	SyncDuration, err = Meter.Float64Histogram("proxsync.sync.duration",
		metric.WithDescription("Duration of sync runs"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync_duration histogram: %w", err)
	}

	return nil
}

func initGauges() error {
	var err error

	DocumentEntries, err = Meter.Int64Gauge("proxsync.document.entries",
		metric.WithDescription("Number of resource entries in the document"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create document_entries gauge: %w", err)
	}

	SnapshotRevision, err = Meter.Int64Gauge("proxsync.snapshot.revision",
		metric.WithDescription("Current snapshot store revision"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot_revision gauge: %w", err)
	}

	return nil
}
