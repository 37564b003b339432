package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/chunkscribe/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The caller shuts it down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the run instruments. A nil *Metrics records nothing.
type Metrics struct {
	sourceTotal         metric.Int64Counter
	sourceDuration      metric.Float64Histogram
	segmentTotal        metric.Int64Counter
	recognitionAttempts metric.Int64Counter
	recognitionDuration metric.Float64Histogram
	chunkTotal          metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	sourceTotal, err := meter.Int64Counter("chunkscribe.sources",
		metric.WithDescription("Sources processed, by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chunkscribe.sources counter: %w", err)
	}

	sourceDuration, err := meter.Float64Histogram("chunkscribe.source.duration",
		metric.WithDescription("Wall time spent per source"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chunkscribe.source.duration histogram: %w", err)
	}

	segmentTotal, err := meter.Int64Counter("chunkscribe.segments",
		metric.WithDescription("Segments recognized, by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chunkscribe.segments counter: %w", err)
	}

	recognitionAttempts, err := meter.Int64Counter("chunkscribe.recognition.attempts",
		metric.WithDescription("Recognition calls including retries"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chunkscribe.recognition.attempts counter: %w", err)
	}

	recognitionDuration, err := meter.Float64Histogram("chunkscribe.recognition.duration",
		metric.WithDescription("Duration of recognition calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chunkscribe.recognition.duration histogram: %w", err)
	}

	chunkTotal, err := meter.Int64Counter("chunkscribe.chunks",
		metric.WithDescription("Transcript chunks written"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chunkscribe.chunks counter: %w", err)
	}

	return &Metrics{
		sourceTotal:         sourceTotal,
		sourceDuration:      sourceDuration,
		segmentTotal:        segmentTotal,
		recognitionAttempts: recognitionAttempts,
		recognitionDuration: recognitionDuration,
		chunkTotal:          chunkTotal,
	}, nil
}

// RecordSource records one processed source.
func (m *Metrics) RecordSource(ctx context.Context, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.sourceTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.sourceDuration.Record(ctx, duration.Seconds())
}

// RecordSegment records one segment's recognition outcome.
func (m *Metrics) RecordSegment(ctx context.Context, status string, attempts int) {
	if m == nil {
		return
	}
	m.segmentTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.recognitionAttempts.Add(ctx, int64(attempts))
}

// RecordRecognition records the duration of a single recognition call.
func (m *Metrics) RecordRecognition(ctx context.Context, provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.recognitionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

// RecordChunks adds n written chunks.
func (m *Metrics) RecordChunks(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.chunkTotal.Add(ctx, int64(n))
}
