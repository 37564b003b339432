package observability

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/chunkscribe/component"
	"github.com/kbukum/chunkscribe/logger"
)

// Component owns the tracer and meter providers for one run.
type Component struct {
	cfg         Config
	serviceName string
	version     string
	environment string
	log         *logger.Logger

	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	metrics *Metrics
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the telemetry component.
func NewComponent(cfg Config, serviceName, version, environment string, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg:         cfg,
		serviceName: serviceName,
		version:     version,
		environment: environment,
		log:         log.WithComponent("observability"),
	}
}

// Name returns the component name.
func (c *Component) Name() string { return "observability" }

// Start installs exporters when enabled and builds the run instruments.
func (c *Component) Start(ctx context.Context) error {
	if c.cfg.Enabled {
		tp, err := InitTracer(ctx, TracerConfig{
			ServiceName:    c.serviceName,
			ServiceVersion: c.version,
			Environment:    c.environment,
			Endpoint:       c.cfg.Endpoint,
			Insecure:       c.cfg.Insecure,
			SampleRate:     c.cfg.SampleRate,
		})
		if err != nil {
			return err
		}
		c.tp = tp

		mp, err := InitMeter(ctx, MeterConfig{
			ServiceName:    c.serviceName,
			ServiceVersion: c.version,
			Environment:    c.environment,
			Endpoint:       c.cfg.Endpoint,
			Insecure:       c.cfg.Insecure,
			Interval:       c.cfg.MetricInterval,
		})
		if err != nil {
			return err
		}
		c.mp = mp
	}

	metrics, err := NewMetrics(Meter(defaultTracerName))
	if err != nil {
		return fmt.Errorf("observability start: %w", err)
	}
	c.metrics = metrics
	return nil
}

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.tp != nil {
		errs = append(errs, c.tp.Shutdown(ctx))
		c.tp = nil
	}
	if c.mp != nil {
		errs = append(errs, c.mp.Shutdown(ctx))
		c.mp = nil
	}
	return errors.Join(errs...)
}

// Health reports whether exporters are running.
func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.cfg.Enabled {
		h.Message = "export disabled"
	}
	return h
}

// Describe returns the startup summary line.
func (c *Component) Describe() component.Description {
	details := "export disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp %s sample=%.2f", c.cfg.Endpoint, c.cfg.SampleRate)
	}
	return component.Description{Name: "Telemetry", Type: "telemetry", Details: details}
}

// Metrics returns the run instruments, or nil before Start.
func (c *Component) Metrics() *Metrics {
	return c.metrics
}
