package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"lead-orchestrator/internal/common/logger"
)

// Observability owns the OpenTelemetry meter and tracer providers for the process.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider shutdowner
	meter          otelmetric.Meter

	invocationCounter  otelmetric.Int64Counter
	invocationDuration otelmetric.Float64Histogram
	probeCounter       otelmetric.Int64Counter
	probeDuration      otelmetric.Float64Histogram
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

type Config struct {
	ServiceName    string
	TracingEnabled bool
	JaegerEndpoint string
}

// New wires the Prometheus-backed meter provider and, when enabled, the Jaeger
// tracer provider. Failures degrade to no-op instruments and are logged.
func New(cfg Config, log logger.Logger) *Observability {
	o := &Observability{}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("Failed to create Prometheus exporter", map[string]interface{}{"error": err.Error()})
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
		otel.SetMeterProvider(o.meterProvider)
		o.meter = o.meterProvider.Meter(cfg.ServiceName)
		o.initInstruments()
	}

	if cfg.TracingEnabled {
		tp, err := newTracerProvider(cfg.ServiceName, cfg.JaegerEndpoint)
		if err != nil {
			log.Warn("Failed to create Jaeger tracer provider", map[string]interface{}{"error": err.Error()})
		} else {
			o.tracerProvider = tp
		}
	}

	return o
}

func (o *Observability) initInstruments() {
	o.invocationCounter, _ = o.meter.Int64Counter(
		"llm.invocations",
		otelmetric.WithDescription("Model invocations by shape and status"),
	)
	o.invocationDuration, _ = o.meter.Float64Histogram(
		"llm.invocation.duration",
		otelmetric.WithDescription("Model invocation duration including retries"),
		otelmetric.WithUnit("ms"),
	)
	o.probeCounter, _ = o.meter.Int64Counter(
		"evaluation.probes",
		otelmetric.WithDescription("Evaluation probes by suite and outcome"),
	)
	o.probeDuration, _ = o.meter.Float64Histogram(
		"evaluation.probe.duration",
		otelmetric.WithDescription("Evaluation probe duration"),
		otelmetric.WithUnit("ms"),
	)
}

func (o *Observability) RecordInvocation(ctx context.Context, shape, status string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("shape", shape),
		attribute.String("status", status),
	)
	if o.invocationCounter != nil {
		o.invocationCounter.Add(ctx, 1, attrs)
	}
	if o.invocationDuration != nil {
		o.invocationDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordProbe(ctx context.Context, suite string, success bool, duration time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("suite", suite),
		attribute.String("outcome", outcome),
	)
	if o.probeCounter != nil {
		o.probeCounter.Add(ctx, 1, attrs)
	}
	if o.probeDuration != nil {
		o.probeDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
