// Package telemetry provides the leveled diagnostics sink used by the
// pipeline engine and by every stage: structured logging backed by slog
// with a tint handler, plus OpenTelemetry metrics and traces.
package telemetry

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const meterTracerName = "github.com/FerroO2000/flusso"

var (
	baseLogger     *slog.Logger
	baseLoggerOnce sync.Once
)

// SetBaseLogger overrides the logger every Telemetry instance derives from.
// It must be called before the first call to NewTelemetry.
func SetBaseLogger(logger *slog.Logger) {
	baseLoggerOnce.Do(func() {
		baseLogger = logger
	})
}

func getBaseLogger() *slog.Logger {
	baseLoggerOnce.Do(func() {
		baseLogger = slog.New(newConsoleHandler())
	})

	return baseLogger
}

// newConsoleHandler returns the tinted stderr handler every logger
// derives from by default.
func newConsoleHandler() slog.Handler {
	out := os.Stderr

	return tint.NewHandler(colorable.NewColorable(out), &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(out.Fd()),
	})
}

// Telemetry groups the logger, the meter and the tracer of a single
// scope/stage pair. It is created by the engine and handed to every
// plugin instance; plugins report through it instead of terminating
// the process.
type Telemetry struct {
	scope string
	name  string

	logger *slog.Logger
	meter  metric.Meter
	tracer trace.Tracer
}

// NewTelemetry returns a new telemetry for the given scope
// (e.g. "input", "processor", "output", "pipeline") and stage name.
func NewTelemetry(scope, name string) *Telemetry {
	return &Telemetry{
		scope: scope,
		name:  name,

		logger: getBaseLogger().With("scope", scope, "stage", name),
		meter:  otel.Meter(meterTracerName),
		tracer: otel.Tracer(meterTracerName),
	}
}

// WithAttrs returns a derived telemetry carrying extra logging attributes.
func (t *Telemetry) WithAttrs(args ...any) *Telemetry {
	return &Telemetry{
		scope: t.scope,
		name:  t.name,

		logger: t.logger.With(args...),
		meter:  t.meter,
		tracer: t.tracer,
	}
}

// LogError logs an error message.
func (t *Telemetry) LogError(msg string, err error, args ...any) {
	t.logger.Error(msg, append([]any{"error", err}, args...)...)
}

// LogWarn logs a warning message.
func (t *Telemetry) LogWarn(msg string, args ...any) {
	t.logger.Warn(msg, args...)
}

// LogInfo logs an info message.
func (t *Telemetry) LogInfo(msg string, args ...any) {
	t.logger.Info(msg, args...)
}

// LogDebug logs a debug message.
func (t *Telemetry) LogDebug(msg string, args ...any) {
	t.logger.Debug(msg, args...)
}

func (t *Telemetry) metricName(name string) string {
	return t.scope + "." + t.name + "." + name
}

// NewCounter registers an observable monotonic counter.
// The callback is invoked at collection time.
func (t *Telemetry) NewCounter(name string, callback func() int64, opts ...metric.Int64ObservableCounterOption) {
	opts = append(opts, metric.WithInt64Callback(
		func(_ context.Context, obs metric.Int64Observer) error {
			obs.Observe(callback())
			return nil
		},
	))

	if _, err := t.meter.Int64ObservableCounter(t.metricName(name), opts...); err != nil {
		t.LogError("failed to create counter", err, "metric", name)
	}
}

// NewUpDownCounter registers an observable non-monotonic counter.
func (t *Telemetry) NewUpDownCounter(name string, callback func() int64, opts ...metric.Int64ObservableUpDownCounterOption) {
	opts = append(opts, metric.WithInt64Callback(
		func(_ context.Context, obs metric.Int64Observer) error {
			obs.Observe(callback())
			return nil
		},
	))

	if _, err := t.meter.Int64ObservableUpDownCounter(t.metricName(name), opts...); err != nil {
		t.LogError("failed to create up/down counter", err, "metric", name)
	}
}

// Histogram records a distribution of int64 values.
type Histogram struct {
	hist metric.Int64Histogram
}

// Record records a value into the histogram.
func (h *Histogram) Record(ctx context.Context, value int64) {
	if h.hist != nil {
		h.hist.Record(ctx, value)
	}
}

// NewHistogram registers a new histogram.
func (t *Telemetry) NewHistogram(name string, opts ...metric.Int64HistogramOption) *Histogram {
	hist, err := t.meter.Int64Histogram(t.metricName(name), opts...)
	if err != nil {
		t.LogError("failed to create histogram", err, "metric", name)
		return &Histogram{}
	}

	return &Histogram{hist: hist}
}

// NewTrace starts a new span.
func (t *Telemetry) NewTrace(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// InjectTrace injects the trace of the given context into the carrier.
func (t *Telemetry) InjectTrace(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}

// ExtractTrace extracts a trace from the carrier into the given context.
func (t *Telemetry) ExtractTrace(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
