package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger with OTEL hooks
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// LogSpanStart logs the start of a span with attributes
func (l *Logger) LogSpanStart(ctx context.Context, spanName string, attrs ...attribute.KeyValue) {
	logger := l.WithContext(ctx)

	event := logger.Info().Str("span_name", spanName)
	for _, attr := range attrs {
		event = addAttributeToEvent(event, attr)
	}
	event.Msg("span started")
}

// LogSpanEnd logs the end of a span with results
func (l *Logger) LogSpanEnd(ctx context.Context, spanName string, err error) {
	logger := l.WithContext(ctx)

	if err != nil {
		logger.Error().
			Err(err).
			Str("span_name", spanName).
			Msg("span failed")
	} else {
		logger.Debug().
			Str("span_name", spanName).
			Msg("span completed")
	}
}

func addAttributeToEvent(event *zerolog.Event, attr attribute.KeyValue) *zerolog.Event {
	key := string(attr.Key)

	switch attr.Value.Type() {
	case attribute.STRING:
		return event.Str(key, attr.Value.AsString())
	case attribute.INT64:
		return event.Int64(key, attr.Value.AsInt64())
	case attribute.FLOAT64:
		return event.Float64(key, attr.Value.AsFloat64())
	case attribute.BOOL:
		return event.Bool(key, attr.Value.AsBool())
	default:
		return event.Str(key, attr.Value.AsString())
	}
}

// Convenience methods for sync runs

func (l *Logger) LogSyncStart(ctx context.Context, documentID string, incremental bool) {
	l.WithContext(ctx).Info().
		Str("document_id", documentID).
		Bool("incremental", incremental).
		Str("operation", "sync").
		Msg("starting sync")
}

func (l *Logger) LogSyncComplete(ctx context.Context, creates, updates, flagged int, durationMs float64) {
	l.WithContext(ctx).Info().
		Int("creates", creates).
		Int("updates", updates).
		Int("flagged_deleted", flagged).
		Float64("duration_ms", durationMs).
		Str("operation", "sync").
		Msg("sync completed")
}

func (l *Logger) LogFetchError(ctx context.Context, source string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("source", source).
		Str("operation", "fetch").
		Msg("inventory fetch failed")
}

func (l *Logger) LogPublishError(ctx context.Context, key string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("resource", key).
		Str("operation", "publish").
		Msg("document operation failed")
}
