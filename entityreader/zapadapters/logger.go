// Package zapadapters adapts zap loggers to the entityreader logging interfaces.
package zapadapters

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
)

var (
	_ entityreader.Logger           = (*Logger)(nil)
	_ entityreader.ContextualLogger = (*Logger)(nil)
)

const (
	traceIDKey = "trace_id"
	spanIDKey  = "span_id"
)

// Logger adapts a zap.SugaredLogger to entityreader.Logger and entityreader.ContextualLogger.
// The slog-style key/value args of the reader map onto zap's loosely typed pairs.
//
// The context-aware methods add trace_id and span_id when ctx carries a valid OpenTelemetry span.
type Logger struct {
	logger *zap.SugaredLogger
}

// NewLogger creates a Logger from a zap SugaredLogger. A nil logger results in a no-op Logger.
func NewLogger(logger *zap.SugaredLogger) *Logger {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Logger{logger: logger}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.logger.Debugw(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.logger.Infow(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warnw(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.logger.Errorw(msg, args...)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.Debugw(msg, withTraceCorrelation(ctx, args)...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.Infow(msg, withTraceCorrelation(ctx, args)...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.Warnw(msg, withTraceCorrelation(ctx, args)...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.Errorw(msg, withTraceCorrelation(ctx, args)...)
}

func withTraceCorrelation(ctx context.Context, args []any) []any {
	spanContext := trace.SpanContextFromContext(ctx)
	if !spanContext.IsValid() {
		return args
	}

	correlated := make([]any, 0, len(args)+4)
	correlated = append(correlated, args...)

	return append(correlated, traceIDKey, spanContext.TraceID().String(), spanIDKey, spanContext.SpanID().String())
}
