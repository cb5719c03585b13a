package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
)

const (
	metricReadDuration         = "entityreader_read_duration_seconds"
	metricEntitiesEmitted      = "entityreader_entities_emitted"
	metricDuplicatesSuppressed = "entityreader_duplicates_suppressed"
	metricErrors               = "entityreader_errors_total"
	spanNameRead               = "EntityReader.Read"
	spanAttrOperation          = "operation"
	spanAttrEntityKind         = "entity_kind"
	spanAttrTable              = "table"
	spanAttrSnapshot           = "snapshot"
	spanAttrConsistency        = "consistency"
	spanAttrEntityCount        = "entity_count"
	spanAttrSuppressedCount    = "suppressed_count"
	spanAttrOutcome            = "outcome"
	spanAttrErrorType          = "error_type"
	spanAttrDurationMS         = "duration_ms"
	labelStatus                = "status"
	operationRead              = "read"
	statusSuccess              = "success"
	statusError                = "error"
	outcomeExhausted           = "exhausted"
	outcomeClosedEarly         = "closed_early"
	errorTypeBuildQuery        = "build_query"
	errorTypeConnectivity      = "connectivity"
	errorTypeQueryExecution    = "query_execution"
	errorTypeMalformedRow      = "malformed_row"
	errorTypeOrderingViolation = "ordering_violation"
	errorTypeMultipleRevisions = "multiple_revisions"
	errorTypeCanceled          = "canceled"
	errorTypeTimeout           = "timeout"
	errorTypeConfiguration     = "configuration"
	errorTypeUnknown           = "unknown"
)

// classifyErrorType maps an error onto the error_type label used in logs, metrics, and spans.
func classifyErrorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeTimeout
	case errors.Is(err, entityreader.ErrQueryExecution):
		return errorTypeQueryExecution
	case errors.Is(err, entityreader.ErrConnectivity):
		return errorTypeConnectivity
	case errors.Is(err, entityreader.ErrMalformedRow):
		return errorTypeMalformedRow
	case errors.Is(err, entityreader.ErrOrderingViolation):
		return errorTypeOrderingViolation
	case errors.Is(err, entityreader.ErrMultipleRevisions):
		return errorTypeMultipleRevisions
	case errors.Is(err, entityreader.ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	case errors.Is(err, entityreader.ErrEmptyTableName):
		return errorTypeConfiguration
	default:
		return errorTypeUnknown
	}
}

func outcomeOf(summary entityreader.StreamSummary) string {
	if summary.Exhausted {
		return outcomeExhausted
	}

	return outcomeClosedEarly
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2f", toMilliseconds(d))
}

// === Logging ===
// Every message goes to the Logger and to the ContextualLogger, whichever are configured.

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (r *Reader) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if r.logger != nil {
		r.logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if r.contextualLogger != nil {
		r.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (r *Reader) logOperation(ctx context.Context, action string, args ...any) {
	if r.logger != nil {
		r.logger.Info(logMsgOperation+action, args...)
	}

	if r.contextualLogger != nil {
		r.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical issues at warn level.
func (r *Reader) logWarn(ctx context.Context, message string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(message, args...)
	}

	if r.contextualLogger != nil {
		r.contextualLogger.WarnContext(ctx, message, args...)
	}
}

// logError logs error information at the error level.
func (r *Reader) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if r.logger != nil {
		r.logger.Error(message, allArgs...)
	}

	if r.contextualLogger != nil {
		r.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// === Metrics Observer Pattern ===

// readMetricsObserver encapsulates the metrics collection for one read pass.
type readMetricsObserver struct {
	r    *Reader
	ctx  context.Context
	kind EntityKind
}

// startReadMetrics creates a new metrics observer for a read pass.
func (r *Reader) startReadMetrics(ctx context.Context, kind EntityKind) *readMetricsObserver {
	return &readMetricsObserver{
		r:    r,
		ctx:  ctx,
		kind: kind,
	}
}

func (rmo *readMetricsObserver) labels(status string) map[string]string {
	return map[string]string{
		spanAttrOperation:  operationRead,
		spanAttrEntityKind: string(rmo.kind),
		labelStatus:        status,
	}
}

// recordSuccess records all metrics for a read pass that ended without error.
func (rmo *readMetricsObserver) recordSuccess(summary entityreader.StreamSummary, duration time.Duration) {
	labels := rmo.labels(statusSuccess)

	rmo.recordDuration(duration, labels)
	rmo.recordValue(metricEntitiesEmitted, float64(summary.Emitted), labels)
	rmo.recordValue(metricDuplicatesSuppressed, float64(summary.Suppressed), labels)
}

// recordError records all metrics for a failed read pass.
func (rmo *readMetricsObserver) recordError(errorType string, duration time.Duration) {
	rmo.recordDuration(duration, rmo.labels(statusError))

	errorLabels := rmo.labels(statusError)
	errorLabels[spanAttrErrorType] = errorType

	rmo.incrementCounter(metricErrors, errorLabels)
}

// recordDuration records the read duration with context if the collector supports it.
func (rmo *readMetricsObserver) recordDuration(duration time.Duration, labels map[string]string) {
	if rmo.r.metricsCollector == nil {
		return
	}

	// Use context-aware method if available
	if contextualCollector, ok := rmo.r.metricsCollector.(entityreader.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(rmo.ctx, metricReadDuration, duration, labels)
		return
	}

	rmo.r.metricsCollector.RecordDuration(metricReadDuration, duration, labels)
}

func (rmo *readMetricsObserver) recordValue(metric string, value float64, labels map[string]string) {
	if rmo.r.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := rmo.r.metricsCollector.(entityreader.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(rmo.ctx, metric, value, labels)
		return
	}

	rmo.r.metricsCollector.RecordValue(metric, value, labels)
}

func (rmo *readMetricsObserver) incrementCounter(metric string, labels map[string]string) {
	if rmo.r.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := rmo.r.metricsCollector.(entityreader.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(rmo.ctx, metric, labels)
		return
	}

	rmo.r.metricsCollector.IncrementCounter(metric, labels)
}

// === Tracing Observer Pattern ===

// readTracingObserver encapsulates tracing span lifecycle management for one read pass.
type readTracingObserver struct {
	r    *Reader
	span entityreader.SpanContext
}

// startReadTracing creates a new tracing observer for a read pass and starts its span.
func (r *Reader) startReadTracing(
	ctx context.Context,
	schema TableSchema,
	snapshot time.Time,
) (*readTracingObserver, context.Context) {

	if r.tracingCollector == nil {
		return &readTracingObserver{r: r}, ctx
	}

	spanAttrs := map[string]string{
		spanAttrOperation:   operationRead,
		spanAttrEntityKind:  string(schema.Kind),
		spanAttrTable:       schema.Table,
		spanAttrSnapshot:    snapshot.Format(time.RFC3339Nano),
		spanAttrConsistency: entityreader.GetConsistencyLevel(ctx).String(),
	}

	newCtx, span := r.tracingCollector.StartSpan(ctx, spanNameRead, spanAttrs)

	return &readTracingObserver{
		r:    r,
		span: span,
	}, newCtx
}

// finishSuccess completes the span of a read pass that ended without error.
func (rto *readTracingObserver) finishSuccess(summary entityreader.StreamSummary, duration time.Duration) {
	if rto.span == nil {
		return
	}

	attrs := map[string]string{
		spanAttrEntityCount:     fmt.Sprintf("%d", summary.Emitted),
		spanAttrSuppressedCount: fmt.Sprintf("%d", summary.Suppressed),
		spanAttrOutcome:         outcomeOf(summary),
	}

	rto.span.SetStatus(statusSuccess)
	rto.span.AddAttribute(spanAttrDurationMS, formatDuration(duration))

	for key, value := range attrs {
		rto.span.AddAttribute(key, value)
	}

	rto.r.tracingCollector.FinishSpan(rto.span, statusSuccess, attrs)
}

// finishError completes the span of a failed read pass with error details.
func (rto *readTracingObserver) finishError(errorType string, summary entityreader.StreamSummary, duration time.Duration) {
	if rto.span == nil {
		return
	}

	attrs := map[string]string{
		spanAttrErrorType:   errorType,
		spanAttrEntityCount: fmt.Sprintf("%d", summary.Emitted),
	}

	rto.span.SetStatus(statusError)

	if duration > 0 {
		rto.span.AddAttribute(spanAttrDurationMS, formatDuration(duration))
	}

	for key, value := range attrs {
		rto.span.AddAttribute(key, value)
	}

	rto.r.tracingCollector.FinishSpan(rto.span, statusError, attrs)
}
