package helper

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
)

var _ entityreader.ContextualLogger = (*ContextualLoggerSpy)(nil)

// ContextualLoggerSpy is a ContextualLogger implementation that captures contextual logging calls for testing.
type ContextualLoggerSpy struct {
	records     []ContextualLogRecord
	mu          sync.Mutex
	recordCalls bool
}

// ContextualLogRecord represents a recorded contextual log call.
type ContextualLogRecord struct {
	Level   string
	Message string
	Args    []any
	Context context.Context
}

// NewContextualLoggerSpy creates a new ContextualLoggerSpy.
// Set recordCalls to true to capture all log calls for inspection in tests.
func NewContextualLoggerSpy(recordCalls bool) *ContextualLoggerSpy {
	return &ContextualLoggerSpy{
		records:     make([]ContextualLogRecord, 0),
		recordCalls: recordCalls,
	}
}

// DebugContext implements the ContextualLogger interface.
func (l *ContextualLoggerSpy) DebugContext(ctx context.Context, msg string, args ...any) {
	l.record(ctx, "debug", msg, args)
}

// InfoContext implements the ContextualLogger interface.
func (l *ContextualLoggerSpy) InfoContext(ctx context.Context, msg string, args ...any) {
	l.record(ctx, "info", msg, args)
}

// WarnContext implements the ContextualLogger interface.
func (l *ContextualLoggerSpy) WarnContext(ctx context.Context, msg string, args ...any) {
	l.record(ctx, "warn", msg, args)
}

// ErrorContext implements the ContextualLogger interface.
func (l *ContextualLoggerSpy) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.record(ctx, "error", msg, args)
}

func (l *ContextualLoggerSpy) record(ctx context.Context, level, msg string, args []any) {
	if !l.recordCalls {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, ContextualLogRecord{
		Level:   level,
		Message: msg,
		Args:    args,
		Context: ctx,
	})
}

// GetRecords returns a copy of all captured log records.
func (l *ContextualLoggerSpy) GetRecords() []ContextualLogRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]ContextualLogRecord(nil), l.records...)
}

// Reset clears all captured log records.
func (l *ContextualLoggerSpy) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = l.records[:0]
}

// HasDebugLog checks if a debug log with the specified message exists.
func (l *ContextualLoggerSpy) HasDebugLog(message string) bool {
	return l.hasLog("debug", message)
}

// HasInfoLog checks if an info log with the specified message exists.
func (l *ContextualLoggerSpy) HasInfoLog(message string) bool {
	return l.hasLog("info", message)
}

// HasWarnLog checks if a warn log with the specified message exists.
func (l *ContextualLoggerSpy) HasWarnLog(message string) bool {
	return l.hasLog("warn", message)
}

// HasErrorLog checks if an error log with the specified message exists.
func (l *ContextualLoggerSpy) HasErrorLog(message string) bool {
	return l.hasLog("error", message)
}

func (l *ContextualLoggerSpy) hasLog(level, message string) bool {
	for _, record := range l.GetRecords() {
		if record.Level == level && record.Message == message {
			return true
		}
	}

	return false
}
