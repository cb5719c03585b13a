package postgresengine

import (
	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
)

// Option defines a functional option for configuring the Reader.
type Option func(*Reader) error

// WithNodesTableName sets the name of the node revision table.
func WithNodesTableName(tableName string) Option {
	return func(r *Reader) error {
		if tableName == "" {
			return entityreader.ErrEmptyTableName
		}

		r.nodesTableName = tableName

		return nil
	}
}

// WithSegmentsTableName sets the name of the segment revision table.
func WithSegmentsTableName(tableName string) Option {
	return func(r *Reader) error {
		if tableName == "" {
			return entityreader.ErrEmptyTableName
		}

		r.segmentsTableName = tableName

		return nil
	}
}

// WithFetchSize sets how many rows are fetched from the server-side cursor per round trip.
// This is the upper bound of rows held in memory by one stream.
func WithFetchSize(fetchSize int) Option {
	return func(r *Reader) error {
		if fetchSize <= 0 {
			return entityreader.ErrInvalidFetchSize
		}

		r.fetchSize = fetchSize

		return nil
	}
}

// WithTagParser sets the parser for the raw tags column. The default is tags.ParseEmbedded.
func WithTagParser(parser entityreader.TagParser) Option {
	return func(r *Reader) error {
		if parser != nil {
			r.parseTags = parser
		}

		return nil
	}
}

// WithLogger sets the logger for the Reader.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: Entity counts and durations of completed reads (production-safe)
// Warn level: Non-critical issues like cursor release failures
// Error level: Failures that abort a read.
func WithLogger(logger entityreader.Logger) Option {
	return func(r *Reader) error {
		r.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Reader.
// The contextual logger receives the same messages as the Logger, together with the context
// so that trace and span IDs can be correlated when tracing is enabled.
func WithContextualLogger(logger entityreader.ContextualLogger) Option {
	return func(r *Reader) error {
		r.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Reader.
// The collector receives read durations, emitted entity counts, suppressed duplicate counts, and errors.
func WithMetrics(collector entityreader.MetricsCollector) Option {
	return func(r *Reader) error {
		r.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Reader.
// One span is created per read pass. It ends when the stream is exhausted, fails, or is closed.
func WithTracing(collector entityreader.TracingCollector) Option {
	return func(r *Reader) error {
		r.tracingCollector = collector
		return nil
	}
}
