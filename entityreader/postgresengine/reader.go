package postgresengine

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/postgresengine/internal/adapters"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/tags"
)

const (
	defaultNodesTableName     = "nodes"
	defaultSegmentsTableName  = "segments"
	defaultFetchSize          = 1000
	logMsgBuildQueryFailed    = "failed to build snapshot query"
	logMsgOpenCursorFailed    = "failed to open snapshot cursor"
	logMsgReadFailed          = "snapshot read aborted"
	logMsgReleaseCursorFailed = "failed to release snapshot cursor"
	logMsgReadCompleted       = "read completed"
	logMsgSQLExecuted         = "executed sql for: "
	logMsgOperation           = "entityreader operation: "
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrEntityKind         = "entity_kind"
	logAttrTable              = "table"
	logAttrSnapshot           = "snapshot"
	logAttrEntityCount        = "entity_count"
	logAttrSuppressedCount    = "suppressed_count"
	logAttrOutcome            = "outcome"
	logAttrErrorType          = "error_type"
	logAttrDurationMS         = "duration_ms"
	logActionDeclare          = "declare cursor"
	colID                     = "id"
	colTimestamp              = "timestamp"
	colLatitude               = "latitude"
	colLongitude              = "longitude"
	colNodeA                  = "node_a"
	colNodeB                  = "node_b"
	colTags                   = "tags"
	colVisible                = "visible"
	aliasRevision             = "n"
	aliasLatest               = "n2"
	dialectPostgres           = "postgres"
)

// Reader reads point-in-time snapshots of node and segment revision tables from PostgreSQL.
//
// A Reader is safe for concurrent use; every read pass gets its own transaction and server-side cursor.
type Reader struct {
	db                adapters.DBAdapter
	nodesTableName    string
	segmentsTableName string
	fetchSize         int
	parseTags         entityreader.TagParser
	logger            entityreader.Logger
	contextualLogger  entityreader.ContextualLogger
	metricsCollector  entityreader.MetricsCollector
	tracingCollector  entityreader.TracingCollector
}

// NewReaderFromPGXPool creates a new Reader using a pgx Pool with optional configuration.
func NewReaderFromPGXPool(db *pgxpool.Pool, options ...Option) (*Reader, error) {
	if db == nil {
		return nil, entityreader.ErrNilDatabaseConnection
	}

	return newReader(adapters.NewPGXAdapter(db), options...)
}

// NewReaderFromPGXPoolWithReplica creates a new Reader using a primary and a replica pgx Pool.
// The replica serves reads whose context carries entityreader.WithEventualConsistency.
func NewReaderFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Reader, error) {
	if db == nil {
		return nil, entityreader.ErrNilDatabaseConnection
	}

	return newReader(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewReaderFromSQLDB creates a new Reader using a sql.DB with optional configuration.
func NewReaderFromSQLDB(db *sql.DB, options ...Option) (*Reader, error) {
	if db == nil {
		return nil, entityreader.ErrNilDatabaseConnection
	}

	return newReader(adapters.NewSQLAdapter(db), options...)
}

// NewReaderFromSQLDBWithReplica creates a new Reader using a primary and a replica sql.DB.
func NewReaderFromSQLDBWithReplica(db *sql.DB, replica *sql.DB, options ...Option) (*Reader, error) {
	if db == nil {
		return nil, entityreader.ErrNilDatabaseConnection
	}

	return newReader(adapters.NewSQLAdapterWithReplica(db, replica), options...)
}

// NewReaderFromSQLX creates a new Reader using a sqlx.DB with optional configuration.
func NewReaderFromSQLX(db *sqlx.DB, options ...Option) (*Reader, error) {
	if db == nil {
		return nil, entityreader.ErrNilDatabaseConnection
	}

	return newReader(adapters.NewSQLXAdapter(db), options...)
}

// NewReaderFromSQLXWithReplica creates a new Reader using a primary and a replica sqlx.DB.
func NewReaderFromSQLXWithReplica(db *sqlx.DB, replica *sqlx.DB, options ...Option) (*Reader, error) {
	if db == nil {
		return nil, entityreader.ErrNilDatabaseConnection
	}

	return newReader(adapters.NewSQLXAdapterWithReplica(db, replica), options...)
}

func newReader(db adapters.DBAdapter, options ...Option) (*Reader, error) {
	r := Reader{
		db:                db,
		nodesTableName:    defaultNodesTableName,
		segmentsTableName: defaultSegmentsTableName,
		fetchSize:         defaultFetchSize,
		parseTags:         tags.ParseEmbedded,
	}

	for _, option := range options {
		if err := option(&r); err != nil {
			return nil, err
		}
	}

	return &r, nil
}

// ReadNodes opens a stream over the latest visible revision of every node strictly before snapshot,
// in ascending identifier order.
//
// The returned Stream must be closed. The transaction behind it is bound to ctx when the Reader
// was built from a sql.DB or sqlx.DB: canceling ctx aborts the stream.
func (r *Reader) ReadNodes(ctx context.Context, snapshot time.Time) (*entityreader.Stream[entityreader.Node], error) {
	return openStream(ctx, r, NodeSchema(r.nodesTableName), snapshot, nodeDecoder(r.parseTags), entityreader.Node.Key)
}

// ReadSegments opens a stream over the latest visible revision of every segment strictly before snapshot,
// in ascending identifier order. See ReadNodes.
func (r *Reader) ReadSegments(ctx context.Context, snapshot time.Time) (*entityreader.Stream[entityreader.Segment], error) {
	return openStream(ctx, r, SegmentSchema(r.segmentsTableName), snapshot, segmentDecoder(r.parseTags), entityreader.Segment.Key)
}

// openStream builds the snapshot query, opens the server-side cursor and composes the Stream.
// Observability of the read pass starts here and ends in the stream observer.
func openStream[T any](
	ctx context.Context,
	r *Reader,
	schema TableSchema,
	snapshot time.Time,
	decode entityreader.DecodeFunc[T],
	key entityreader.KeyFunc[T],
) (*entityreader.Stream[T], error) {

	tracer, ctx := r.startReadTracing(ctx, schema, snapshot)
	metrics := r.startReadMetrics(ctx, schema.Kind)
	start := time.Now()

	sqlQuery, args, buildErr := BuildSnapshotQuery(schema, snapshot)
	if buildErr != nil {
		r.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrTable, schema.Table)
		errorType := classifyErrorType(buildErr)
		metrics.recordError(errorType, time.Since(start))
		tracer.finishError(errorType, entityreader.StreamSummary{}, time.Since(start))

		return nil, buildErr
	}

	useReplica := entityreader.GetConsistencyLevel(ctx) == entityreader.EventualConsistency

	cursor, openErr := openCursor(ctx, r.db, useReplica, sqlQuery, args, r.fetchSize)
	duration := time.Since(start)
	r.logQueryWithDuration(ctx, sqlQuery, logActionDeclare, duration)

	if openErr != nil {
		errorType := classifyErrorType(openErr)
		r.logError(ctx, logMsgOpenCursorFailed, openErr, logAttrQuery, sqlQuery, logAttrErrorType, errorType)
		metrics.recordError(errorType, duration)
		tracer.finishError(errorType, entityreader.StreamSummary{}, duration)

		return nil, openErr
	}

	observer := r.observeReadPass(ctx, schema, snapshot, tracer, metrics, start)

	return entityreader.NewStream(cursor, decode, key, entityreader.WithStreamObserver(observer)), nil
}

// observeReadPass returns the stream observer that logs and records the end of a read pass.
func (r *Reader) observeReadPass(
	ctx context.Context,
	schema TableSchema,
	snapshot time.Time,
	tracer *readTracingObserver,
	metrics *readMetricsObserver,
	start time.Time,
) func(entityreader.StreamSummary) {

	return func(summary entityreader.StreamSummary) {
		duration := time.Since(start)

		if summary.ReleaseErr != nil && summary.Err == nil {
			r.logWarn(ctx, logMsgReleaseCursorFailed, logAttrError, summary.ReleaseErr.Error(), logAttrEntityKind, string(schema.Kind))
		}

		if summary.Err != nil {
			errorType := classifyErrorType(summary.Err)
			r.logError(
				ctx,
				logMsgReadFailed,
				summary.Err,
				logAttrEntityKind, string(schema.Kind),
				logAttrErrorType, errorType,
				logAttrEntityCount, summary.Emitted,
			)
			metrics.recordError(errorType, duration)
			tracer.finishError(errorType, summary, duration)

			return
		}

		r.logOperation(
			ctx,
			logMsgReadCompleted,
			logAttrEntityKind, string(schema.Kind),
			logAttrSnapshot, snapshot.Format(time.RFC3339Nano),
			logAttrEntityCount, summary.Emitted,
			logAttrSuppressedCount, summary.Suppressed,
			logAttrOutcome, outcomeOf(summary),
			logAttrDurationMS, toMilliseconds(duration),
		)
		metrics.recordSuccess(summary, duration)
		tracer.finishSuccess(summary, duration)
	}
}
