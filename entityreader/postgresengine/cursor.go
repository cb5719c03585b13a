package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/postgresengine/internal/adapters"
)

const (
	cursorNamePrefix      = "entityreader_"
	declareCursorTemplate = "DECLARE %s NO SCROLL CURSOR FOR %s"
	fetchForwardTemplate  = "FETCH FORWARD %d FROM %s"
	closeCursorTemplate   = "CLOSE %s"
	releaseTimeout        = 5 * time.Second
)

// serverCursor streams the rows of a snapshot query through a server-side cursor.
//
// The cursor lives inside a read-only REPEATABLE READ transaction, so all batches see the same snapshot.
// At most one batch of fetchSize rows is held client-side at any time.
type serverCursor struct {
	tx         adapters.DBTx
	releaseCtx context.Context
	name       string
	fetchSQL   string
	fetchSize  int
	batch      adapters.DBRows
	batchRows  int
	lastBatch  bool
	err        error
	aborted    bool
	closed     bool
	closeErr   error
}

// openCursor begins the transaction and declares the cursor for sqlQuery. No rows are fetched yet.
func openCursor(
	ctx context.Context,
	db adapters.DBAdapter,
	useReplica bool,
	sqlQuery string,
	args []any,
	fetchSize int,
) (*serverCursor, error) {

	tx, beginErr := db.BeginReadOnly(ctx, useReplica)
	if beginErr != nil {
		return nil, errors.Join(entityreader.ErrConnectivity, beginErr)
	}

	name := newCursorName()

	if declareErr := tx.Exec(ctx, fmt.Sprintf(declareCursorTemplate, name, sqlQuery), args...); declareErr != nil {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()

		if rollbackErr := tx.Rollback(releaseCtx); rollbackErr != nil {
			return nil, errors.Join(classifyStatementError(declareErr), rollbackErr)
		}

		return nil, classifyStatementError(declareErr)
	}

	return &serverCursor{
		tx:         tx,
		releaseCtx: context.WithoutCancel(ctx),
		name:       name,
		fetchSQL:   fmt.Sprintf(fetchForwardTemplate, fetchSize, name),
		fetchSize:  fetchSize,
	}, nil
}

// Next advances to the next row, fetching a new batch when the current one is drained.
// A batch shorter than fetchSize is the last one; no further FETCH is issued after it.
func (c *serverCursor) Next(ctx context.Context) bool {
	if c.closed || c.err != nil {
		return false
	}

	for {
		if c.batch != nil {
			if c.batch.Next() {
				c.batchRows++
				return true
			}

			if !c.finishBatch() {
				return false
			}
		}

		if c.lastBatch {
			return false
		}

		rows, queryErr := c.tx.Query(ctx, c.fetchSQL)
		if queryErr != nil {
			c.err = classifyStatementError(queryErr)
			return false
		}

		c.batch = rows
		c.batchRows = 0
	}
}

func (c *serverCursor) finishBatch() bool {
	rowsErr := c.batch.Err()
	closeErr := c.batch.Close()
	c.batch = nil

	if err := errors.Join(rowsErr, closeErr); err != nil {
		c.err = classifyStatementError(err)
		return false
	}

	if c.batchRows < c.fetchSize {
		c.lastBatch = true
	}

	return true
}

// Scan copies the columns of the current row into dest.
func (c *serverCursor) Scan(dest ...any) error {
	if c.batch == nil {
		return errors.New("scan called without a current row")
	}

	return c.batch.Scan(dest...)
}

// Err returns the error that ended the iteration, if any.
func (c *serverCursor) Err() error {
	return c.err
}

// Abort marks the read pass as failed so that Close rolls the transaction back.
func (c *serverCursor) Abort() {
	c.aborted = true
}

// Close releases the cursor and ends the transaction.
//
// After a failure the transaction is rolled back, otherwise the cursor is closed and the transaction committed.
// Release statements run on a context detached from cancellation, bounded by releaseTimeout.
func (c *serverCursor) Close() error {
	if c.closed {
		return c.closeErr
	}

	c.closed = true

	ctx, cancel := context.WithTimeout(c.releaseCtx, releaseTimeout)
	defer cancel()

	var batchCloseErr error
	if c.batch != nil {
		batchCloseErr = c.batch.Close()
		c.batch = nil
	}

	if c.err != nil || c.aborted || batchCloseErr != nil {
		c.closeErr = c.rollback(ctx, batchCloseErr)
		return c.closeErr
	}

	if closeCursorErr := c.tx.Exec(ctx, fmt.Sprintf(closeCursorTemplate, c.name)); closeCursorErr != nil {
		c.closeErr = c.rollback(ctx, closeCursorErr)
		return c.closeErr
	}

	if commitErr := c.tx.Commit(ctx); commitErr != nil {
		c.closeErr = errors.Join(entityreader.ErrConnectivity, commitErr)
	}

	return c.closeErr
}

func (c *serverCursor) rollback(ctx context.Context, cause error) error {
	rollbackErr := c.tx.Rollback(ctx)

	if cause == nil && rollbackErr == nil {
		return nil
	}

	return errors.Join(entityreader.ErrConnectivity, cause, rollbackErr)
}

// classifyStatementError maps an error from DECLARE or FETCH onto the error taxonomy:
// a rejection by the server is a query execution error, everything else a connectivity error.
func classifyStatementError(err error) error {
	if _, isServerErr := adapters.ServerErrorCode(err); isServerErr {
		return errors.Join(entityreader.ErrQueryExecution, err)
	}

	return errors.Join(entityreader.ErrConnectivity, err)
}

func newCursorName() string {
	return pgx.Identifier{cursorNamePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")}.Sanitize()
}
