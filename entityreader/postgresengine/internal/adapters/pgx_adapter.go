package adapters

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXAdapter implements DBAdapter for pgxpool.Pool.
type PGXAdapter struct {
	pool        *pgxpool.Pool
	replicaPool *pgxpool.Pool // optional replica for eventually consistent reads
}

// NewPGXAdapter creates a new PGX adapter with a primary pool.
func NewPGXAdapter(pool *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{pool: pool}
}

// NewPGXAdapterWithReplica creates a new PGX adapter with a primary pool and a replica pool.
func NewPGXAdapterWithReplica(pool *pgxpool.Pool, replica *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{pool: pool, replicaPool: replica}
}

// BeginReadOnly starts a read-only REPEATABLE READ transaction on the replica pool if requested and available,
// otherwise on the primary pool.
func (p *PGXAdapter) BeginReadOnly(ctx context.Context, useReplica bool) (DBTx, error) {
	pool := p.pool // default to primary

	if useReplica && p.replicaPool != nil {
		pool = p.replicaPool
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, err
	}

	return &pgxTx{tx: tx}, nil
}

// pgxTx wraps pgx.Tx to implement the DBTx interface.
//
// Every statement runs in QueryExecModeDescribeExec: cursor statements carry a unique cursor name,
// so caching them as prepared statements would only fill the statement cache.
type pgxTx struct {
	tx pgx.Tx
}

// Exec executes a statement without result rows.
func (p *pgxTx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := p.tx.Exec(ctx, query, withExecMode(args)...)

	return err
}

// Query executes a statement and returns the wrapped result rows.
func (p *pgxTx) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := p.tx.Query(ctx, query, withExecMode(args)...)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

// Commit commits the transaction.
func (p *pgxTx) Commit(ctx context.Context) error {
	return p.tx.Commit(ctx)
}

// Rollback rolls the transaction back. An already closed transaction is not an error.
func (p *pgxTx) Rollback(ctx context.Context) error {
	if err := p.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}

	return nil
}

func withExecMode(args []any) []any {
	return append([]any{pgx.QueryExecModeDescribeExec}, args...)
}

// pgxRows wraps pgx.Rows to implement the DBRows interface.
type pgxRows struct {
	rows pgx.Rows
}

// Next advances to the next row.
func (p *pgxRows) Next() bool {
	return p.rows.Next()
}

// Scan copies row values into provided destinations.
func (p *pgxRows) Scan(dest ...any) error {
	return p.rows.Scan(dest...)
}

// Err returns the error, if any, that was encountered during iteration.
func (p *pgxRows) Err() error {
	return p.rows.Err()
}

// Close closes the rows iterator.
func (p *pgxRows) Close() error {
	p.rows.Close()

	return p.rows.Err()
}
