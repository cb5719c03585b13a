package adapters

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter implements DBAdapter for sqlx.DB.
type SQLXAdapter struct {
	db        *sqlx.DB
	replicaDB *sqlx.DB // optional replica for eventually consistent reads
}

// NewSQLXAdapter creates a new SQLX adapter.
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

// NewSQLXAdapterWithReplica creates a new SQLX adapter with a primary and a replica database.
func NewSQLXAdapterWithReplica(db *sqlx.DB, replica *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db, replicaDB: replica}
}

// BeginReadOnly starts a read-only REPEATABLE READ transaction using sqlx.DB.
func (s *SQLXAdapter) BeginReadOnly(ctx context.Context, useReplica bool) (DBTx, error) {
	db := s.db

	if useReplica && s.replicaDB != nil {
		db = s.replicaDB
	}

	tx, err := db.BeginTxx(ctx, readOnlyTxOptions())
	if err != nil {
		return nil, err
	}

	return &sqlxTx{tx: tx}, nil
}

// sqlxTx wraps sqlx.Tx to implement the DBTx interface.
type sqlxTx struct {
	tx *sqlx.Tx
}

// Exec executes a statement without result rows.
func (s *sqlxTx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.tx.ExecContext(ctx, query, args...)

	return err
}

// Query executes a statement using sqlx and returns the wrapped rows.
func (s *sqlxTx) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := s.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows.Rows}, nil
}

// Commit commits the transaction.
func (s *sqlxTx) Commit(_ context.Context) error {
	return s.tx.Commit()
}

// Rollback rolls the transaction back. A transaction that database/sql already ended is not an error.
func (s *sqlxTx) Rollback(_ context.Context) error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}
