package adapters

import (
	"context"
	"database/sql"
	"errors"
)

// SQLAdapter implements DBAdapter for sql.DB.
type SQLAdapter struct {
	db        *sql.DB
	replicaDB *sql.DB // optional replica for eventually consistent reads
}

// NewSQLAdapter creates a new SQL adapter.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// NewSQLAdapterWithReplica creates a new SQL adapter with a primary and a replica database.
func NewSQLAdapterWithReplica(db *sql.DB, replica *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, replicaDB: replica}
}

// BeginReadOnly starts a read-only REPEATABLE READ transaction.
//
// database/sql binds the transaction to ctx: when ctx is canceled, the transaction is rolled back.
func (s *SQLAdapter) BeginReadOnly(ctx context.Context, useReplica bool) (DBTx, error) {
	db := s.db

	if useReplica && s.replicaDB != nil {
		db = s.replicaDB
	}

	tx, err := db.BeginTx(ctx, readOnlyTxOptions())
	if err != nil {
		return nil, err
	}

	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (s *sqlTx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.tx.ExecContext(ctx, query, args...)

	return err
}

func (s *sqlTx) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := s.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

func (s *sqlTx) Commit(_ context.Context) error {
	return s.tx.Commit()
}

// Rollback rolls the transaction back. A transaction that database/sql already ended is not an error.
func (s *sqlTx) Rollback(_ context.Context) error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}
