package adapters

import "context"

// DBAdapter defines the interface for database operations needed by the entity reader.
type DBAdapter interface {
	// BeginReadOnly starts a read-only REPEATABLE READ transaction.
	// With useReplica set, the replica connection is used if one is configured.
	BeginReadOnly(ctx context.Context, useReplica bool) (DBTx, error)
}

// DBTx defines the interface for a running transaction.
type DBTx interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}
