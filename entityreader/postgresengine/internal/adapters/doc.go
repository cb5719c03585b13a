// Package adapters provide database adapter implementations for the PostgreSQL entity reader.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters open the same kind of transaction, a read-only
// transaction with REPEATABLE READ isolation, so that every batch fetched from a server-side cursor
// sees the same snapshot of the revision table.
//
// Each adapter can optionally carry a replica connection which is used when the caller asks for it.
package adapters
