// Package config provides PostgreSQL database configuration for entity reader integration tests.
//
// This package contains factory functions for creating database connections
// using the reader's supported PostgreSQL adapters (pgx.Pool, sql.DB, sqlx.DB).
// DSNs default to a local test database and can be overridden with environment variables,
// both for a single-node and for a primary/replica setup.
//
// Unlike production code, the constructors ping the database, so that tests can skip
// when no database is reachable.
package config
