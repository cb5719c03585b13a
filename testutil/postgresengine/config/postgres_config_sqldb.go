package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

const (
	driverName  = "postgres"
	pingTimeout = time.Second * 5
)

// PostgresSQLDBSingleConfig creates a configured *sql.DB for a single database.
func PostgresSQLDBSingleConfig() (*sql.DB, error) {
	return openSQLDB(PostgresSingleDSN())
}

// PostgresSQLDBPrimaryConfig creates a configured *sql.DB for the primary node of a replicated database.
func PostgresSQLDBPrimaryConfig() (*sql.DB, error) {
	return openSQLDB(PostgresPrimaryDSN())
}

// PostgresSQLDBReplicaConfig creates a configured *sql.DB for the replica node of a replicated database.
func PostgresSQLDBReplicaConfig() (*sql.DB, error) {
	return openSQLDB(PostgresReplicaDSN())
}

func openSQLDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	configureSQLPool(db)

	if pingErr := pingSQLDB(db); pingErr != nil {
		_ = db.Close()
		return nil, pingErr
	}

	return db, nil
}

// configureSQLPool applies the connection pool settings shared by sql.DB and sqlx.DB.
func configureSQLPool(db interface {
	SetMaxOpenConns(n int)
	SetMaxIdleConns(n int)
	SetConnMaxLifetime(d time.Duration)
	SetConnMaxIdleTime(d time.Duration)
}) {
	const defaultMaxOpenConnections = 20
	const defaultMaxIdleConnections = 2
	const defaultMaxConnLifetime = time.Hour
	const defaultMaxConnIdleTime = time.Minute * 5

	db.SetMaxOpenConns(defaultMaxOpenConnections)
	db.SetMaxIdleConns(defaultMaxIdleConnections)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)
}

func pingSQLDB(db interface {
	PingContext(ctx context.Context) error
}) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
