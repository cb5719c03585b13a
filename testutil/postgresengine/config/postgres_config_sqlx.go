package config

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

// PostgresSQLXSingleConfig creates a configured *sqlx.DB for a single database.
func PostgresSQLXSingleConfig() (*sqlx.DB, error) {
	return openSQLX(PostgresSingleDSN())
}

// PostgresSQLXPrimaryConfig creates a configured *sqlx.DB for the primary node of a replicated database.
func PostgresSQLXPrimaryConfig() (*sqlx.DB, error) {
	return openSQLX(PostgresPrimaryDSN())
}

// PostgresSQLXReplicaConfig creates a configured *sqlx.DB for the replica node of a replicated database.
func PostgresSQLXReplicaConfig() (*sqlx.DB, error) {
	return openSQLX(PostgresReplicaDSN())
}

func openSQLX(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, dsn)
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
