package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/postgresengine"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/testutil/postgresengine/config"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/testutil/postgresengine/helper"
)

// Engine type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// Wrapper interface to abstract over different engine types
type Wrapper interface {
	helper.Execer
	GetReader() *postgresengine.Reader
	AdapterType() string
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool   *pgxpool.Pool
	reader *postgresengine.Reader
}

func (e *PGXPoolWrapper) GetReader() *postgresengine.Reader {
	return e.reader
}

func (e *PGXPoolWrapper) AdapterType() string {
	return typePGXPool
}

func (e *PGXPoolWrapper) Exec(ctx context.Context, query string, args ...any) error {
	_, err := e.pool.Exec(ctx, query, args...)
	return err
}

func (e *PGXPoolWrapper) Close() {
	e.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db     *sql.DB
	reader *postgresengine.Reader
}

func (e *SQLDBWrapper) GetReader() *postgresengine.Reader {
	return e.reader
}

func (e *SQLDBWrapper) AdapterType() string {
	return typeSQLDB
}

func (e *SQLDBWrapper) Exec(ctx context.Context, query string, args ...any) error {
	_, err := e.db.ExecContext(ctx, query, args...)
	return err
}

func (e *SQLDBWrapper) Close() {
	_ = e.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db     *sqlx.DB
	reader *postgresengine.Reader
}

func (e *SQLXWrapper) GetReader() *postgresengine.Reader {
	return e.reader
}

func (e *SQLXWrapper) AdapterType() string {
	return typeSQLXDB
}

func (e *SQLXWrapper) Exec(ctx context.Context, query string, args ...any) error {
	_, err := e.db.ExecContext(ctx, query, args...)
	return err
}

func (e *SQLXWrapper) Close() {
	_ = e.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the appropriate wrapper based on the environment variable.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	return createWrapper(t, false, options...)
}

// CreateWrapperWithReplicaRouting creates a wrapper whose Reader has the test database registered as
// primary and as replica, so that reads with eventual consistency are routed through the replica path.
func CreateWrapperWithReplicaRouting(t testing.TB, options ...postgresengine.Option) Wrapper {
	return createWrapper(t, true, options...)
}

func createWrapper(t testing.TB, withReplica bool, options ...postgresengine.Option) Wrapper {
	engineTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch engineTypeFromEnv {
	case typePGXPool, "":
		poolConfig, err := config.PostgresPGXPoolSingleConfig()
		require.NoError(t, err, "error in the DB pool config")

		connPool, err := config.NewPGXPool(context.Background(), poolConfig)
		skipWhenUnreachable(t, err)

		var reader *postgresengine.Reader
		if withReplica {
			reader, err = postgresengine.NewReaderFromPGXPoolWithReplica(connPool, connPool, options...)
		} else {
			reader, err = postgresengine.NewReaderFromPGXPool(connPool, options...)
		}
		require.NoError(t, err, "error creating the reader")

		return &PGXPoolWrapper{pool: connPool, reader: reader}

	case typeSQLDB:
		db, err := config.PostgresSQLDBSingleConfig()
		skipWhenUnreachable(t, err)

		var reader *postgresengine.Reader
		if withReplica {
			reader, err = postgresengine.NewReaderFromSQLDBWithReplica(db, db, options...)
		} else {
			reader, err = postgresengine.NewReaderFromSQLDB(db, options...)
		}
		require.NoError(t, err, "error creating the reader")

		return &SQLDBWrapper{db: db, reader: reader}

	case typeSQLXDB:
		db, err := config.PostgresSQLXSingleConfig()
		skipWhenUnreachable(t, err)

		var reader *postgresengine.Reader
		if withReplica {
			reader, err = postgresengine.NewReaderFromSQLXWithReplica(db, db, options...)
		} else {
			reader, err = postgresengine.NewReaderFromSQLX(db, options...)
		}
		require.NoError(t, err, "error creating the reader")

		return &SQLXWrapper{db: db, reader: reader}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", engineTypeFromEnv))
	}
}

func skipWhenUnreachable(t testing.TB, err error) {
	if err != nil {
		t.Skipf("test database is not reachable: %v", err)
	}
}
