// Package postgreswrapper provides test utilities for abstracting over different PostgreSQL database adapters.
//
// The same integration tests run against pgx, sql.DB and sqlx.DB. The adapter is selected by the
// ADAPTER_TYPE environment variable (pgx.pool, sql.db or sqlx.db; pgx.pool when unset).
// Tests are skipped when the test database cannot be reached.
//
// Usage:
//
//	wrapper := CreateWrapperWithTestConfig(t, postgresengine.WithNodesTableName(table))
//	defer wrapper.Close()
//
//	helper.GivenNodesTable(t, ctx, wrapper, table)
//	stream, err := wrapper.GetReader().ReadNodes(ctx, snapshot)
package postgreswrapper
