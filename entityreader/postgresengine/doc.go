// Package postgresengine provides a PostgreSQL implementation of the entityreader snapshot read.
//
// A read pass selects, for every identifier of a revision table, the latest visible revision strictly
// before the snapshot instant and streams it in ascending identifier order. Rows are pulled from a
// server-side cursor in batches, inside a read-only REPEATABLE READ transaction, so memory use is bounded
// by the fetch size and not by the table size.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX), each with an optional read replica
//   - Node and segment revision tables with configurable names
//   - Pluggable tag parsing (embedded "k=v;k=v" format by default, JSON via tags.ParseJSON)
//   - Dual-logger support, metrics and tracing through dependency-free interfaces
//
// Usage examples:
//
//	// Basic usage
//	db, _ := pgxpool.New(context.Background(), dsn)
//	reader, _ := postgresengine.NewReaderFromPGXPool(db)
//
//	// With custom tables, a smaller fetch size and JSON tags
//	reader, _ := postgresengine.NewReaderFromPGXPool(
//		db,
//		postgresengine.WithNodesTableName("node_revisions"),
//		postgresengine.WithFetchSize(500),
//		postgresengine.WithTagParser(tags.ParseJSON),
//		postgresengine.WithLogger(slog.Default()),
//	)
//
//	stream, _ := reader.ReadNodes(ctx, snapshotInstant)
//	defer stream.Close()
//
//	for stream.Next(ctx) {
//		node := stream.Entity()
//		// ...
//	}
//	if err := stream.Err(); err != nil {
//		// the read pass was aborted
//	}
package postgresengine
