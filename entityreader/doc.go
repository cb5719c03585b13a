// Package entityreader provides the core abstractions for reading versioned entities
// as they looked at a given point in time.
//
// A revision table stores every historical revision of an entity, keyed by an identifier
// and a revision timestamp. A snapshot read extracts exactly one row per identifier:
// the latest visible revision whose timestamp is strictly before the snapshot instant.
//
// This package defines the storage-agnostic parts of such a read:
//   - Entity types: Node, Segment, Tag, Tags
//   - SequenceState: the fold state that enforces ascending identifiers and
//     suppresses exact-duplicate (identifier, timestamp) rows
//   - Stream: a lazy, pull-based, non-restartable sequence composed of a RowCursor,
//     a DecodeFunc and a KeyFunc
//   - The error taxonomy (ErrConnectivity, ErrQueryExecution, ErrMalformedRow,
//     ErrOrderingViolation, ErrMultipleRevisions)
//   - Dependency-free observability interfaces (Logger, ContextualLogger,
//     MetricsCollector, TracingCollector)
//
// Common usage pattern:
//
//	stream, err := reader.ReadNodes(ctx, snapshotInstant)
//	if err != nil {
//		// handle error
//	}
//	defer stream.Close()
//
//	for node, err := range stream.All(ctx) {
//		if err != nil {
//			// the read pass is aborted, every error is fatal
//		}
//		// use node
//	}
package entityreader
