package helper

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	createNodesTableTemplate = `CREATE TABLE %s (
	id        BIGINT           NOT NULL,
	timestamp TIMESTAMPTZ      NOT NULL,
	latitude  DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	tags      TEXT,
	visible   BOOLEAN          NOT NULL
)`
	createSegmentsTableTemplate = `CREATE TABLE %s (
	id        BIGINT      NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	node_a    BIGINT      NOT NULL,
	node_b    BIGINT      NOT NULL,
	tags      TEXT,
	visible   BOOLEAN     NOT NULL
)`
	createIndexTemplate = "CREATE INDEX ON %s (id, timestamp)"
	dropTableTemplate   = "DROP TABLE IF EXISTS %s"

	// insertChunkSize keeps the bind parameters of one insert below the PostgreSQL limit of 65535.
	insertChunkSize = 1000
)

// Execer executes a statement without result rows. All database wrappers used in tests provide it.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// NodeRevision is one row of a node revision table.
type NodeRevision struct {
	ID        int64
	Timestamp time.Time
	Latitude  float64
	Longitude float64
	Tags      *string
	Visible   bool
}

// SegmentRevision is one row of a segment revision table.
type SegmentRevision struct {
	ID        int64
	Timestamp time.Time
	NodeA     int64
	NodeB     int64
	Tags      *string
	Visible   bool
}

// VisibleNode builds a visible node revision with the given tags in the embedded format.
func VisibleNode(id int64, timestamp time.Time, tags string) NodeRevision {
	return NodeRevision{ID: id, Timestamp: timestamp, Latitude: float64(id) / 10, Longitude: float64(id) / 20, Tags: &tags, Visible: true}
}

// DeletedNode builds an invisible node revision, which marks the node as deleted from its timestamp on.
func DeletedNode(id int64, timestamp time.Time) NodeRevision {
	return NodeRevision{ID: id, Timestamp: timestamp, Visible: false}
}

// VisibleSegment builds a visible segment revision between two nodes.
func VisibleSegment(id int64, timestamp time.Time, nodeA, nodeB int64, tags string) SegmentRevision {
	return SegmentRevision{ID: id, Timestamp: timestamp, NodeA: nodeA, NodeB: nodeB, Tags: &tags, Visible: true}
}

// GivenUniqueTableName returns a table name that no other test uses.
func GivenUniqueTableName(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// CreateNodesTableStatements returns the statements that (re)create an empty node revision table.
func CreateNodesTableStatements(table string) []string {
	return createTableStatements(table, createNodesTableTemplate)
}

// CreateSegmentsTableStatements returns the statements that (re)create an empty segment revision table.
func CreateSegmentsTableStatements(table string) []string {
	return createTableStatements(table, createSegmentsTableTemplate)
}

func createTableStatements(table string, template string) []string {
	identifier := pgx.Identifier{table}.Sanitize()

	return []string{
		fmt.Sprintf(dropTableTemplate, identifier),
		fmt.Sprintf(template, identifier),
		fmt.Sprintf(createIndexTemplate, identifier),
	}
}

// GivenNodesTable creates an empty node revision table and drops it when the test ends.
func GivenNodesTable(t testing.TB, ctx context.Context, db Execer, table string) { //nolint:revive
	givenTable(t, ctx, db, table, CreateNodesTableStatements(table))
}

// GivenSegmentsTable creates an empty segment revision table and drops it when the test ends.
func GivenSegmentsTable(t testing.TB, ctx context.Context, db Execer, table string) { //nolint:revive
	givenTable(t, ctx, db, table, CreateSegmentsTableStatements(table))
}

func givenTable(t testing.TB, ctx context.Context, db Execer, table string, statements []string) { //nolint:revive
	for _, statement := range statements {
		require.NoError(t, db.Exec(ctx, statement), "error in arranging test data")
	}

	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		dropStatement := fmt.Sprintf(dropTableTemplate, pgx.Identifier{table}.Sanitize())
		assert.NoError(t, db.Exec(cleanupCtx, dropStatement), "error in cleaning up test data")
	})
}

// GivenNodeRevisions inserts node revisions in the given order.
func GivenNodeRevisions(t testing.TB, ctx context.Context, db Execer, table string, revisions ...NodeRevision) { //nolint:revive
	rows := make([]any, 0, len(revisions))
	for _, revision := range revisions {
		rows = append(rows, goqu.Record{
			"id":        revision.ID,
			"timestamp": revision.Timestamp,
			"latitude":  revision.Latitude,
			"longitude": revision.Longitude,
			"tags":      nullableText(revision.Tags),
			"visible":   revision.Visible,
		})
	}

	givenRows(t, ctx, db, table, rows)
}

// GivenSegmentRevisions inserts segment revisions in the given order.
func GivenSegmentRevisions(t testing.TB, ctx context.Context, db Execer, table string, revisions ...SegmentRevision) { //nolint:revive
	rows := make([]any, 0, len(revisions))
	for _, revision := range revisions {
		rows = append(rows, goqu.Record{
			"id":        revision.ID,
			"timestamp": revision.Timestamp,
			"node_a":    revision.NodeA,
			"node_b":    revision.NodeB,
			"tags":      nullableText(revision.Tags),
			"visible":   revision.Visible,
		})
	}

	givenRows(t, ctx, db, table, rows)
}

func givenRows(t testing.TB, ctx context.Context, db Execer, table string, rows []any) { //nolint:revive
	if len(rows) == 0 {
		return
	}

	for chunk := range slices.Chunk(rows, insertChunkSize) {
		sqlQuery, args, err := goqu.Dialect("postgres").Insert(table).Rows(chunk...).Prepared(true).ToSQL()
		require.NoError(t, err, "error in arranging test data")
		require.NoError(t, db.Exec(ctx, sqlQuery, args...), "error in arranging test data")
	}
}

func nullableText(value *string) any {
	if value == nil {
		return nil
	}

	return *value
}
