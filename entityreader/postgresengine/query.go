package postgresengine

import (
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
)

// EntityKind names the kind of entity a revision table holds.
type EntityKind string

const (
	KindNode    EntityKind = "node"
	KindSegment EntityKind = "segment"
)

// TableSchema describes a revision table: the entity kind, the table name, and the entity columns
// in the order the decoder scans them.
type TableSchema struct {
	Kind    EntityKind
	Table   string
	Columns []string
}

// NodeSchema returns the schema of a node revision table with the given name.
func NodeSchema(table string) TableSchema {
	return TableSchema{
		Kind:    KindNode,
		Table:   table,
		Columns: []string{colID, colTimestamp, colLatitude, colLongitude, colTags},
	}
}

// SegmentSchema returns the schema of a segment revision table with the given name.
func SegmentSchema(table string) TableSchema {
	return TableSchema{
		Kind:    KindSegment,
		Table:   table,
		Columns: []string{colID, colTimestamp, colNodeA, colNodeB, colTags},
	}
}

// BuildSnapshotQuery builds the statement that selects, for every identifier, the latest visible revision
// strictly before snapshot, ordered by ascending identifier:
//
//	SELECT n.<columns> FROM <table> AS n
//	INNER JOIN (SELECT id, MAX(timestamp) AS timestamp FROM <table> WHERE timestamp < $1 GROUP BY id) AS n2
//	ON n.id = n2.id AND n.timestamp = n2.timestamp
//	WHERE n.visible IS TRUE
//	ORDER BY n.id ASC
//
// The snapshot instant is the only bound argument. It is rounded up to the next whole microsecond, the
// resolution of timestamptz, so that drivers truncating or rounding the parameter cannot move the cut.
// An identifier whose latest revision is invisible is excluded; an older visible revision never resurfaces.
func BuildSnapshotQuery(schema TableSchema, snapshot time.Time) (string, []any, error) {
	if schema.Table == "" {
		return "", nil, entityreader.ErrEmptyTableName
	}

	builder := goqu.Dialect(dialectPostgres)
	revision := goqu.T(aliasRevision)
	latest := goqu.T(aliasLatest)

	latestRevisions := builder.
		From(schema.Table).
		Select(goqu.C(colID), goqu.MAX(colTimestamp).As(colTimestamp)).
		Where(goqu.C(colTimestamp).Lt(ceilToMicrosecond(snapshot))).
		GroupBy(colID)

	selectColumns := make([]any, 0, len(schema.Columns))
	for _, column := range schema.Columns {
		selectColumns = append(selectColumns, revision.Col(column))
	}

	selectStmt := builder.
		From(goqu.T(schema.Table).As(aliasRevision)).
		Select(selectColumns...).
		InnerJoin(
			latestRevisions.As(aliasLatest),
			goqu.On(
				revision.Col(colID).Eq(latest.Col(colID)),
				revision.Col(colTimestamp).Eq(latest.Col(colTimestamp)),
			),
		).
		Where(revision.Col(colVisible).IsTrue()).
		Order(revision.Col(colID).Asc()).
		Prepared(true)

	sqlQuery, args, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", nil, errors.Join(entityreader.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, args, nil
}

// ceilToMicrosecond returns the smallest whole microsecond not before t.
// Stored timestamps are whole microseconds, so ts < ceil(t) holds exactly when ts < t.
func ceilToMicrosecond(t time.Time) time.Time {
	truncated := t.Truncate(time.Microsecond)
	if truncated.Equal(t) {
		return truncated
	}

	return truncated.Add(time.Microsecond)
}
