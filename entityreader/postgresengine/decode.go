package postgresengine

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
)

// nodeRow holds the raw column values of a node revision in select order.
type nodeRow struct {
	id        int64
	timestamp time.Time
	latitude  float64
	longitude float64
	tags      sql.NullString
}

// segmentRow holds the raw column values of a segment revision in select order.
type segmentRow struct {
	id        int64
	timestamp time.Time
	nodeA     int64
	nodeB     int64
	tags      sql.NullString
}

// nodeDecoder returns a DecodeFunc that converts a node revision row into an entityreader.Node.
// A NULL tags column is handed to parseTags as the empty string.
func nodeDecoder(parseTags entityreader.TagParser) entityreader.DecodeFunc[entityreader.Node] {
	return func(row entityreader.RowScanner) (entityreader.Node, error) {
		raw := nodeRow{}

		if scanErr := row.Scan(&raw.id, &raw.timestamp, &raw.latitude, &raw.longitude, &raw.tags); scanErr != nil {
			return entityreader.Node{}, errors.Join(entityreader.ErrMalformedRow, scanErr)
		}

		id, idErr := toEntityID(colID, raw.id)
		if idErr != nil {
			return entityreader.Node{}, idErr
		}

		return entityreader.Node{
			ID:        id,
			Timestamp: raw.timestamp,
			Latitude:  raw.latitude,
			Longitude: raw.longitude,
			Tags:      parseTags(raw.tags.String),
		}, nil
	}
}

// segmentDecoder returns a DecodeFunc that converts a segment revision row into an entityreader.Segment.
func segmentDecoder(parseTags entityreader.TagParser) entityreader.DecodeFunc[entityreader.Segment] {
	return func(row entityreader.RowScanner) (entityreader.Segment, error) {
		raw := segmentRow{}

		if scanErr := row.Scan(&raw.id, &raw.timestamp, &raw.nodeA, &raw.nodeB, &raw.tags); scanErr != nil {
			return entityreader.Segment{}, errors.Join(entityreader.ErrMalformedRow, scanErr)
		}

		id, idErr := toEntityID(colID, raw.id)
		if idErr != nil {
			return entityreader.Segment{}, idErr
		}

		nodeA, nodeAErr := toEntityID(colNodeA, raw.nodeA)
		if nodeAErr != nil {
			return entityreader.Segment{}, nodeAErr
		}

		nodeB, nodeBErr := toEntityID(colNodeB, raw.nodeB)
		if nodeBErr != nil {
			return entityreader.Segment{}, nodeBErr
		}

		return entityreader.Segment{
			ID:        id,
			Timestamp: raw.timestamp,
			NodeA:     nodeA,
			NodeB:     nodeB,
			Tags:      parseTags(raw.tags.String),
		}, nil
	}
}

// toEntityID converts a stored BIGINT into an identifier. Identifiers are unsigned.
func toEntityID(column string, stored int64) (entityreader.EntityIDUint, error) {
	if stored < 0 {
		return 0, fmt.Errorf("%w: column %s holds negative identifier %d", entityreader.ErrMalformedRow, column, stored)
	}

	return entityreader.EntityIDUint(stored), nil
}
