package entityreader

import (
	"time"
)

// EntityIDUint is a type alias for uint64, representing the identifier of a logical entity.
type EntityIDUint = uint64

// Tag is one key/value attribute of an entity.
type Tag struct {
	Key   string
	Value string
}

// Tags holds the attributes of an entity in source order.
//
// Semantically Tags is a mapping; the order is only kept so that attributes can be
// written back the way they were read. Use Map for mapping semantics.
type Tags []Tag

// Map returns the attributes as a mapping. For repeated keys the last value wins.
// The result is never nil.
func (t Tags) Map() map[string]string {
	m := make(map[string]string, len(t))
	for _, tag := range t {
		m[tag.Key] = tag.Value
	}

	return m
}

// Get returns the value of the last attribute with the given key.
func (t Tags) Get(key string) (string, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Key == key {
			return t[i].Value, true
		}
	}

	return "", false
}

// TagParser decodes the raw attribute string of a revision row.
//
// Implementations must be pure and must never fail the read: empty or unparsable input
// yields empty Tags.
type TagParser func(raw string) Tags

/***** Node *****/

// Node is a point-like entity revision.
type Node struct {
	ID        EntityIDUint
	Timestamp time.Time
	Latitude  float64
	Longitude float64
	Tags      Tags
}

// Key returns the identifier and revision timestamp used for ordering and deduplication.
func (n Node) Key() (EntityIDUint, time.Time) {
	return n.ID, n.Timestamp
}

/***** Segment *****/

// Segment is a revision of a connection between two nodes.
type Segment struct {
	ID        EntityIDUint
	Timestamp time.Time
	NodeA     EntityIDUint
	NodeB     EntityIDUint
	Tags      Tags
}

// Key returns the identifier and revision timestamp used for ordering and deduplication.
func (s Segment) Key() (EntityIDUint, time.Time) {
	return s.ID, s.Timestamp
}
