package entityreader

import "context"

// ConsistencyLevel defines where a snapshot read may be served from.
type ConsistencyLevel int

const (
	// StrongConsistency requires reads from the primary database. Revisions committed on the primary
	// before the snapshot instant are guaranteed to be visible. This is the default.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from a replica database. A lagging replica may miss revisions
	// that are older than the snapshot instant, which is acceptable for instants far enough in the past.
	EventualConsistency
)

// contextKey is a private type to prevent context key collisions.
type contextKey string

// ConsistencyLevelKey is the context key used to store consistency level preferences.
const ConsistencyLevelKey contextKey = "entityreader.consistency_level"

// WithStrongConsistency returns a context that signals reads must use the primary database.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that signals reads may use a replica database.
//
// Example usage:
//
//	ctx = entityreader.WithEventualConsistency(ctx)
//	stream, err := reader.ReadNodes(ctx, lastMidnight)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context.
// If no consistency level is set, it returns StrongConsistency.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

// String provides a string representation of ConsistencyLevel for logging and debugging.
func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
