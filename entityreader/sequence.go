package entityreader

import (
	"fmt"
	"time"
)

// GuardPhase is the phase of a SequenceState.
type GuardPhase int

const (
	// AwaitingFirst means no row has been accepted yet.
	AwaitingFirst GuardPhase = iota

	// Tracking means the last accepted identifier and timestamp are known.
	Tracking
)

// String provides a string representation of GuardPhase for logging and debugging.
func (p GuardPhase) String() string {
	switch p {
	case AwaitingFirst:
		return "awaiting_first"
	case Tracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// Verdict tells whether an accepted row should be emitted.
type Verdict int

const (
	// VerdictUsable means the row is the first one for its identifier and must be emitted.
	VerdictUsable Verdict = iota

	// VerdictDuplicate means the row repeats the previous (identifier, timestamp) pair and must be dropped.
	VerdictDuplicate
)

// SequenceState is the rolling state of one read pass.
//
// It is a value: Accept never mutates the receiver but returns the next state,
// so the single-pass nature of a read is carried by whoever threads the state through the rows.
type SequenceState struct {
	phase         GuardPhase
	lastID        EntityIDUint
	lastTimestamp time.Time
}

// NewSequenceState returns the initial state of a read pass.
func NewSequenceState() SequenceState {
	return SequenceState{phase: AwaitingFirst}
}

func (s SequenceState) Phase() GuardPhase {
	return s.phase
}

func (s SequenceState) LastID() EntityIDUint {
	return s.lastID
}

func (s SequenceState) LastTimestamp() time.Time {
	return s.lastTimestamp
}

// Accept validates the next decoded row against the state.
//
//   - id lower than the last id: ErrOrderingViolation
//   - same id with a different timestamp: ErrMultipleRevisions
//   - same id and same timestamp: VerdictDuplicate, the state is unchanged
//   - higher id (or the first row of the pass): VerdictUsable with the new state
//
// On error the returned state is the unchanged receiver.
func (s SequenceState) Accept(id EntityIDUint, timestamp time.Time) (SequenceState, Verdict, error) {
	if s.phase == AwaitingFirst {
		return s.track(id, timestamp), VerdictUsable, nil
	}

	switch {
	case id < s.lastID:
		return s, VerdictUsable, fmt.Errorf(
			"%w: id %d must be greater or equal to previous id %d",
			ErrOrderingViolation,
			id,
			s.lastID,
		)

	case id == s.lastID:
		if !timestamp.Equal(s.lastTimestamp) {
			return s, VerdictUsable, fmt.Errorf(
				"%w: id %d has revisions at %s and %s",
				ErrMultipleRevisions,
				id,
				s.lastTimestamp.Format(time.RFC3339Nano),
				timestamp.Format(time.RFC3339Nano),
			)
		}

		return s, VerdictDuplicate, nil

	default:
		return s.track(id, timestamp), VerdictUsable, nil
	}
}

func (s SequenceState) track(id EntityIDUint, timestamp time.Time) SequenceState {
	return SequenceState{
		phase:         Tracking,
		lastID:        id,
		lastTimestamp: timestamp,
	}
}
