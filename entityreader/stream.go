package entityreader

import (
	"context"
	"errors"
	"iter"
	"time"
)

// ErrStreamClosed is returned by Collect when the Stream was closed before.
var ErrStreamClosed = errors.New("stream is already closed")

// RowScanner gives access to the columns of the current raw row.
type RowScanner interface {
	Scan(dest ...any) error
}

// RowCursor is a forward-only, pull-based handle on raw rows owned by a storage engine.
//
// Next advances to the next row and reports false on exhaustion or failure; Err tells them apart.
// Close releases the engine-side resources, must be safe to call at any time, and must be idempotent.
type RowCursor interface {
	RowScanner
	Next(ctx context.Context) bool
	Err() error
	Close() error
}

// Aborter is implemented by cursors that release their resources differently when the read pass failed.
// Stream calls Abort before Close when decoding or sequence validation fails.
type Aborter interface {
	Abort()
}

// DecodeFunc converts the current raw row into an entity.
type DecodeFunc[T any] func(row RowScanner) (T, error)

// KeyFunc extracts the identifier and revision timestamp of an entity.
type KeyFunc[T any] func(entity T) (EntityIDUint, time.Time)

// StreamSummary describes a finished read pass.
type StreamSummary struct {
	Emitted    int
	Suppressed int
	Exhausted  bool
	Err        error
	ReleaseErr error
}

// StreamOption defines a functional option for configuring a Stream.
type StreamOption func(*streamConfig)

type streamConfig struct {
	observer func(StreamSummary)
}

// WithStreamObserver registers a function that is called exactly once when the read pass ends,
// either by exhaustion, by a fatal error, or by Close.
func WithStreamObserver(observer func(StreamSummary)) StreamOption {
	return func(c *streamConfig) {
		c.observer = observer
	}
}

// Stream is a lazy, finite, non-restartable sequence of entities of one kind.
//
// Each pulled row flows through decode, then through the SequenceState; only usable entities are
// yielded. Every error is fatal to the pass: the cursor is released and Next keeps returning false.
//
// A Stream is not safe for concurrent use.
type Stream[T any] struct {
	cursor     RowCursor
	decode     DecodeFunc[T]
	key        KeyFunc[T]
	observer   func(StreamSummary)
	state      SequenceState
	current    T
	err        error
	releaseErr error
	released   bool
	exhausted  bool
	emitted    int
	suppressed int
}

// NewStream composes a Stream from a cursor positioned before the first row.
func NewStream[T any](cursor RowCursor, decode DecodeFunc[T], key KeyFunc[T], options ...StreamOption) *Stream[T] {
	config := streamConfig{}
	for _, option := range options {
		option(&config)
	}

	return &Stream[T]{
		cursor:   cursor,
		decode:   decode,
		key:      key,
		observer: config.observer,
		state:    NewSequenceState(),
	}
}

// Next advances to the next usable entity. It blocks until the storage engine returns a row
// or signals the end of the stream.
func (s *Stream[T]) Next(ctx context.Context) bool {
	if s.released {
		return false
	}

	for s.cursor.Next(ctx) {
		entity, decodeErr := s.decode(s.cursor)
		if decodeErr != nil {
			s.fail(decodeErr)
			return false
		}

		id, timestamp := s.key(entity)

		nextState, verdict, acceptErr := s.state.Accept(id, timestamp)
		if acceptErr != nil {
			s.fail(acceptErr)
			return false
		}

		s.state = nextState

		if verdict == VerdictDuplicate {
			s.suppressed++
			continue
		}

		s.current = entity
		s.emitted++

		return true
	}

	if cursorErr := s.cursor.Err(); cursorErr != nil {
		s.fail(cursorErr)
		return false
	}

	s.exhausted = true
	s.release()

	return false
}

// Entity returns the entity the last successful Next advanced to.
func (s *Stream[T]) Entity() T {
	return s.current
}

// Err returns the fatal error that ended the read pass, if any.
func (s *Stream[T]) Err() error {
	return s.err
}

// Close releases the cursor. It is safe to call before exhaustion and more than once;
// every call returns the error from releasing the engine-side resources, if any.
func (s *Stream[T]) Close() error {
	s.release()

	return s.releaseErr
}

// Emitted returns the number of entities yielded so far.
func (s *Stream[T]) Emitted() int {
	return s.emitted
}

// Suppressed returns the number of exact-duplicate rows dropped so far.
func (s *Stream[T]) Suppressed() int {
	return s.suppressed
}

// All returns an iterator over the remaining entities for use with range-over-func.
// A fatal error is yielded once as the last element. The Stream is closed when the loop ends.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer func() { _ = s.Close() }()

		for s.Next(ctx) {
			if !yield(s.current, nil) {
				return
			}
		}

		if s.err != nil {
			var zero T
			yield(zero, s.err)
		}
	}
}

// Collect drains the Stream into a slice. It is meant for small reads and tests;
// it defeats the streaming contract for large tables.
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	if s.released && !s.exhausted && s.err == nil {
		return nil, ErrStreamClosed
	}

	entities := make([]T, 0)
	for entity, err := range s.All(ctx) {
		if err != nil {
			return entities, err
		}

		entities = append(entities, entity)
	}

	return entities, nil
}

func (s *Stream[T]) fail(err error) {
	s.err = err

	if aborter, ok := s.cursor.(Aborter); ok && !s.released {
		aborter.Abort()
	}

	s.release()
}

func (s *Stream[T]) release() {
	if s.released {
		return
	}

	s.released = true
	s.releaseErr = s.cursor.Close()

	// a pass that read every row but could not release its cursor still failed
	if s.exhausted && s.err == nil && s.releaseErr != nil {
		s.err = s.releaseErr
	}

	if s.observer != nil {
		s.observer(StreamSummary{
			Emitted:    s.emitted,
			Suppressed: s.suppressed,
			Exhausted:  s.exhausted,
			Err:        s.err,
			ReleaseErr: s.releaseErr,
		})
	}
}
