package versioning

import (
	"go.uber.org/zap"

	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// Stack is an undo/redo history of snapshots. The cursor is 1-based and
// points at the current snapshot; 0 means the stack is empty. Snapshots after
// the cursor form the redo branch and are dropped by the next Push.
//
// Stack is not safe for concurrent use.
type Stack[T any] struct {
	snapshots []T
	cursor    int
	logger    *zap.Logger
}

// NewStack creates an empty stack
func NewStack[T any](logger *zap.Logger) *Stack[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stack[T]{logger: logger}
}

// Push makes snapshot the current one, discarding the redo branch.
func (s *Stack[T]) Push(snapshot T) {
	s.repair()
	if s.cursor < len(s.snapshots) {
		var zero T
		for i := s.cursor; i < len(s.snapshots); i++ {
			s.snapshots[i] = zero
		}
		s.snapshots = s.snapshots[:s.cursor]
	}
	s.snapshots = append(s.snapshots, snapshot)
	s.cursor = len(s.snapshots)
}

// Pop steps back one snapshot and returns it.
func (s *Stack[T]) Pop() (T, error) {
	var zero T
	if len(s.snapshots) == 0 {
		return zero, pkgerrors.NewInvalidStateError("no snapshot available")
	}
	s.repair()
	if s.cursor <= 1 {
		return zero, pkgerrors.NewInvalidStateError("already on first version")
	}
	s.cursor--
	return s.snapshots[s.cursor-1], nil
}

// Restore steps forward one snapshot and returns it.
func (s *Stack[T]) Restore() (T, error) {
	var zero T
	if len(s.snapshots) == 0 {
		return zero, pkgerrors.NewInvalidStateError("no snapshot available")
	}
	s.repair()
	if s.cursor >= len(s.snapshots) {
		return zero, pkgerrors.NewInvalidStateError("already on latest version")
	}
	s.cursor++
	return s.snapshots[s.cursor-1], nil
}

// Peek returns the current snapshot.
func (s *Stack[T]) Peek() (T, error) {
	var zero T
	if len(s.snapshots) == 0 {
		return zero, pkgerrors.NewInvalidStateError("no snapshot available")
	}
	s.repair()
	return s.snapshots[s.cursor-1], nil
}

// repair resets a cursor that left [1, len] to the last snapshot.
func (s *Stack[T]) repair() {
	if len(s.snapshots) == 0 {
		s.cursor = 0
		return
	}
	if s.cursor >= 1 && s.cursor <= len(s.snapshots) {
		return
	}
	s.logger.Warn("Version cursor out of range, resetting to latest snapshot",
		zap.Int("cursor", s.cursor),
		zap.Int("length", len(s.snapshots)))
	s.cursor = len(s.snapshots)
}

// Len returns the number of snapshots including the redo branch
func (s *Stack[T]) Len() int { return len(s.snapshots) }

// Cursor returns the 1-based position of the current snapshot
func (s *Stack[T]) Cursor() int { return s.cursor }

// CanUndo reports whether Pop would succeed
func (s *Stack[T]) CanUndo() bool { return len(s.snapshots) > 0 && s.cursor > 1 }

// CanRedo reports whether Restore would succeed
func (s *Stack[T]) CanRedo() bool { return s.cursor >= 1 && s.cursor < len(s.snapshots) }

// Snapshots returns all snapshots in push order
func (s *Stack[T]) Snapshots() []T {
	out := make([]T, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}
