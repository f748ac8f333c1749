package versioning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

func TestStackPushPopPushDropsRedoBranch(t *testing.T) {
	s := NewStack[string](nil)
	s.Push("A")
	s.Push("B")

	got, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, "A", got)

	s.Push("C")
	assert.Equal(t, []string{"A", "C"}, s.Snapshots())
	assert.Equal(t, 2, s.Cursor())

	cur, err := s.Peek()
	require.NoError(t, err)
	assert.Equal(t, "C", cur)

	_, err = s.Restore()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalidState(err))
	assert.Equal(t, 2, s.Cursor(), "failed restore leaves the stack unchanged")
}

func TestStackErrors(t *testing.T) {
	tests := []struct {
		name    string
		pushes  []string
		op      func(*Stack[string]) (string, error)
		wantMsg string
	}{
		{"peek empty", nil, (*Stack[string]).Peek, "no snapshot available"},
		{"pop empty", nil, (*Stack[string]).Pop, "no snapshot available"},
		{"pop at first", []string{"A"}, (*Stack[string]).Pop, "already on first version"},
		{"restore at latest", []string{"A", "B"}, (*Stack[string]).Restore, "already on latest version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStack[string](zap.NewNop())
			for _, p := range tt.pushes {
				s.Push(p)
			}
			_, err := tt.op(s)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsInvalidState(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, len(tt.pushes), s.Cursor())
		})
	}
}

func TestStackUndoRedo(t *testing.T) {
	s := NewStack[int](nil)
	for i := 1; i <= 3; i++ {
		s.Push(i)
	}
	assert.True(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	v, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	v, err = s.Pop()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.False(t, s.CanUndo())
	assert.True(t, s.CanRedo())

	v, err = s.Restore()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 3, s.Len())
}

func TestStackPeekRepairsCursor(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewStack[string](zap.New(core))
	s.Push("A")
	s.Push("B")

	for _, corrupt := range []int{0, -3, 9} {
		s.cursor = corrupt
		got, err := s.Peek()
		require.NoError(t, err)
		assert.Equal(t, "B", got)
		assert.Equal(t, 2, s.Cursor())
	}
	assert.Equal(t, 3, logs.Len())
}

func TestRevisionChecksum(t *testing.T) {
	payload := []byte(`{"type":"primitive"}`)
	r, err := NewRevision("ds-1", KindSchema, 1, payload, "finalized")
	require.NoError(t, err)

	assert.Len(t, r.Checksum, 64)
	assert.True(t, r.Verify(payload))
	assert.False(t, r.Verify([]byte(`{}`)))

	_, err = NewRevision("", KindSchema, 1, payload, "")
	assert.Error(t, err)
	_, err = NewRevision("ds-1", KindSchema, 0, payload, "")
	assert.Error(t, err)
}

func TestCompareRevisions(t *testing.T) {
	from := Revision{StreamID: "s", Number: 1, NodeCount: 3, Checksum: "a", CreatedAt: time.Unix(0, 0)}
	to := Revision{StreamID: "s", Number: 2, NodeCount: 5, FaultCount: 1, Checksum: "b", CreatedAt: time.Unix(60, 0)}

	diff, err := CompareRevisions(from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, diff.NodeDelta)
	assert.Equal(t, 1, diff.FaultDelta)
	assert.True(t, diff.Changed)
	assert.Equal(t, time.Minute, diff.TimeDiff)

	to.StreamID = "other"
	_, err = CompareRevisions(from, to)
	assert.Error(t, err)
}
