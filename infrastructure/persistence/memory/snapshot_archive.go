package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tmdt-buw/plasma-sub002/domain/versioning"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

type archivedSnapshot struct {
	revision versioning.Revision
	payload  []byte
}

// SnapshotArchive keeps archived snapshots in process memory
type SnapshotArchive struct {
	mu      sync.RWMutex
	streams map[string]map[int]archivedSnapshot
}

// NewSnapshotArchive creates an empty archive
func NewSnapshotArchive() *SnapshotArchive {
	return &SnapshotArchive{streams: make(map[string]map[int]archivedSnapshot)}
}

// Save stores payload under the revision's stream and number
func (a *SnapshotArchive) Save(ctx context.Context, rev versioning.Revision, payload []byte) error {
	if rev.StreamID == "" || rev.Number < 1 {
		return fmt.Errorf("invalid revision %q/%d", rev.StreamID, rev.Number)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	stream, ok := a.streams[rev.StreamID]
	if !ok {
		stream = make(map[int]archivedSnapshot)
		a.streams[rev.StreamID] = stream
	}
	stream[rev.Number] = archivedSnapshot{revision: rev, payload: append([]byte(nil), payload...)}
	return nil
}

// Load lists the revisions of a stream ordered by number
func (a *SnapshotArchive) Load(ctx context.Context, streamID string) ([]versioning.Revision, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stream := a.streams[streamID]
	out := make([]versioning.Revision, 0, len(stream))
	for _, snap := range stream {
		out = append(out, snap.revision)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// Payload returns the stored snapshot of one revision
func (a *SnapshotArchive) Payload(ctx context.Context, streamID string, number int) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap, ok := a.streams[streamID][number]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("revision %s/%d", streamID, number))
	}
	return append([]byte(nil), snap.payload...), nil
}
