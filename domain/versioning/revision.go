package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Revision describes one archived snapshot of a stream. A stream is either a
// data source schema history or a modeling session history.
type Revision struct {
	StreamID    string    `json:"stream_id" dynamodbav:"StreamID"`
	Number      int       `json:"number" dynamodbav:"Number"`
	Kind        string    `json:"kind" dynamodbav:"Kind"`
	Checksum    string    `json:"checksum" dynamodbav:"Checksum"`
	NodeCount   int       `json:"node_count" dynamodbav:"NodeCount"`
	FaultCount  int       `json:"fault_count" dynamodbav:"FaultCount"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"CreatedAt"`
	Description string    `json:"description" dynamodbav:"Description"`
}

// Revision kinds
const (
	KindSchema = "schema"
	KindModel  = "model"
)

// NewRevision describes payload, the wire encoding of a snapshot.
func NewRevision(streamID, kind string, number int, payload []byte, description string) (Revision, error) {
	if streamID == "" {
		return Revision{}, fmt.Errorf("stream id cannot be empty")
	}
	if number < 1 {
		return Revision{}, fmt.Errorf("revision number must be positive, got %d", number)
	}
	return Revision{
		StreamID:    streamID,
		Number:      number,
		Kind:        kind,
		Checksum:    Checksum(payload),
		CreatedAt:   time.Now().UTC(),
		Description: description,
	}, nil
}

// Checksum is the hex SHA-256 of payload
func Checksum(payload []byte) string {
	hash := sha256.Sum256(payload)
	return hex.EncodeToString(hash[:])
}

// Verify reports whether payload matches the recorded checksum
func (r Revision) Verify(payload []byte) bool {
	return r.Checksum == Checksum(payload)
}

// RevisionDiff summarizes the change between two revisions of one stream
type RevisionDiff struct {
	FromRevision int           `json:"from_revision"`
	ToRevision   int           `json:"to_revision"`
	NodeDelta    int           `json:"node_delta"`
	FaultDelta   int           `json:"fault_delta"`
	Changed      bool          `json:"changed"`
	TimeDiff     time.Duration `json:"time_diff"`
}

// CompareRevisions diffs two revisions of the same stream
func CompareRevisions(from, to Revision) (RevisionDiff, error) {
	if from.StreamID != to.StreamID {
		return RevisionDiff{}, fmt.Errorf("revisions belong to different streams: %s, %s", from.StreamID, to.StreamID)
	}
	return RevisionDiff{
		FromRevision: from.Number,
		ToRevision:   to.Number,
		NodeDelta:    to.NodeCount - from.NodeCount,
		FaultDelta:   to.FaultCount - from.FaultCount,
		Changed:      from.Checksum != to.Checksum,
		TimeDiff:     to.CreatedAt.Sub(from.CreatedAt),
	}, nil
}
