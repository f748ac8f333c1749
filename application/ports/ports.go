package ports

import (
	"context"
	"time"

	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
	"github.com/tmdt-buw/plasma-sub002/domain/events"
	"github.com/tmdt-buw/plasma-sub002/domain/versioning"
)

// DataSourceRepository holds the analysis state of data sources
type DataSourceRepository interface {
	// GetOrCreate returns the data source, creating it with create if absent
	GetOrCreate(ctx context.Context, id string, create func() *aggregates.DataSource) (*aggregates.DataSource, error)

	// GetByID retrieves a data source, failing with a not found error
	GetByID(ctx context.Context, id string) (*aggregates.DataSource, error)

	// List returns the ids of all data sources
	List(ctx context.Context) ([]string, error)

	// Delete removes a data source
	Delete(ctx context.Context, id string) error
}

// SessionRepository holds open modeling sessions
type SessionRepository interface {
	// Save stores a new session
	Save(ctx context.Context, session *aggregates.Session) error

	// GetByID retrieves a session, failing with a not found error
	GetByID(ctx context.Context, id valueobjects.Identity) (*aggregates.Session, error)

	// Delete removes a session
	Delete(ctx context.Context, id valueobjects.Identity) error
}

// SnapshotArchive persists the wire form of pushed snapshots.
// This is a port in hexagonal architecture - the services don't know about the storage engine
type SnapshotArchive interface {
	// Save stores payload under the stream and number of rev
	Save(ctx context.Context, rev versioning.Revision, payload []byte) error

	// Load lists the revisions of a stream ordered by number
	Load(ctx context.Context, streamID string) ([]versioning.Revision, error)

	// Payload returns the stored snapshot of one revision
	Payload(ctx context.Context, streamID string, number int) ([]byte, error)
}

// EventPublisher publishes domain events after a state change
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, batch []events.DomainEvent) error
}

// Metrics records service level measurements
type Metrics interface {
	SamplesIngested(dataSourceID string, accepted, rejected int)
	OperationInvoked(operation string, err error, elapsed time.Duration)
	StackDepth(kind, streamID string, depth int)
	ArchiveFailed(kind string)
}

// NopMetrics discards all measurements
type NopMetrics struct{}

func (NopMetrics) SamplesIngested(string, int, int) {}

func (NopMetrics) OperationInvoked(string, error, time.Duration) {}

func (NopMetrics) StackDepth(string, string, int) {}

func (NopMetrics) ArchiveFailed(string) {}
