package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/application/ports"
	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/events"
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	"github.com/tmdt-buw/plasma-sub002/domain/versioning"
)

// StreamID is the archive stream of a data source or session history
func StreamID(kind, id string) string {
	return kind + ":" + id
}

// recorder archives snapshots and publishes events. Both are best effort:
// failures are logged and counted, never returned.
type recorder struct {
	archive   ports.SnapshotArchive
	publisher ports.EventPublisher
	metrics   ports.Metrics
	logger    *zap.Logger
}

func newRecorder(archive ports.SnapshotArchive, publisher ports.EventPublisher, metrics ports.Metrics, logger *zap.Logger) recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return recorder{archive: archive, publisher: publisher, metrics: metrics, logger: logger}
}

func (r recorder) archiveSchema(ctx context.Context, kind, id string, number int, schema *aggregates.Schema, payload []byte, description string) {
	if r.archive == nil {
		return
	}
	rev, err := versioning.NewRevision(StreamID(kind, id), kind, number, payload, description)
	if err != nil {
		r.logger.Error("Failed to describe revision", zap.String("stream", StreamID(kind, id)), zap.Error(err))
		r.metrics.ArchiveFailed(kind)
		return
	}
	rev.NodeCount = countNodes(schema.Syntax())
	rev.FaultCount = len(schema.Faults())

	if err := r.archive.Save(ctx, rev, payload); err != nil {
		r.logger.Warn("Failed to archive snapshot",
			zap.String("stream", rev.StreamID),
			zap.Int("revision", rev.Number),
			zap.Error(err),
		)
		r.metrics.ArchiveFailed(kind)
		return
	}
	r.logger.Debug("Archived snapshot",
		zap.String("stream", rev.StreamID),
		zap.Int("revision", rev.Number),
		zap.String("checksum", rev.Checksum),
	)
}

func (r recorder) publish(ctx context.Context, event events.DomainEvent) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("Failed to publish event",
			zap.String("type", event.GetEventType()),
			zap.String("aggregate_id", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}

func (r recorder) revisions(ctx context.Context, kind, id string) ([]versioning.Revision, error) {
	if r.archive == nil {
		return []versioning.Revision{}, nil
	}
	return r.archive.Load(ctx, StreamID(kind, id))
}

func countNodes(root syntax.Node) int {
	count := 0
	syntax.Walk(root, func(syntax.Node) { count++ })
	return count
}
