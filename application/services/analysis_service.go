package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/application/ports"
	"github.com/tmdt-buw/plasma-sub002/domain/analysis"
	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/events"
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	"github.com/tmdt-buw/plasma-sub002/domain/versioning"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// DefaultSampleLimit caps the number of samples accepted in one request
const DefaultSampleLimit = 100

// AnalysisConfig holds the tunables of the analysis service
type AnalysisConfig struct {
	SampleLimit         int
	AggregatorThreshold int
}

// SampleError describes one rejected sample
type SampleError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// IngestResult summarizes one ingestion request
type IngestResult struct {
	DataSourceID string        `json:"dataSourceId"`
	Accepted     int           `json:"accepted"`
	Rejected     int           `json:"rejected"`
	Total        int           `json:"total"`
	Threshold    int           `json:"threshold"`
	Ready        bool          `json:"ready"`
	Errors       []SampleError `json:"errors,omitempty"`
}

// DataSourceStatus describes the analysis progress of a data source
type DataSourceStatus struct {
	DataSourceID string `json:"dataSourceId"`
	Samples      int    `json:"samples"`
	Rejected     int    `json:"rejected"`
	Threshold    int    `json:"threshold"`
	Ready        bool   `json:"ready"`
	Revisions    int    `json:"revisions"`
	Cursor       int    `json:"cursor"`
	CanUndo      bool   `json:"canUndo"`
	CanRedo      bool   `json:"canRedo"`
}

// AnalysisService aggregates samples per data source and keeps the history
// of finalized schemas.
type AnalysisService struct {
	repo     ports.DataSourceRepository
	recorder recorder
	logger   *zap.Logger

	mu  sync.RWMutex
	cfg AnalysisConfig
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(
	repo ports.DataSourceRepository,
	archive ports.SnapshotArchive,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	cfg AnalysisConfig,
	logger *zap.Logger,
) *AnalysisService {
	rec := newRecorder(archive, publisher, metrics, logger)
	s := &AnalysisService{repo: repo, recorder: rec, logger: rec.logger}
	s.Reconfigure(cfg)
	return s
}

// Reconfigure replaces the tunables. Thresholds of existing data sources are
// updated on their next ingestion.
func (s *AnalysisService) Reconfigure(cfg AnalysisConfig) {
	if cfg.SampleLimit <= 0 {
		cfg.SampleLimit = DefaultSampleLimit
	}
	if cfg.AggregatorThreshold <= 0 {
		cfg.AggregatorThreshold = analysis.DefaultThreshold
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.logger.Info("Analysis settings applied",
		zap.Int("sample_limit", cfg.SampleLimit),
		zap.Int("aggregator_threshold", cfg.AggregatorThreshold),
	)
}

// Config returns the current tunables
func (s *AnalysisService) Config() AnalysisConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *AnalysisService) dataSource(ctx context.Context, id string) (*aggregates.DataSource, error) {
	cfg := s.Config()
	return s.repo.GetOrCreate(ctx, id, func() *aggregates.DataSource {
		s.logger.Info("Creating data source", zap.String("data_source_id", id))
		return aggregates.NewDataSource(id, cfg.AggregatorThreshold, s.logger)
	})
}

// IngestSamples infers and aggregates raw JSON samples. Samples failing
// inference or merge are skipped and reported; the request only fails when
// no sample was accepted.
func (s *AnalysisService) IngestSamples(ctx context.Context, dataSourceID string, samples [][]byte) (*IngestResult, error) {
	nodes := make([]syntax.Node, len(samples))
	errs := make([]error, len(samples))
	for i, raw := range samples {
		nodes[i], errs[i] = syntax.InferJSON(raw)
	}
	return s.ingest(ctx, dataSourceID, nodes, errs)
}

// IngestNodes aggregates samples that were inferred elsewhere. A non-nil
// entry in inferErrs marks the sample at that index as rejected.
func (s *AnalysisService) IngestNodes(ctx context.Context, dataSourceID string, nodes []syntax.Node, inferErrs []error) (*IngestResult, error) {
	if inferErrs == nil {
		inferErrs = make([]error, len(nodes))
	}
	if len(inferErrs) != len(nodes) {
		return nil, pkgerrors.NewValidationError("one inference result per node is required")
	}
	return s.ingest(ctx, dataSourceID, nodes, inferErrs)
}

func (s *AnalysisService) ingest(ctx context.Context, dataSourceID string, nodes []syntax.Node, inferErrs []error) (*IngestResult, error) {
	if dataSourceID == "" {
		return nil, pkgerrors.NewValidationError("data source id is required")
	}
	cfg := s.Config()
	if len(nodes) == 0 {
		return nil, pkgerrors.NewValidationError("at least one sample is required")
	}
	if len(nodes) > cfg.SampleLimit {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("at most %d samples can be ingested at once, got %d", cfg.SampleLimit, len(nodes)))
	}

	ds, err := s.dataSource(ctx, dataSourceID)
	if err != nil {
		return nil, err
	}
	ds.Lock()
	defer ds.Unlock()

	agg := ds.Aggregator()
	agg.SetThreshold(cfg.AggregatorThreshold)

	result := &IngestResult{DataSourceID: dataSourceID}
	var firstErr error
	for i, n := range nodes {
		err := inferErrs[i]
		if err == nil {
			err = agg.AddNode(n)
		}
		if err != nil {
			ds.Reject()
			result.Rejected++
			result.Errors = append(result.Errors, SampleError{Index: i, Message: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Debug("Sample rejected",
				zap.String("data_source_id", dataSourceID),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		result.Accepted++
	}
	result.Total = agg.Count()
	result.Threshold = agg.Threshold()
	result.Ready = agg.IsReady()

	s.recorder.metrics.SamplesIngested(dataSourceID, result.Accepted, result.Rejected)
	s.recorder.publish(ctx, events.NewSampleIngested(
		dataSourceID, result.Accepted, result.Rejected, result.Total, result.Ready, time.Now().UTC()))

	if result.Accepted == 0 {
		return result, firstErr
	}
	return result, nil
}

// Finalize turns the current aggregation into a schema and pushes it onto the
// data source history. Unless force is set the aggregation must be ready.
func (s *AnalysisService) Finalize(ctx context.Context, dataSourceID string, force bool) (*aggregates.Schema, error) {
	ds, err := s.repo.GetByID(ctx, dataSourceID)
	if err != nil {
		return nil, err
	}
	ds.Lock()
	defer ds.Unlock()

	agg := ds.Aggregator()
	if agg.Result() == nil {
		return nil, pkgerrors.NewInvalidStateError("no samples aggregated yet")
	}
	if !agg.IsReady() && !force {
		return nil, pkgerrors.NewInvalidStateError(
			fmt.Sprintf("aggregation is not ready: %d of %d samples", agg.Count(), agg.Threshold()))
	}

	schema, err := aggregates.NewSchema(dataSourceID, syntax.Copy(agg.Result()))
	if err != nil {
		return nil, err
	}
	schema.Finalize()

	payload, err := aggregates.MarshalSchema(schema)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to encode schema").WithCause(err)
	}

	ds.History().Push(schema)
	revision := ds.NextRevision()
	s.recorder.metrics.StackDepth(versioning.KindSchema, dataSourceID, ds.History().Len())
	s.recorder.archiveSchema(ctx, versioning.KindSchema, dataSourceID, revision, schema, payload,
		fmt.Sprintf("finalized from %d samples", agg.Count()))
	s.recorder.publish(ctx, events.NewSchemaFinalized(
		dataSourceID, schema.ID().String(), revision, agg.Count(), len(schema.Faults()), time.Now().UTC()))

	s.logger.Info("Schema finalized",
		zap.String("data_source_id", dataSourceID),
		zap.String("schema_id", schema.ID().String()),
		zap.Int("samples", agg.Count()),
		zap.Int("revision", revision),
	)
	return schema, nil
}

// CurrentSchema returns the schema at the history cursor
func (s *AnalysisService) CurrentSchema(ctx context.Context, dataSourceID string) (*aggregates.Schema, error) {
	ds, err := s.repo.GetByID(ctx, dataSourceID)
	if err != nil {
		return nil, err
	}
	ds.Lock()
	defer ds.Unlock()
	return ds.History().Peek()
}

// Undo moves the history cursor back
func (s *AnalysisService) Undo(ctx context.Context, dataSourceID string) (*aggregates.Schema, error) {
	return s.move(ctx, dataSourceID, events.DirectionUndo)
}

// Redo moves the history cursor forward
func (s *AnalysisService) Redo(ctx context.Context, dataSourceID string) (*aggregates.Schema, error) {
	return s.move(ctx, dataSourceID, events.DirectionRedo)
}

func (s *AnalysisService) move(ctx context.Context, dataSourceID, direction string) (*aggregates.Schema, error) {
	ds, err := s.repo.GetByID(ctx, dataSourceID)
	if err != nil {
		return nil, err
	}
	ds.Lock()
	defer ds.Unlock()

	history := ds.History()
	var schema *aggregates.Schema
	if direction == events.DirectionUndo {
		schema, err = history.Pop()
	} else {
		schema, err = history.Restore()
	}
	if err != nil {
		return nil, err
	}
	s.recorder.publish(ctx, events.NewSchemaReverted(dataSourceID, direction, history.Cursor(), time.Now().UTC()))
	return schema, nil
}

// Faults evaluates the constraints of the current schema
func (s *AnalysisService) Faults(ctx context.Context, dataSourceID string) ([]syntax.Fault, error) {
	schema, err := s.CurrentSchema(ctx, dataSourceID)
	if err != nil {
		return nil, err
	}
	return schema.Faults(), nil
}

// Status reports the aggregation and history state of a data source
func (s *AnalysisService) Status(ctx context.Context, dataSourceID string) (*DataSourceStatus, error) {
	ds, err := s.repo.GetByID(ctx, dataSourceID)
	if err != nil {
		return nil, err
	}
	ds.Lock()
	defer ds.Unlock()

	agg, history := ds.Aggregator(), ds.History()
	return &DataSourceStatus{
		DataSourceID: dataSourceID,
		Samples:      agg.Count(),
		Rejected:     ds.Rejected(),
		Threshold:    agg.Threshold(),
		Ready:        agg.IsReady(),
		Revisions:    history.Len(),
		Cursor:       history.Cursor(),
		CanUndo:      history.CanUndo(),
		CanRedo:      history.CanRedo(),
	}, nil
}

// Revisions lists the archived schema revisions of a data source
func (s *AnalysisService) Revisions(ctx context.Context, dataSourceID string) ([]versioning.Revision, error) {
	return s.recorder.revisions(ctx, versioning.KindSchema, dataSourceID)
}

// Reset discards the running aggregation of a data source. The schema
// history is kept.
func (s *AnalysisService) Reset(ctx context.Context, dataSourceID string) error {
	ds, err := s.repo.GetByID(ctx, dataSourceID)
	if err != nil {
		return err
	}
	ds.Lock()
	defer ds.Unlock()
	ds.Aggregator().Reset()
	return nil
}

// DataSources lists the known data source ids
func (s *AnalysisService) DataSources(ctx context.Context) ([]string, error) {
	return s.repo.List(ctx)
}
