package aggregates

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/domain/analysis"
	"github.com/tmdt-buw/plasma-sub002/domain/versioning"
)

// DataSource is the analysis state of one data source: the running sample
// aggregation and the history of finalized schemas. Callers hold the lock
// for the duration of a read-modify-write.
type DataSource struct {
	mu         sync.Mutex
	id         string
	aggregator *analysis.Aggregator
	history    *versioning.Stack[*Schema]
	rejected   int
	revision   int
}

// NewDataSource creates an empty data source
func NewDataSource(id string, threshold int, logger *zap.Logger) *DataSource {
	return &DataSource{
		id:         id,
		aggregator: analysis.NewAggregator(threshold),
		history:    versioning.NewStack[*Schema](logger),
	}
}

func (d *DataSource) Lock() { d.mu.Lock() }

func (d *DataSource) Unlock() { d.mu.Unlock() }

func (d *DataSource) ID() string { return d.id }

func (d *DataSource) Aggregator() *analysis.Aggregator { return d.aggregator }

func (d *DataSource) History() *versioning.Stack[*Schema] { return d.history }

// Rejected counts samples that failed inference or merge
func (d *DataSource) Rejected() int { return d.rejected }

func (d *DataSource) Reject() { d.rejected++ }

// NextRevision returns the next archive revision number. Numbers keep
// growing when pushes discard redo branches.
func (d *DataSource) NextRevision() int {
	d.revision++
	return d.revision
}

// Session is a modeling session over a data source schema.
type Session struct {
	mu           sync.Mutex
	id           Identity
	dataSourceID string
	history      *versioning.Stack[*CombinedModel]
	revision     int
	touched      time.Time
}

// NewSession creates a session whose history starts with initial
func NewSession(initial *CombinedModel, logger *zap.Logger) *Session {
	s := &Session{
		id:           initial.SessionID(),
		dataSourceID: initial.DataSourceID(),
		history:      versioning.NewStack[*CombinedModel](logger),
		touched:      time.Now(),
	}
	s.history.Push(initial)
	return s
}

func (s *Session) Lock() { s.mu.Lock() }

func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) ID() Identity { return s.id }

func (s *Session) DataSourceID() string { return s.dataSourceID }

func (s *Session) History() *versioning.Stack[*CombinedModel] { return s.history }

// Touch records activity on the session
func (s *Session) Touch() { s.touched = time.Now() }

// LastActivity is the time of the last recorded activity
func (s *Session) LastActivity() time.Time { return s.touched }

// NextRevision returns the next archive revision number
func (s *Session) NextRevision() int {
	s.revision++
	return s.revision
}
