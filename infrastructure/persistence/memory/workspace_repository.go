package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// DataSourceRepository keeps data sources in process memory
type DataSourceRepository struct {
	mu          sync.RWMutex
	dataSources map[string]*aggregates.DataSource
}

// NewDataSourceRepository creates an empty repository
func NewDataSourceRepository() *DataSourceRepository {
	return &DataSourceRepository{dataSources: make(map[string]*aggregates.DataSource)}
}

// GetOrCreate returns the data source with id, creating it if absent
func (r *DataSourceRepository) GetOrCreate(ctx context.Context, id string, create func() *aggregates.DataSource) (*aggregates.DataSource, error) {
	r.mu.RLock()
	ds, exists := r.dataSources[id]
	r.mu.RUnlock()
	if exists {
		return ds, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ds, exists := r.dataSources[id]; exists {
		return ds, nil
	}
	ds = create()
	if ds == nil || ds.ID() != id {
		return nil, pkgerrors.NewInternalError(fmt.Sprintf("data source factory returned a mismatching data source for %s", id))
	}
	r.dataSources[id] = ds
	return ds, nil
}

// GetByID retrieves a data source
func (r *DataSourceRepository) GetByID(ctx context.Context, id string) (*aggregates.DataSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ds, exists := r.dataSources[id]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("data source " + id)
	}
	return ds, nil
}

// List returns all data source ids in lexical order
func (r *DataSourceRepository) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.dataSources))
	for id := range r.dataSources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a data source
func (r *DataSourceRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dataSources, id)
	return nil
}

// SessionRepository keeps modeling sessions in process memory. Sessions
// idle for longer than the ttl are evicted by CleanupExpired.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[valueobjects.Identity]*aggregates.Session
	ttl      time.Duration
	logger   *zap.Logger
}

// NewSessionRepository creates an empty repository. A zero ttl keeps
// sessions forever.
func NewSessionRepository(ttl time.Duration, logger *zap.Logger) *SessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRepository{
		sessions: make(map[valueobjects.Identity]*aggregates.Session),
		ttl:      ttl,
		logger:   logger,
	}
}

// Save stores a session
func (r *SessionRepository) Save(ctx context.Context, session *aggregates.Session) error {
	if session == nil || session.ID().IsZero() {
		return pkgerrors.NewValidationError("invalid session")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID()]; exists {
		return pkgerrors.NewConflictError(fmt.Sprintf("session %s already exists", session.ID()))
	}
	r.sessions[session.ID()] = session
	return nil
}

// GetByID retrieves a session
func (r *SessionRepository) GetByID(ctx context.Context, id valueobjects.Identity) (*aggregates.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("session " + id.String())
	}
	return session, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id valueobjects.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// CleanupExpired removes sessions idle for longer than the ttl and returns
// how many were removed.
func (r *SessionRepository) CleanupExpired(ctx context.Context) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, session := range r.sessions {
		session.Lock()
		idle := now.Sub(session.LastActivity())
		session.Unlock()
		if idle > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("Evicted idle modeling sessions", zap.Int("count", removed))
	}
	return removed
}

// Run evicts idle sessions periodically until ctx is done
func (r *SessionRepository) Run(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.CleanupExpired(ctx)
		}
	}
}
