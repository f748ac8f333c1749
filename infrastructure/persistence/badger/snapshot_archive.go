// Package badger archives snapshots in an embedded BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	j "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/domain/versioning"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

const keyPrefix = "snapshot/"

// Config holds the options of an archive database
type Config struct {
	// Path is ignored when InMemory is set
	Path       string
	InMemory   bool
	SyncWrites bool
	// GCInterval of zero disables value log garbage collection
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultConfig returns durable settings for a database at path
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns settings for tests
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type zapLogger struct {
	logger *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l zapLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l zapLogger) Infof(format string, args ...interface{})    { l.logger.Debugf(format, args...) }
func (l zapLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }

type record struct {
	Revision versioning.Revision `json:"revision"`
	Payload  []byte              `json:"payload"`
}

// SnapshotArchive stores each revision under snapshot/<stream>\x00<number>.
// Numbers are zero padded so key order is revision order.
type SnapshotArchive struct {
	db     *badger.DB
	cfg    Config
	logger *zap.Logger
}

// Open opens or creates the archive database
func Open(cfg Config, logger *zap.Logger) (*SnapshotArchive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent archive")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create archive directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(zapLogger{logger: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger archive: %w", err)
	}
	logger.Info("Snapshot archive opened",
		zap.String("path", cfg.Path),
		zap.Bool("in_memory", cfg.InMemory),
	)
	return &SnapshotArchive{db: db, cfg: cfg, logger: logger}, nil
}

// Close closes the database
func (a *SnapshotArchive) Close() error {
	return a.db.Close()
}

func streamPrefix(streamID string) []byte {
	return []byte(keyPrefix + streamID + "\x00")
}

func key(streamID string, number int) []byte {
	return append(streamPrefix(streamID), fmt.Sprintf("%010d", number)...)
}

// Save stores payload under the revision's stream and number
func (a *SnapshotArchive) Save(ctx context.Context, rev versioning.Revision, payload []byte) error {
	if rev.StreamID == "" || rev.Number < 1 {
		return fmt.Errorf("invalid revision %q/%d", rev.StreamID, rev.Number)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := j.Marshal(record{Revision: rev, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode revision: %w", err)
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(rev.StreamID, rev.Number), value)
	})
	if err != nil {
		return pkgerrors.NewStorageError("save snapshot", err)
	}
	return nil
}

// Load lists the revisions of a stream ordered by number
func (a *SnapshotArchive) Load(ctx context.Context, streamID string) ([]versioning.Revision, error) {
	var out []versioning.Revision
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = streamPrefix(streamID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec record
			if err := it.Item().Value(func(val []byte) error {
				return j.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, rec.Revision)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.NewStorageError("load snapshots", err)
	}
	if out == nil {
		out = []versioning.Revision{}
	}
	return out, nil
}

// Payload returns the stored snapshot of one revision
func (a *SnapshotArchive) Payload(ctx context.Context, streamID string, number int) ([]byte, error) {
	var rec record
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(streamID, number))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return j.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("revision %s/%d", streamID, number))
	}
	if err != nil {
		return nil, pkgerrors.NewStorageError("read snapshot", err)
	}
	return rec.Payload, nil
}

// RunGC collects the value log periodically until ctx is done
func (a *SnapshotArchive) RunGC(ctx context.Context) {
	if a.cfg.InMemory || a.cfg.GCInterval <= 0 {
		return
	}
	ticker := time.NewTicker(a.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				err := a.db.RunValueLogGC(a.cfg.GCDiscardRatio)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						a.logger.Warn("Value log GC failed", zap.Error(err))
					}
					break
				}
			}
		}
	}
}
