package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/core/valueobjects"
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	"github.com/tmdt-buw/plasma-sub002/domain/versioning"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

func newSession(t *testing.T) *aggregates.Session {
	t.Helper()
	root, err := syntax.Infer(map[string]any{"a": "x"})
	require.NoError(t, err)
	schema, err := aggregates.NewSchema("ds", root)
	require.NoError(t, err)
	model, err := aggregates.NewCombinedModel(valueobjects.RandomIdentity(), schema)
	require.NoError(t, err)
	return aggregates.NewSession(model, zap.NewNop())
}

func TestDataSourceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDataSourceRepository()

	created := 0
	factory := func(id string) func() *aggregates.DataSource {
		return func() *aggregates.DataSource {
			created++
			return aggregates.NewDataSource(id, 2, zap.NewNop())
		}
	}

	first, err := repo.GetOrCreate(ctx, "b", factory("b"))
	require.NoError(t, err)
	again, err := repo.GetOrCreate(ctx, "b", factory("b"))
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, created)

	_, err = repo.GetOrCreate(ctx, "a", factory("a"))
	require.NoError(t, err)
	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	_, err = repo.GetOrCreate(ctx, "c", factory("other"))
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeInternal))

	require.NoError(t, repo.Delete(ctx, "b"))
	_, err = repo.GetByID(ctx, "b")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(0, nil)
	session := newSession(t)

	require.NoError(t, repo.Save(ctx, session))
	err := repo.Save(ctx, session)
	assert.True(t, pkgerrors.IsConflict(err))

	got, err := repo.GetByID(ctx, session.ID())
	require.NoError(t, err)
	assert.Same(t, session, got)

	require.NoError(t, repo.Delete(ctx, session.ID()))
	_, err = repo.GetByID(ctx, session.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("zero ttl keeps sessions", func(t *testing.T) {
		repo := NewSessionRepository(0, zap.NewNop())
		require.NoError(t, repo.Save(ctx, newSession(t)))
		assert.Equal(t, 0, repo.CleanupExpired(ctx))
	})

	t.Run("idle sessions are evicted", func(t *testing.T) {
		repo := NewSessionRepository(20*time.Millisecond, zap.NewNop())
		idle := newSession(t)
		require.NoError(t, repo.Save(ctx, idle))
		time.Sleep(40 * time.Millisecond)

		fresh := newSession(t)
		require.NoError(t, repo.Save(ctx, fresh))

		assert.Equal(t, 1, repo.CleanupExpired(ctx))
		_, err := repo.GetByID(ctx, idle.ID())
		assert.True(t, pkgerrors.IsNotFound(err))
		_, err = repo.GetByID(ctx, fresh.ID())
		assert.NoError(t, err)
	})
}

func TestSnapshotArchive(t *testing.T) {
	ctx := context.Background()
	archive := NewSnapshotArchive()

	for _, n := range []int{2, 1} {
		payload := []byte{byte(n)}
		rev, err := versioning.NewRevision("schema:ds", "schema", n, payload, "")
		require.NoError(t, err)
		require.NoError(t, archive.Save(ctx, rev, payload))
	}

	revs, err := archive.Load(ctx, "schema:ds")
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, 1, revs[0].Number)
	assert.Equal(t, 2, revs[1].Number)

	payload, err := archive.Payload(ctx, "schema:ds", 2)
	require.NoError(t, err)
	assert.True(t, revs[1].Verify(payload))

	_, err = archive.Payload(ctx, "schema:ds", 3)
	assert.True(t, pkgerrors.IsNotFound(err))

	assert.Error(t, archive.Save(ctx, versioning.Revision{StreamID: "s"}, nil))
}
