package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default(config.Development)
	cfg.LogLevel = "error"
	cfg.Analysis.AggregatorThreshold = 1
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestInitializeContainer(t *testing.T) {
	container, cleanup, err := InitializeContainer(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	assert.Nil(t, container.JWT)
	assert.Nil(t, container.Tracer)
	assert.Equal(t, config.StorageMemory, container.Storage.Driver)

	rr := httptest.NewRecorder()
	container.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	container.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost,
		"/api/v1/datasources/ds/samples", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestInitializeContainerWithAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.Enabled = true
	cfg.Auth.JWTSecret = "test-secret"

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	require.NotNil(t, container.JWT)

	rr := httptest.NewRecorder()
	container.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/operations", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := container.JWT.GenerateToken("tester")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/operations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	container.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestInitializeContainerWithBadger(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = config.StorageBadger
	cfg.Storage.BadgerPath = t.TempDir()

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	_, err = container.Analysis.IngestSamples(context.Background(), "ds", [][]byte{[]byte(`{"a":1}`)})
	require.NoError(t, err)
	_, err = container.Analysis.Finalize(context.Background(), "ds", false)
	require.NoError(t, err)

	revisions, err := container.Storage.Archive.Load(context.Background(), "schema:ds")
	require.NoError(t, err)
	assert.Len(t, revisions, 1)
}

func TestProvidersRejectUnknownDrivers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "sqlite"
	_, _, err := ProvideStorage(cfg, nil, zap.NewNop())
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Events.Driver = "kafka"
	_, err = ProvideEventPublisher(cfg, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestReconfigure(t *testing.T) {
	container, cleanup, err := InitializeContainer(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	next := testConfig(t)
	next.LogLevel = "debug"
	next.Analysis.SampleThreshold = 7
	container.Reconfigure(next)

	assert.Equal(t, zap.DebugLevel, container.LogLevel.Level())
	assert.Equal(t, 7, container.Analysis.Config().SampleLimit)
}

func TestRunBackgroundStopsWithContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sessions.CleanupInterval = 10 * time.Millisecond
	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, container.RunBackground(ctx))
}
