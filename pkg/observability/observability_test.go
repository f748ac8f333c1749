package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestCollectorRecordsDomainMetrics(t *testing.T) {
	c := NewCollector("plasma")

	c.SamplesIngested("ds", 3, 1)
	c.SamplesIngested("ds", 2, 0)
	c.OperationInvoked("SetDataType", nil, time.Millisecond)
	c.OperationInvoked("SetDataType", errors.New("bad"), time.Millisecond)
	c.StackDepth("schema", "schema:ds", 4)
	c.ArchiveFailed("schema")
	c.QueryHandled("GetSchemaQuery", nil)

	assert.Equal(t, 5.0, testutil.ToFloat64(c.SamplesAccepted.WithLabelValues("ds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SamplesRejected.WithLabelValues("ds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations.WithLabelValues("SetDataType", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations.WithLabelValues("SetDataType", "error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.Stacks.WithLabelValues("schema", "schema:ds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ArchiveFailures.WithLabelValues("schema")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Queries.WithLabelValues("GetSchemaQuery", "ok")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := NewCollector("plasma"), NewCollector("plasma")
	a.ArchiveFailed("model")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ArchiveFailures.WithLabelValues("model")))
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	c := NewCollector("plasma")
	r := chi.NewRouter()
	r.Use(MetricsMiddleware(c))
	r.Get("/datasources/{id}/schema", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/datasources/"+id+"/schema", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/datasources/{id}/schema", "404")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("plasma")
	c.SamplesIngested("ds", 1, 0)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `plasma_samples_accepted_total{data_source="ds"} 1`))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), Sampler("development", 0.1).Description())
	assert.Contains(t, Sampler("production", 0.1).Description(), "TraceIDRatioBased")
}
