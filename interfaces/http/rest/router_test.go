package rest

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	j "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tmdt-buw/plasma-sub002/application/commands"
	"github.com/tmdt-buw/plasma-sub002/application/commands/bus"
	"github.com/tmdt-buw/plasma-sub002/application/queries"
	querybus "github.com/tmdt-buw/plasma-sub002/application/queries/bus"
	"github.com/tmdt-buw/plasma-sub002/application/services"
	"github.com/tmdt-buw/plasma-sub002/domain/operations"
	"github.com/tmdt-buw/plasma-sub002/domain/operations/catalog"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/persistence/memory"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/recipe"
	"github.com/tmdt-buw/plasma-sub002/interfaces/http/rest/handlers"
	"github.com/tmdt-buw/plasma-sub002/pkg/auth"
	"github.com/tmdt-buw/plasma-sub002/pkg/observability"
)

type testServer struct {
	handler   http.Handler
	collector *observability.Collector
	token     string
}

func newTestServer(t *testing.T, withAuth bool) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	dataSources := memory.NewDataSourceRepository()
	archive := memory.NewSnapshotArchive()
	registry := operations.NewRegistry(nil)
	require.NoError(t, catalog.Register(registry))
	collector := observability.NewCollector("plasma")

	analysis := services.NewAnalysisService(dataSources, archive, nil, collector,
		services.AnalysisConfig{SampleLimit: 10, AggregatorThreshold: 2}, logger)
	modeling := services.NewModelingService(dataSources, memory.NewSessionRepository(time.Hour, logger),
		registry, archive, nil, collector, logger)

	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(logger))
	require.NoError(t, commands.Register(commandBus, analysis, modeling))
	queryBus := querybus.NewQueryBus(querybus.MetricsMiddleware(collector))
	require.NoError(t, queries.Register(queryBus, analysis, modeling))

	opts := Options{
		MaxRequestSize: 1 << 20,
		Collector:      collector,
		Recipes:        recipe.NewRunner(modeling, logger),
	}
	srv := &testServer{collector: collector}
	if withAuth {
		jwtService, err := auth.NewJWTService(auth.Config{Secret: "secret", Issuer: "plasma"})
		require.NoError(t, err)
		srv.token, err = jwtService.GenerateToken("analyst")
		require.NoError(t, err)
		opts.Auth = jwtService
	}
	srv.handler = NewRouter(commandBus, queryBus, opts, logger).Setup()
	return srv
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, j.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body handlers.ErrorResponse
	decode(t, rec, &body)
	return string(body.Error.Type)
}

func (s *testServer) finalize(t *testing.T, ds string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/datasources/"+ds+"/samples",
		`[{"name":"Ada","count":"1"},{"name":"Bob","count":"2"}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/v1/datasources/"+ds+"/finalize", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) startSession(t *testing.T, ds string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/sessions", `{"dataSourceId":"`+ds+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var model struct {
		SessionID string `json:"sessionId"`
	}
	decode(t, rec, &model)
	return model.SessionID
}

func TestHealth(t *testing.T) {
	rec := newTestServer(t, true).do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestIngestAndFinalize(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/v1/datasources/orders/samples", `{"id":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var result services.IngestResult
	decode(t, rec, &result)
	assert.Equal(t, 1, result.Accepted)
	assert.False(t, result.Ready)

	rec = s.do(t, http.MethodPost, "/api/v1/datasources/orders/finalize", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE", errorType(t, rec))

	rec = s.do(t, http.MethodPost, "/api/v1/datasources/orders/finalize?force=true", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var schema struct {
		DataSourceID string `json:"dataSourceId"`
		Finalized    bool   `json:"finalized"`
	}
	decode(t, rec, &schema)
	assert.Equal(t, "orders", schema.DataSourceID)
	assert.True(t, schema.Finalized)

	rec = s.do(t, http.MethodGet, "/api/v1/datasources/orders/schema", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/datasources/orders/faults", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"faults"`)

	rec = s.do(t, http.MethodGet, "/api/v1/datasources", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"orders"`)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, false)
	s.finalize(t, "ds")

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		status  int
		errType string
	}{
		{"malformed samples", http.MethodPost, "/api/v1/datasources/ds/samples", `[{"a":`, http.StatusUnprocessableEntity, "INFERENCE"},
		{"samples missing separators", http.MethodPost, "/api/v1/datasources/ds/samples", `{"a" 1}`, http.StatusUnprocessableEntity, "INFERENCE"},
		{"empty samples", http.MethodPost, "/api/v1/datasources/ds/samples", ``, http.StatusBadRequest, "VALIDATION"},
		{"unknown data source", http.MethodGet, "/api/v1/datasources/none/schema", "", http.StatusNotFound, "NOT_FOUND"},
		{"undo first version", http.MethodPost, "/api/v1/datasources/ds/schema/undo", "", http.StatusConflict, "INVALID_STATE"},
		{"redo without history", http.MethodPost, "/api/v1/datasources/ds/schema/redo", "", http.StatusConflict, "INVALID_STATE"},
		{"bad force flag", http.MethodPost, "/api/v1/datasources/ds/finalize?force=maybe", "", http.StatusBadRequest, "VALIDATION"},
		{"malformed session id", http.MethodGet, "/api/v1/sessions/not-a-uuid/model", "", http.StatusBadRequest, "VALIDATION"},
		{"unknown session", http.MethodGet, "/api/v1/sessions/6f1c2a53-5d4e-4d8a-9a43-7f0b0c1d2e3f/model", "", http.StatusNotFound, "NOT_FOUND"},
		{"invalid body", http.MethodPost, "/api/v1/sessions", `{`, http.StatusBadRequest, "VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.errType, errorType(t, rec))
		})
	}
}

func TestOversizedBodies(t *testing.T) {
	s := newTestServer(t, false)
	padding := strings.Repeat(" ", 1<<20)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"samples", "/api/v1/datasources/ds/samples", `{"a":1}` + padding},
		{"json body", "/api/v1/sessions", `{"dataSourceId":"ds"}` + padding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
			assert.Equal(t, "PAYLOAD_TOO_LARGE", errorType(t, rec))
		})
	}
}

func TestModelingThroughHandles(t *testing.T) {
	s := newTestServer(t, true)
	s.finalize(t, "ds")
	sid := s.startSession(t, "ds")
	base := "/api/v1/sessions/" + sid

	rec := s.do(t, http.MethodGet, base+"/handles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var handles struct {
		Handles []handlers.HandleResponse `json:"handles"`
	}
	decode(t, rec, &handles)

	var param *operations.ParameterDTO
	for i, h := range handles.Handles {
		if h.Operation == catalog.NameSetDataType && h.Label == "name" {
			param = &handles.Handles[i].Parameter
		}
	}
	require.NotNil(t, param, "SetDataType must be offered for the name field")
	for i := range param.Children {
		if param.Children[i].Name == catalog.ParamDataType {
			param.Children[i].Values = []string{"Number"}
		}
	}

	body, err := j.Marshal(map[string]interface{}{"name": catalog.NameSetDataType, "parameter": param})
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, base+"/operations", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"dataType":"Number"`)

	rec = s.do(t, http.MethodPost, base+"/operations", `{"name":"NoSuchOperation","parameter":{"type":"Complex","name":"NoSuchOperation"}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/undo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, base+"/undo", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = s.do(t, http.MethodPost, base+"/redo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dataType":"Number"`)

	rec = s.do(t, http.MethodGet, base+"/revisions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, base+"/model", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConceptsAndRecipe(t *testing.T) {
	s := newTestServer(t, false)
	s.finalize(t, "ds")
	sid := s.startSession(t, "ds")
	base := "/api/v1/sessions/" + sid

	rec := s.do(t, http.MethodPost, base+"/concepts", `{"kind":"entity","concept":{"name":"Person"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, base+"/concepts", `{"kind":"attribute","concept":{"name":"X"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/recipe", `
concept "Order" {}

operation "SetEntityType" {
  node           = node("count")
  entity_concept = concept.Order
}
`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var applied handlers.RecipeResponse
	decode(t, rec, &applied)
	assert.Equal(t, 1, applied.Applied)
	assert.Contains(t, applied.Concepts, "Order")

	rec = s.do(t, http.MethodPost, base+"/recipe", `operation "SetDataType" {`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOperations(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do(t, http.MethodGet, "/api/v1/operations", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Operations []queries.OperationInfo `json:"operations"`
	}
	decode(t, rec, &body)
	names := make([]string, len(body.Operations))
	for i, op := range body.Operations {
		names[i] = op.Name
	}
	assert.ElementsMatch(t, []string{
		catalog.NameSetDataType, catalog.NameCleanseValue, catalog.NameSplitPrimitive,
		catalog.NameModifyComposite, catalog.NameSetEntityType, catalog.NameRemoveEntityType,
	}, names)
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/operations", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/operations", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/operations", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, false)
	s.finalize(t, "ds")

	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte(`plasma_samples_accepted_total{data_source="ds"} 2`)))
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte(`route="/api/v1/datasources/{dataSourceID}/samples"`)))
}
