package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/application/commands"
	"github.com/tmdt-buw/plasma-sub002/application/commands/bus"
	"github.com/tmdt-buw/plasma-sub002/application/queries"
	querybus "github.com/tmdt-buw/plasma-sub002/application/queries/bus"
	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/ingest"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// DataSourceHandler serves sample ingestion and the schema version stack of
// each data source.
type DataSourceHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

func NewDataSourceHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *DataSourceHandler {
	return &DataSourceHandler{commandBus: commandBus, queryBus: queryBus, logger: logger}
}

func (h *DataSourceHandler) send(w http.ResponseWriter, r *http.Request, status int, cmd bus.Command) {
	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.write(w, status, result)
}

func (h *DataSourceHandler) ask(w http.ResponseWriter, r *http.Request, query querybus.Query) {
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.write(w, http.StatusOK, result)
}

func (h *DataSourceHandler) write(w http.ResponseWriter, status int, result interface{}) {
	if schema, ok := result.(*aggregates.Schema); ok {
		respondJSON(w, status, schema.ToDTO())
		return
	}
	respondJSON(w, status, result)
}

// ListDataSources handles GET /datasources
func (h *DataSourceHandler) ListDataSources(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListDataSourcesQuery{})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"dataSources": result})
}

// IngestSamples handles POST /datasources/{id}/samples. The body is a single
// JSON sample or an array of samples.
func (h *DataSourceHandler) IngestSamples(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	samples, err := ingest.Split(body)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.send(w, r, http.StatusOK, commands.IngestSamplesCommand{
		DataSourceID: chi.URLParam(r, "dataSourceID"),
		Samples:      samples,
	})
}

// Finalize handles POST /datasources/{id}/finalize[?force=true]
func (h *DataSourceHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, h.logger, pkgerrors.NewValidationError("force must be a boolean"))
			return
		}
		force = parsed
	}
	h.send(w, r, http.StatusCreated, commands.FinalizeSchemaCommand{
		DataSourceID: chi.URLParam(r, "dataSourceID"),
		Force:        force,
	})
}

// GetSchema handles GET /datasources/{id}/schema
func (h *DataSourceHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetSchemaQuery{DataSourceID: chi.URLParam(r, "dataSourceID")})
}

// UndoSchema handles POST /datasources/{id}/schema/undo
func (h *DataSourceHandler) UndoSchema(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, http.StatusOK, commands.UndoSchemaCommand{DataSourceID: chi.URLParam(r, "dataSourceID")})
}

// RedoSchema handles POST /datasources/{id}/schema/redo
func (h *DataSourceHandler) RedoSchema(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, http.StatusOK, commands.RedoSchemaCommand{DataSourceID: chi.URLParam(r, "dataSourceID")})
}

// GetFaults handles GET /datasources/{id}/faults
func (h *DataSourceHandler) GetFaults(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetFaultsQuery{DataSourceID: chi.URLParam(r, "dataSourceID")})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"faults": result})
}

// GetStatus handles GET /datasources/{id}/status
func (h *DataSourceHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetStatusQuery{DataSourceID: chi.URLParam(r, "dataSourceID")})
}

// ListRevisions handles GET /datasources/{id}/revisions
func (h *DataSourceHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListRevisionsQuery{DataSourceID: chi.URLParam(r, "dataSourceID")})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"revisions": result})
}

// ResetAggregation handles DELETE /datasources/{id}/aggregation
func (h *DataSourceHandler) ResetAggregation(w http.ResponseWriter, r *http.Request) {
	if _, err := h.commandBus.Send(r.Context(), commands.ResetAggregationCommand{DataSourceID: chi.URLParam(r, "dataSourceID")}); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
