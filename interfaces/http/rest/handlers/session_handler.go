package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/application/commands"
	"github.com/tmdt-buw/plasma-sub002/application/commands/bus"
	"github.com/tmdt-buw/plasma-sub002/application/queries"
	querybus "github.com/tmdt-buw/plasma-sub002/application/queries/bus"
	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/domain/operations"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/recipe"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// RecipeRunner replays a parsed recipe against a session
type RecipeRunner interface {
	Run(ctx context.Context, sessionID string, f *recipe.File) (*recipe.Result, error)
}

// SessionHandler serves modeling sessions
type SessionHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	recipes    RecipeRunner
	logger     *zap.Logger
}

func NewSessionHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, recipes RecipeRunner, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{commandBus: commandBus, queryBus: queryBus, recipes: recipes, logger: logger}
}

// HandleResponse is an applicable operation with its hidden parameters set
type HandleResponse struct {
	Operation string                  `json:"operation"`
	NodeID    string                  `json:"nodeId"`
	Label     string                  `json:"label"`
	Parameter operations.ParameterDTO `json:"parameter"`
}

// RecipeResponse summarizes an applied recipe
type RecipeResponse struct {
	Concepts map[string]string          `json:"concepts"`
	Applied  int                        `json:"applied"`
	Model    aggregates.CombinedModelDTO `json:"model"`
}

func (h *SessionHandler) respondModel(w http.ResponseWriter, status int, result interface{}, err error) {
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	model, ok := result.(*aggregates.CombinedModel)
	if !ok {
		respondError(w, h.logger, pkgerrors.NewInternalError("unexpected result type"))
		return
	}
	respondJSON(w, status, model.ToDTO())
}

// StartSession handles POST /sessions with body {"dataSourceId": "..."}
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var cmd commands.StartSessionCommand
	if err := decodeJSON(r, &cmd); err != nil {
		respondError(w, h.logger, err)
		return
	}
	result, err := h.commandBus.Send(r.Context(), cmd)
	h.respondModel(w, http.StatusCreated, result, err)
}

// GetModel handles GET /sessions/{id}/model
func (h *SessionHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetModelQuery{SessionID: chi.URLParam(r, "sessionID")})
	h.respondModel(w, http.StatusOK, result, err)
}

// Undo handles POST /sessions/{id}/undo
func (h *SessionHandler) Undo(w http.ResponseWriter, r *http.Request) {
	result, err := h.commandBus.Send(r.Context(), commands.UndoModelCommand{SessionID: chi.URLParam(r, "sessionID")})
	h.respondModel(w, http.StatusOK, result, err)
}

// Redo handles POST /sessions/{id}/redo
func (h *SessionHandler) Redo(w http.ResponseWriter, r *http.Request) {
	result, err := h.commandBus.Send(r.Context(), commands.RedoModelCommand{SessionID: chi.URLParam(r, "sessionID")})
	h.respondModel(w, http.StatusOK, result, err)
}

// ApplyOperation handles POST /sessions/{id}/operations with body
// {"name": "...", "parameter": {...}}
func (h *SessionHandler) ApplyOperation(w http.ResponseWriter, r *http.Request) {
	var cmd commands.ApplyOperationCommand
	if err := decodeJSON(r, &cmd); err != nil {
		respondError(w, h.logger, err)
		return
	}
	cmd.SessionID = chi.URLParam(r, "sessionID")
	result, err := h.commandBus.Send(r.Context(), cmd)
	h.respondModel(w, http.StatusOK, result, err)
}

// GetHandles handles GET /sessions/{id}/handles
func (h *SessionHandler) GetHandles(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetHandlesQuery{SessionID: chi.URLParam(r, "sessionID")})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	handles, _ := result.([]operations.Handle)
	out := make([]HandleResponse, 0, len(handles))
	for _, hd := range handles {
		resp := HandleResponse{Operation: hd.Operation, NodeID: hd.NodeID, Label: hd.Label}
		if hd.Parameter != nil {
			resp.Parameter = hd.Parameter.ToDTO()
		}
		out = append(out, resp)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"handles": out})
}

// AddConcept handles POST /sessions/{id}/concepts with body
// {"kind": "entity|relation", "concept": {...}}
func (h *SessionHandler) AddConcept(w http.ResponseWriter, r *http.Request) {
	var cmd commands.AddConceptCommand
	if err := decodeJSON(r, &cmd); err != nil {
		respondError(w, h.logger, err)
		return
	}
	cmd.SessionID = chi.URLParam(r, "sessionID")
	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// Relate handles POST /sessions/{id}/relations with body
// {"conceptId": "...", "fromId": "...", "toId": "..."}
func (h *SessionHandler) Relate(w http.ResponseWriter, r *http.Request) {
	var cmd commands.RelateCommand
	if err := decodeJSON(r, &cmd); err != nil {
		respondError(w, h.logger, err)
		return
	}
	cmd.SessionID = chi.URLParam(r, "sessionID")
	result, err := h.commandBus.Send(r.Context(), cmd)
	h.respondModel(w, http.StatusCreated, result, err)
}

// ListRevisions handles GET /sessions/{id}/revisions
func (h *SessionHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListRevisionsQuery{SessionID: chi.URLParam(r, "sessionID")})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"revisions": result})
}

// ApplyRecipe handles POST /sessions/{id}/recipe with an HCL recipe as body
func (h *SessionHandler) ApplyRecipe(w http.ResponseWriter, r *http.Request) {
	if h.recipes == nil {
		respondError(w, h.logger, pkgerrors.NewUnavailableError("recipes"))
		return
	}
	src, err := readBody(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	f, err := recipe.Parse(src, "request.hcl")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	result, err := h.recipes.Run(r.Context(), chi.URLParam(r, "sessionID"), f)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, RecipeResponse{
		Concepts: result.Concepts,
		Applied:  result.Applied,
		Model:    result.Model.ToDTO(),
	})
}

// CloseSession handles DELETE /sessions/{id}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if _, err := h.commandBus.Send(r.Context(), commands.CloseSessionCommand{SessionID: chi.URLParam(r, "sessionID")}); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
