package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/application/queries"
	querybus "github.com/tmdt-buw/plasma-sub002/application/queries/bus"
)

// OperationHandler lists the registered schema operations
type OperationHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

func NewOperationHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *OperationHandler {
	return &OperationHandler{queryBus: queryBus, logger: logger}
}

// ListOperations handles GET /operations
func (h *OperationHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListOperationsQuery{})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"operations": result})
}
