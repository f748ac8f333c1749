package handlers

import (
	"errors"
	"io"
	"net/http"

	j "github.com/goccy/go-json"
	"go.uber.org/zap"

	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Type    pkgerrors.ErrorType    `json:"type"`
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := j.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"type":"INTERNAL","message":"failed to encode response"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// respondError maps err to its HTTP status. Internal failures are logged and
// their message is not exposed.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := pkgerrors.HTTPStatus(err)
	body := ErrorBody{Type: pkgerrors.ErrorTypeInternal, Message: "internal server error"}
	if appErr := pkgerrors.GetAppError(err); appErr != nil && status < http.StatusInternalServerError {
		body = ErrorBody{Type: appErr.Type, Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
	} else if appErr != nil && appErr.Type == pkgerrors.ErrorTypeUnavailable {
		body = ErrorBody{Type: appErr.Type, Message: appErr.Message}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	respondJSON(w, status, ErrorResponse{Error: body})
}

// readBody reads the whole request body. Bodies cut off by the router's size
// limit are reported as PAYLOAD_TOO_LARGE.
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.NewPayloadTooLargeError(tooLarge.Limit)
		}
		return nil, pkgerrors.NewValidationError("failed to read request body").WithCause(err)
	}
	return data, nil
}

// decodeJSON reads a JSON request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	data, err := readBody(r)
	if err != nil {
		return err
	}
	if err := j.Unmarshal(data, v); err != nil {
		return pkgerrors.NewValidationError("invalid request body").WithCause(err)
	}
	return nil
}
