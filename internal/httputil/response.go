package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error code and message.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

// WriteJSON encodes data with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError renders err. Errors without a service code become a 500 whose
// message does not leak internals.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := apperrors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = apperrors.Internal("internal server error", err)
	}
	WriteJSON(w, serviceErr.HTTPStatus, ErrorBody{Error: ErrorDetail{
		Code:    string(serviceErr.Code),
		Message: serviceErr.Message,
		Details: serviceErr.Details,
		TraceID: logger.TraceID(r.Context()),
	}})
}
