package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"chitieu/internal/core"
	"chitieu/internal/dashboard"
	"chitieu/internal/log"
	"chitieu/internal/middleware/trace"
	"chitieu/internal/store"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}

// statusFor maps service errors to HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, log.ErrorTypeValidation
	case core.IsValidationError(err):
		return http.StatusUnprocessableEntity, log.ErrorTypeValidation
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, log.ErrorTypeNotFound
	case errors.Is(err, dashboard.ErrFetch):
		return http.StatusBadGateway, log.ErrorTypeUpstream
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, log.ErrorTypeUpstream
	default:
		return http.StatusInternalServerError, log.ErrorTypeInternal
	}
}

// writeServiceError logs err and answers with the mapped status. Internal
// errors are not echoed to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, errType := statusFor(err)
	logger := log.FromContext(r.Context())

	fields := log.NewFields().WithOperation(op).WithError(err)
	fields[log.FieldErrorType] = errType
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = "internal error"
	case http.StatusBadGateway:
		msg = "record store unavailable"
	case http.StatusNotFound:
		msg = "not found"
	}
	writeError(w, r, status, msg)
}
