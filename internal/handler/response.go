package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// ENVELOPE FORMAT:
// Every successful response wraps its payload in a "data" envelope:
//
//	{"data": {...}} or {"data": [...]}
//
// and every error response has the same two-field shape:
//
//	{"error": "not_found", "message": "user not found with id 42"}
//
// A consistent shape means the frontend always knows what fields to expect,
// regardless of endpoint or status code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/anfirdaus/userfinder/internal/apperror"
)

// dataEnvelope wraps successful payloads: {"data": ...}.
type dataEnvelope struct {
	Data any `json:"data"`
}

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status code must be set BEFORE writing the body. Once
// w.Write() runs (Encode calls it internally), the headers are sent and
// any later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			// Headers are already sent — we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeData sends a success response wrapped in the {data: ...} envelope.
func writeData(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, dataEnvelope{Data: payload})
}

// writeError maps a domain error to the appropriate HTTP status code and
// sends it.
//
// This is where domain errors (from the service layer) get translated to
// HTTP. The service returns apperror sentinels; errors.Is walks the wrap
// chain, so a service error like
//
//	fmt.Errorf("service/user: registering: %w", apperror.Conflict(...))
//
// still matches ErrConflict here.
//
// Unknown errors become a generic 500 — the raw message might contain SQL
// or file paths and must not reach the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest // 400
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized // 401
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden // 403
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict // 409
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
