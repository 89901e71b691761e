package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	reel "github.com/eugener/reel/internal"
)

type apiError struct {
	Detail string `json:"detail"`
}

func errorResponse(msg string) apiError {
	return apiError{Detail: msg}
}

// errorStatus maps domain errors to HTTP. Rejected query parameters are
// reported as 422, the status API clients already handle for validation.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, reel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reel.ErrBadRequest):
		return http.StatusUnprocessableEntity
	case errors.Is(err, reel.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and a {"detail": ...} body. Internal errors
// are logged and their message withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", msg),
			slog.String("request_id", reel.RequestIDFromContext(r.Context())),
		)
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse(msg))
}

// jsonCT is a pre-allocated header value slice. Direct map assignment
// (w.Header()["Content-Type"] = jsonCT) avoids the []string{v} alloc
// that Header.Set creates on every call.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
