package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"jobportal/application-service/internal/lifecycle"
)

// notFoundMsg is shared by missing and hidden resources so a denial never
// reveals that an application exists.
const notFoundMsg = "not found"

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeServiceError renders an engine error with its HTTP status.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var verr *lifecycle.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, verr.Msg, http.StatusBadRequest)
	case errors.Is(err, lifecycle.ErrNotFound), errors.Is(err, lifecycle.ErrNotAuthorized):
		jsonError(w, notFoundMsg, http.StatusNotFound)
	case errors.Is(err, lifecycle.ErrForbidden):
		jsonError(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, lifecycle.ErrDuplicate):
		jsonError(w, lifecycle.ErrDuplicate.Error(), http.StatusBadRequest)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, lifecycle.ErrFeedbackRequired):
		jsonError(w, lifecycle.ErrFeedbackRequired.Error(), http.StatusBadRequest)
	case errors.Is(err, lifecycle.ErrClosed):
		jsonError(w, lifecycle.ErrClosed.Error(), http.StatusBadRequest)
	case errors.Is(err, lifecycle.ErrConflict):
		jsonError(w, lifecycle.ErrConflict.Error(), http.StatusConflict)
	case errors.Is(err, lifecycle.ErrRateLimited):
		jsonError(w, lifecycle.ErrRateLimited.Error(), http.StatusTooManyRequests)
	default:
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
	}
}
