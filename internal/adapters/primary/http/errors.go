package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("⚠️ Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// mapDomainError traduit une erreur du cœur en statut HTTP.
func mapDomainError(err error) (int, string) {
	switch {
	case domain.IsValidationError(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrPostNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrRemoteWrite):
		// Le patch optimiste reste appliqué, le prochain snapshot tranchera
		return http.StatusBadGateway, "remote write failed"
	case errors.Is(err, domain.ErrFeedUnavailable):
		return http.StatusServiceUnavailable, "feed unavailable"
	default:
		// Ne pas fuiter les détails techniques
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("❌ Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, msg)
}
