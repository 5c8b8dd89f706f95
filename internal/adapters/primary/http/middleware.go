package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

// Clé privée pour le contexte (évite les collisions)
type contextKey struct{ name string }

var viewerCtxKey = &contextKey{"viewer"}

// AuthMiddleware résout le viewer depuis "Authorization: Bearer <token>".
// Sans token la requête passe en anonyme ; un token invalide est refusé (401).
// Les navigateurs ne pouvant pas poser de header sur un websocket,
// ?access_token= est accepté en repli.
func AuthMiddleware(validator ports.TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid token format")
				return
			}
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			viewer, err := validator.Validate(tokenStr)
			if err != nil {
				slog.Debug("Token rejected", "error", err)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), viewer)))
		})
	}
}

// bearerToken retourne ("", true) si aucun token n'est présent.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return r.URL.Query().Get("access_token"), true
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), true
}

func WithViewer(ctx context.Context, viewer domain.Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey, viewer)
}

// ViewerFromContext retourne le viewer courant, zéro si anonyme.
func ViewerFromContext(ctx context.Context) domain.Viewer {
	v, _ := ctx.Value(viewerCtxKey).(domain.Viewer)
	return v
}
