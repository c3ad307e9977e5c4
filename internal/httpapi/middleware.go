package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"jobportal/application-service/internal/lifecycle"
)

type contextKey string

const actorKey contextKey = "actor"

// authenticate resolves the x-user-id header forwarded by the gateway into a
// directory user. The role always comes from the directory.
func authenticate(dir lifecycle.Directory, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("x-user-id")
			if userID == "" {
				jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
				return
			}
			actor, err := dir.FindUser(r.Context(), userID)
			if errors.Is(err, lifecycle.ErrNotFound) {
				jsonError(w, "unknown user", http.StatusUnauthorized)
				return
			}
			if err != nil {
				log.Error("resolve actor", "userId", userID, "err", err)
				jsonError(w, "internal server error", http.StatusInternalServerError)
				return
			}
			ctx := context.WithValue(r.Context(), actorKey, *actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireRole rejects actors whose role is not listed.
func requireRole(roles ...lifecycle.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorFrom(r.Context())
			if !ok {
				jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			jsonError(w, "forbidden", http.StatusForbidden)
		})
	}
}

func actorFrom(ctx context.Context) (lifecycle.Actor, bool) {
	a, ok := ctx.Value(actorKey).(lifecycle.Actor)
	return a, ok
}
