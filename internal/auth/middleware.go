package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/notedrop/internal/access"
	"github.com/starford/notedrop/internal/models"
)

// UserFinder loads users by id.
type UserFinder interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
}

type actorKey struct{}

// WithActor returns a context carrying a.
func WithActor(ctx context.Context, a access.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored in ctx, or the anonymous actor.
func ActorFrom(ctx context.Context) access.Actor {
	if a, ok := ctx.Value(actorKey{}).(access.Actor); ok {
		return a
	}
	return access.Anonymous()
}

// Middleware resolves the session cookie into an actor. Missing, invalid or
// stale sessions (user deleted or renamed) leave the request anonymous.
func Middleware(s *Sessions, users UserFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := access.Anonymous()
			if claims, err := s.fromRequest(r); err == nil {
				u, err := users.UserByID(r.Context(), claims.UserID)
				if err == nil && u.Username == claims.Username {
					actor = access.Actor{UserID: u.ID, Username: u.Username}
				} else if err != nil {
					slog.Debug("session user lookup failed",
						slog.Int64("user_id", claims.UserID),
						slog.String("error", err.Error()))
				}
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireLogin answers 401 for anonymous actors.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ActorFrom(r.Context()).IsAnonymous() {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "login required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
