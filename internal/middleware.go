package internal

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/lmarchetti/sidechat/internal/auth"
	"github.com/lmarchetti/sidechat/internal/model"
)

type roleGetter interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

// Middleware validates the client's JWT cookie and, failing that,
// silently refreshes the session from the refresh token. Unauthorized
// requests get a 401; this is a JSON API, no redirects.
func Middleware(sessions *auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			jwtCookie, err := r.Cookie("jwt")
			if err == nil {
				userID, err := auth.ValidateJWT(jwtCookie.Value, sessions.Secret)
				if err == nil {
					r = r.WithContext(context.WithValue(r.Context(), auth.UserIDKey, userID))
					next.ServeHTTP(w, r)
					return
				}
			}

			// JWT absent or expired: try the refresh token, mint a new
			// JWT and carry on.
			userID, err := sessions.Refresh(w, r)
			if err != nil {
				unauthorized(w, "Not authorized, no token")
				return
			}

			r = r.WithContext(context.WithValue(r.Context(), auth.UserIDKey, userID))
			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly gates a route to accounts with the admin role. Must run
// after Middleware so the user id is in context.
func AdminOnly(db roleGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := auth.GetUserFromContext(r.Context())
			if err != nil {
				unauthorized(w, "Not authorized, no token")
				return
			}

			user, err := db.GetUserByID(r.Context(), userID)
			if err != nil {
				log.Printf("middleware: failed to load user for admin check: %v", err)
				unauthorized(w, "User not found")
				return
			}

			if user.Role != model.RoleAdmin {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "Admin access required"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
