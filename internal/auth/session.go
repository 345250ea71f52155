package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lmarchetti/sidechat/internal/apperr"
	"github.com/lmarchetti/sidechat/internal/database"
)

// TokenStore is the slice of the database layer the session machinery
// needs.
type TokenStore interface {
	CreateRefreshToken(ctx context.Context, p database.CreateRefreshTokenParams) (string, error)
	GetUserFromRefreshToken(ctx context.Context, token string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}

// Sessions issues, refreshes and revokes the jwt/refresh_token cookie
// pair. The JWT is short-lived; the refresh token is a random value
// kept server-side so logout actually invalidates the session.
type Sessions struct {
	Store      TokenStore
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issue creates a new session for userID and sets both cookies.
func (s *Sessions) Issue(ctx context.Context, w http.ResponseWriter, userID uuid.UUID) error {
	rnd := make([]byte, 32)
	// rand.Read() never returns an error.
	_, _ = rand.Read(rnd)

	now := time.Now().UTC()
	refreshTok, err := s.Store.CreateRefreshToken(ctx, database.CreateRefreshTokenParams{
		Token:     hex.EncodeToString(rnd),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.RefreshTTL),
	})
	if err != nil {
		return fmt.Errorf("internal/auth: failed to create refresh token: %w", err)
	}

	jwtStr, err := MakeJWT(userID, s.Secret, s.AccessTTL)
	if err != nil {
		return fmt.Errorf("internal/auth: failed to make JWT: %w", err)
	}

	setCookie(w, "jwt", jwtStr, int(s.AccessTTL.Seconds()))
	setCookie(w, "refresh_token", refreshTok, int(s.RefreshTTL.Seconds()))
	return nil
}

// Refresh mints a fresh JWT from the refresh_token cookie. Returns the
// user id the session belongs to.
func (s *Sessions) Refresh(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	refreshTokCookie, err := r.Cookie("refresh_token")
	if err != nil {
		return uuid.UUID{}, apperr.Unauthorized("not authorized, no token")
	}

	userID, err := s.Store.GetUserFromRefreshToken(r.Context(), refreshTokCookie.Value)
	if err != nil {
		return uuid.UUID{}, err
	}

	jwtStr, err := MakeJWT(userID, s.Secret, s.AccessTTL)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("internal/auth: failed to make JWT: %w", err)
	}

	setCookie(w, "jwt", jwtStr, int(s.AccessTTL.Seconds()))
	return userID, nil
}

// Revoke invalidates the refresh token and clears both cookies.
func (s *Sessions) Revoke(w http.ResponseWriter, r *http.Request) {
	if refreshTok, err := r.Cookie("refresh_token"); err == nil {
		if err := s.Store.RevokeRefreshToken(r.Context(), refreshTok.Value); err != nil {
			// Cookie removal below still ends the browser session.
			log.Printf("internal/auth: failed to revoke refresh token: %v", err)
		}
	}

	clearCookie(w, "jwt")
	clearCookie(w, "refresh_token")
}

func setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
