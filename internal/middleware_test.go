package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmarchetti/sidechat/internal/apperr"
	"github.com/lmarchetti/sidechat/internal/auth"
	"github.com/lmarchetti/sidechat/internal/database"
	"github.com/lmarchetti/sidechat/internal/model"
)

type stubTokenStore struct {
	tokens map[string]uuid.UUID
}

func (s *stubTokenStore) CreateRefreshToken(_ context.Context, p database.CreateRefreshTokenParams) (string, error) {
	s.tokens[p.Token] = p.UserID
	return p.Token, nil
}

func (s *stubTokenStore) GetUserFromRefreshToken(_ context.Context, token string) (uuid.UUID, error) {
	userID, ok := s.tokens[token]
	if !ok {
		return uuid.UUID{}, apperr.Unauthorized("not authorized")
	}
	return userID, nil
}

func (s *stubTokenStore) RevokeRefreshToken(context.Context, string) error { return nil }

type stubUserGetter struct {
	users map[uuid.UUID]model.User
}

func (s *stubUserGetter) GetUserByID(_ context.Context, id uuid.UUID) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func newStubSessions() (*auth.Sessions, *stubTokenStore) {
	store := &stubTokenStore{tokens: make(map[string]uuid.UUID)}
	return &auth.Sessions{
		Store:      store,
		Secret:     "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, store
}

// capture returns a handler that records the user id the middleware put
// in context.
func capture(gotID *uuid.UUID, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		id, err := auth.GetUserFromContext(r.Context())
		if err == nil {
			*gotID = id
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareValidJWT(t *testing.T) {
	sessions, _ := newStubSessions()
	userID := uuid.New()

	token, err := auth.MakeJWT(userID, sessions.Secret, time.Minute)
	require.NoError(t, err)

	var gotID uuid.UUID
	var called bool
	h := Middleware(sessions)(capture(&gotID, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, called)
	assert.Equal(t, userID, gotID)
}

func TestMiddlewareSilentRefresh(t *testing.T) {
	sessions, store := newStubSessions()
	userID := uuid.New()
	store.tokens["refresh-abc"] = userID

	expired, err := auth.MakeJWT(userID, sessions.Secret, -time.Minute)
	require.NoError(t, err)

	var gotID uuid.UUID
	var called bool
	h := Middleware(sessions)(capture(&gotID, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: expired})
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "refresh-abc"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, userID, gotID)

	// A fresh JWT cookie rides along on the response.
	var minted string
	for _, c := range rr.Result().Cookies() {
		if c.Name == "jwt" {
			minted = c.Value
		}
	}
	require.NotEmpty(t, minted)
	got, err := auth.ValidateJWT(minted, sessions.Secret)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestMiddlewareNoCredentials(t *testing.T) {
	sessions, _ := newStubSessions()

	var gotID uuid.UUID
	var called bool
	h := Middleware(sessions)(capture(&gotID, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, called)
}

func TestAdminOnly(t *testing.T) {
	admin := model.User{ID: uuid.New(), Role: model.RoleAdmin}
	regular := model.User{ID: uuid.New(), Role: model.RoleUser}
	db := &stubUserGetter{users: map[uuid.UUID]model.User{
		admin.ID: admin, regular.ID: regular,
	}}

	serve := func(userID uuid.UUID) *httptest.ResponseRecorder {
		var gotID uuid.UUID
		var called bool
		h := AdminOnly(db)(capture(&gotID, &called))

		req := httptest.NewRequest(http.MethodGet, "/api/auth/users", nil)
		req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, userID))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, serve(admin.ID).Code)

	rr := serve(regular.ID)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "Admin access required")

	assert.Equal(t, http.StatusUnauthorized, serve(uuid.New()).Code)
}
