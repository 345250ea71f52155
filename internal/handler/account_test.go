package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
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

type fakeUserStore struct {
	users map[uuid.UUID]model.User
	creds map[uuid.UUID]string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users: make(map[uuid.UUID]model.User),
		creds: make(map[uuid.UUID]string),
	}
}

func (f *fakeUserStore) addUser(t *testing.T, fullName, email, password string, role model.Role) model.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	u := model.User{ID: uuid.New(), FullName: fullName, Email: email, Role: role, CreatedAt: time.Now().UTC()}
	f.users[u.ID] = u
	f.creds[u.ID] = hash
	return u
}

func (f *fakeUserStore) CreateUser(_ context.Context, p database.CreateUserParams) (model.User, error) {
	for _, u := range f.users {
		if u.Email == p.Email {
			return model.User{}, apperr.AlreadyExists("Email already exists")
		}
	}
	u := model.User{ID: p.ID, FullName: p.FullName, Email: p.Email, Role: p.Role, CreatedAt: time.Now().UTC()}
	f.users[u.ID] = u
	f.creds[u.ID] = p.HashedPassword
	return u, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id uuid.UUID) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (database.UserCredentials, error) {
	for id, u := range f.users {
		if u.Email == email {
			return database.UserCredentials{User: u, HashedPassword: f.creds[id]}, nil
		}
	}
	return database.UserCredentials{}, apperr.NotFound("user not found")
}

func (f *fakeUserStore) GetUserCredentials(_ context.Context, id uuid.UUID) (database.UserCredentials, error) {
	u, ok := f.users[id]
	if !ok {
		return database.UserCredentials{}, apperr.NotFound("user not found")
	}
	return database.UserCredentials{User: u, HashedPassword: f.creds[id]}, nil
}

func (f *fakeUserStore) ListUsersExcept(_ context.Context, userID uuid.UUID) ([]model.User, error) {
	var out []model.User
	for id, u := range f.users {
		if id != userID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserStore) ListUsers(_ context.Context, limit, offset int32) ([]model.User, error) {
	all := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		all = append(all, u)
	}
	if int(offset) >= len(all) {
		return nil, nil
	}
	end := min(int(offset)+int(limit), len(all))
	return all[offset:end], nil
}

func (f *fakeUserStore) CountUsers(_ context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeUserStore) UpdateUserRole(_ context.Context, id uuid.UUID, role model.Role) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, apperr.NotFound("user not found")
	}
	u.Role = role
	f.users[id] = u
	return u, nil
}

func (f *fakeUserStore) UpdateProfilePic(_ context.Context, id uuid.UUID, url string) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, apperr.NotFound("user not found")
	}
	u.ProfilePic = url
	f.users[id] = u
	return u, nil
}

func (f *fakeUserStore) UpdateUserInfo(_ context.Context, id uuid.UUID, fullName, email string) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, apperr.NotFound("user not found")
	}
	u.FullName = fullName
	u.Email = email
	f.users[id] = u
	return u, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	if _, ok := f.users[id]; !ok {
		return apperr.NotFound("user not found")
	}
	f.creds[id] = hash
	return nil
}

func (f *fakeUserStore) EmailTaken(_ context.Context, email string, exclude uuid.UUID) (bool, error) {
	for id, u := range f.users {
		if u.Email == email && id != exclude {
			return true, nil
		}
	}
	return false, nil
}

type fakeTokenStore struct {
	tokens  map[string]uuid.UUID
	revoked map[string]bool
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]uuid.UUID), revoked: make(map[string]bool)}
}

func (f *fakeTokenStore) CreateRefreshToken(_ context.Context, p database.CreateRefreshTokenParams) (string, error) {
	f.tokens[p.Token] = p.UserID
	return p.Token, nil
}

func (f *fakeTokenStore) GetUserFromRefreshToken(_ context.Context, token string) (uuid.UUID, error) {
	userID, ok := f.tokens[token]
	if !ok || f.revoked[token] {
		return uuid.UUID{}, apperr.Unauthorized("not authorized")
	}
	return userID, nil
}

func (f *fakeTokenStore) RevokeRefreshToken(_ context.Context, token string) error {
	f.revoked[token] = true
	return nil
}

func testSessions() *auth.Sessions {
	return &auth.Sessions{
		Store:      newFakeTokenStore(),
		Secret:     "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}

func cookieNames(rr *httptest.ResponseRecorder) []string {
	var names []string
	for _, c := range rr.Result().Cookies() {
		names = append(names, c.Name)
	}
	return names
}

func TestSignup(t *testing.T) {
	store := newFakeUserStore()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
		strings.NewReader(`{"fullName":"Ada Lovelace","email":"ada@example.com","password":"hunter22"}`))
	rr := httptest.NewRecorder()
	Signup(store, testSessions())(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.ElementsMatch(t, []string{"jwt", "refresh_token"}, cookieNames(rr))

	var resp model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, model.RoleUser, resp.Role)
	assert.Equal(t, "ada@example.com", resp.Email)

	// The stored credential is a hash, not the password itself.
	hash := store.creds[resp.ID]
	assert.NotEqual(t, "hunter22", hash)
	ok, err := auth.CheckPasswordHash("hunter22", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignupShortPassword(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
		strings.NewReader(`{"fullName":"Ada","email":"ada@example.com","password":"123"}`))
	rr := httptest.NewRecorder()
	Signup(newFakeUserStore(), testSessions())(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "at least 6 characters")
}

func TestSignupMissingFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
		strings.NewReader(`{"email":"  ","password":"hunter22"}`))
	rr := httptest.NewRecorder()
	Signup(newFakeUserStore(), testSessions())(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin(t *testing.T) {
	store := newFakeUserStore()
	user := store.addUser(t, "Ada Lovelace", "ada@example.com", "hunter22", model.RoleUser)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"ada@example.com","password":"hunter22"}`))
	rr := httptest.NewRecorder()
	Login(store, testSessions())(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.ElementsMatch(t, []string{"jwt", "refresh_token"}, cookieNames(rr))

	var resp model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.ID)
}

func TestLoginBadCredentials(t *testing.T) {
	store := newFakeUserStore()
	store.addUser(t, "Ada Lovelace", "ada@example.com", "hunter22", model.RoleUser)

	// Wrong password and unknown email produce the identical answer.
	bodies := []string{
		`{"email":"ada@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"hunter22"}`,
	}
	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		rr := httptest.NewRecorder()
		Login(store, testSessions())(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid email or password")
		assert.Empty(t, cookieNames(rr))
	}
}

func TestCheckAuth(t *testing.T) {
	store := newFakeUserStore()
	user := store.addUser(t, "Ada Lovelace", "ada@example.com", "hunter22", model.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, user.ID))
	rr := httptest.NewRecorder()
	CheckAuth(store)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.ID)
}

func TestUpdateAccountEmailTaken(t *testing.T) {
	store := newFakeUserStore()
	user := store.addUser(t, "Ada Lovelace", "ada@example.com", "hunter22", model.RoleUser)
	store.addUser(t, "Grace Hopper", "grace@example.com", "hunter22", model.RoleUser)

	req := httptest.NewRequest(http.MethodPut, "/api/auth/update",
		strings.NewReader(`{"email":"grace@example.com"}`))
	req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, user.ID))
	rr := httptest.NewRecorder()
	UpdateAccount(store)(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "Email already in use")
}

func TestUpdateAccountPasswordChange(t *testing.T) {
	store := newFakeUserStore()
	user := store.addUser(t, "Ada Lovelace", "ada@example.com", "hunter22", model.RoleUser)

	t.Run("wrong current password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/auth/update",
			strings.NewReader(`{"currentPassword":"wrong","newPassword":"newpass123"}`))
		req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, user.ID))
		rr := httptest.NewRecorder()
		UpdateAccount(store)(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Current password is incorrect")
	})

	t.Run("valid change", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/auth/update",
			strings.NewReader(`{"currentPassword":"hunter22","newPassword":"newpass123"}`))
		req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, user.ID))
		rr := httptest.NewRecorder()
		UpdateAccount(store)(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		ok, err := auth.CheckPasswordHash("newpass123", store.creds[user.ID])
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
