package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmarchetti/sidechat/internal/auth"
	"github.com/lmarchetti/sidechat/internal/metrics"
	ws "github.com/lmarchetti/sidechat/internal/websocket"
)

func TestDeclaredIdentityResolve(t *testing.T) {
	userID := uuid.New()

	t.Run("valid userId", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws?userId="+userID.String(), nil)
		got, err := DeclaredIdentity{}.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("missing userId accepts without identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		got, err := DeclaredIdentity{}.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, got)
	})

	t.Run("garbage userId accepts without identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws?userId=not-a-uuid", nil)
		got, err := DeclaredIdentity{}.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, got)
	})
}

func TestTokenIdentityResolve(t *testing.T) {
	const secret = "test-secret"
	userID := uuid.New()
	resolver := TokenIdentity{Secret: secret}

	token, err := auth.MakeJWT(userID, secret, time.Minute)
	require.NoError(t, err)

	t.Run("jwt cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
		got, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		got, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("token query parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
		got, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("missing token refused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		_, err := resolver.Resolve(req)
		assert.Error(t, err)
	})

	t.Run("wrong secret refused", func(t *testing.T) {
		forged, err := auth.MakeJWT(userID, "other-secret", time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: forged})
		_, err = resolver.Resolve(req)
		assert.Error(t, err)
	})

	t.Run("expired token refused", func(t *testing.T) {
		expired, err := auth.MakeJWT(userID, secret, -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: expired})
		_, err = resolver.Resolve(req)
		assert.Error(t, err)
	})
}

func TestServeWsRefusesBeforeUpgrade(t *testing.T) {
	hub := ws.NewHub(metrics.New(prometheus.NewRegistry()), nil)
	h := ServeWs(hub, TokenIdentity{Secret: "test-secret"}, []string{"localhost:*"}, nil)

	// No token: the handshake is refused with a plain 401 and the
	// connection is never upgraded or registered.
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rr := httptest.NewRecorder()
	h(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, hub.OnlineUsers())
}
