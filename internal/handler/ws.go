package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/lmarchetti/sidechat/internal/apperr"
	"github.com/lmarchetti/sidechat/internal/auth"
	ws "github.com/lmarchetti/sidechat/internal/websocket"
)

// IdentityResolver maps an incoming handshake request to a user id.
// The trust model is a deployment choice, injected here so the
// handshake logic itself stays uniform.
//
// A (uuid.Nil, nil) result means "no identity, but accept anyway": the
// connection is upgraded at the transport level and never registered
// in the presence table. A non-nil error refuses the handshake.
type IdentityResolver interface {
	Resolve(r *http.Request) (uuid.UUID, error)
}

// DeclaredIdentity trusts a userId query parameter with no
// verification at the channel layer. Only suitable when the origin
// allow-list is trusted; the REST login already authenticated the
// browser session.
type DeclaredIdentity struct{}

func (DeclaredIdentity) Resolve(r *http.Request) (uuid.UUID, error) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		return uuid.Nil, nil
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		// Garbage ids are treated like a missing one: connected but
		// never registered, never targeted.
		return uuid.Nil, nil
	}
	return userID, nil
}

// TokenIdentity verifies a JWT before accepting the connection. The
// token comes from the jwt cookie, an Authorization bearer header, or
// a token query parameter.
type TokenIdentity struct {
	Secret string
}

func (ti TokenIdentity) Resolve(r *http.Request) (uuid.UUID, error) {
	token := ""
	if cookie, err := r.Cookie("jwt"); err == nil {
		token = cookie.Value
	}
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return uuid.UUID{}, apperr.Unauthorized("authentication error")
	}

	userID, err := auth.ValidateJWT(token, ti.Secret)
	if err != nil {
		return uuid.UUID{}, apperr.Unauthorized("authentication error")
	}
	return userID, nil
}

// ServeWs handles the client's websocket connection upgrade and wires
// the connection into the hub.
func ServeWs(hub *ws.Hub, resolver IdentityResolver, allowedOrigins []string, log *slog.Logger) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Refuse before the upgrade so an invalid token never reaches
		// the presence table.
		userID, err := resolver.Resolve(r)
		if err != nil {
			respondError(w, err)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: allowedOrigins,
		})
		if err != nil {
			log.Warn("failed to upgrade connection", "error", err)
			return
		}

		c := ws.NewClient(conn, userID, hub, log)

		// No resolvable identity: keep the transport open but never
		// register, so the user is not announced online and receives
		// no targeted events.
		if userID != uuid.Nil {
			hub.Connect(userID, c)
		}

		// Block on the read loop: the request context is cancelled as
		// soon as this handler returns.
		go c.WriteMessage(ctx)
		c.ReadMessage(ctx)
	}
}
