package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 54 * time.Second
	sendBuffer   = 64
)

// Client wraps one websocket connection as a hub Session.
type Client struct {
	UserID uuid.UUID

	conn      *websocket.Conn
	hub       *Hub
	sendCh    chan Event
	closeOnce sync.Once
	log       *slog.Logger
}

// NewClient returns a new instance of Client.
func NewClient(conn *websocket.Conn, userID uuid.UUID, hub *Hub, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		UserID: userID,
		conn:   conn,
		hub:    hub,
		sendCh: make(chan Event, sendBuffer),
		log:    log,
	}
}

// Send queues ev for the write pump. Never blocks; a full buffer means
// the event is dropped for this slow client.
func (c *Client) Send(ev Event) bool {
	select {
	case c.sendCh <- ev:
		return true
	default:
		return false
	}
}

// Shutdown closes the connection. Used by the hub when this session is
// superseded by a newer connection for the same user.
func (c *Client) Shutdown(reason string) {
	c.closeOnce.Do(func() {
		_ = c.conn.Close(websocket.StatusGoingAway, reason)
	})
}

// WriteMessage drains the send buffer into the websocket stream and
// keeps the connection alive with pings. A failed write or ping is
// left for the read loop to observe; disconnect handling lives there.
func (c *Client) WriteMessage(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.sendCh:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(writeCtx, c.conn, ev)
			cancel()
			if err != nil {
				c.log.Warn("failed to write event",
					"error", err,
					"event", ev.Name,
					"user_id", c.UserID.String())
				return
			}

		case <-ticker.C:
			// Firewalls and proxies invalidate idle connections; ping
			// within the deadline to keep traffic flowing. Ping also
			// waits for the pong, so a dead peer surfaces here.
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.log.Warn("keepalive ping failed", "error", err, "user_id", c.UserID.String())
				return
			}

		case <-ctx.Done():
			c.Shutdown("context cancelled")
			return
		}
	}
}

// ReadMessage drains the incoming stream. Clients never send domain
// data upstream on this channel; the read loop exists to detect
// disconnect, which must unregister exactly once.
func (c *Client) ReadMessage(ctx context.Context) {
	defer func() {
		c.hub.Disconnect(c.UserID, c)
		c.conn.CloseNow()
	}()

	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure &&
				status != websocket.StatusGoingAway &&
				status != -1 {
				c.log.Warn("read error", "error", err, "user_id", c.UserID.String())
			}
			return
		}
	}
}
