// Package websocket implements the realtime core: the presence table,
// the hub that broadcasts presence changes and routes message
// lifecycle events to the affected peer, and the connection client.
package websocket

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/lmarchetti/sidechat/internal/metrics"
)

// Hub owns the presence table for this process. Presence is pure
// in-memory cache: it starts empty and is rebuilt by clients
// reconnecting after a restart.
type Hub struct {
	table   *Table
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewHub returns a new instance of Hub.
func NewHub(m *metrics.Metrics, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		table:   NewTable(),
		metrics: m,
		log:     log,
	}
}

// Connect registers the session under userID and announces the new
// presence snapshot to everyone. A still-open session for the same
// user id is superseded and explicitly closed; its later disconnect is
// a no-op because the table entry no longer points at it.
func (h *Hub) Connect(userID uuid.UUID, s Session) {
	if prev := h.table.Register(userID, s); prev != nil {
		h.log.Info("session superseded", "user_id", userID.String())
		prev.Shutdown("session superseded")
	}

	h.metrics.OnlineUsers.Set(float64(h.table.Len()))
	h.log.Info("user connected", "user_id", userID.String(), "online", h.table.Len())
	h.broadcastPresence()
}

// Disconnect removes the registration if it still belongs to s, then
// announces the shrunk snapshot. Calling it twice, or for a session
// that was superseded, is a no-op.
func (h *Hub) Disconnect(userID uuid.UUID, s Session) {
	if !h.table.Unregister(userID, s) {
		return
	}

	h.metrics.OnlineUsers.Set(float64(h.table.Len()))
	h.log.Info("user disconnected", "user_id", userID.String(), "online", h.table.Len())
	h.broadcastPresence()
}

// EmitToUser pushes ev to the user's session. Returns false when the
// user is not in the presence table; callers treat that as "peer
// offline", not an error.
func (h *Hub) EmitToUser(userID uuid.UUID, ev Event) bool {
	s, ok := h.table.Lookup(userID)
	if !ok {
		return false
	}

	h.send(s, ev)
	return true
}

// Broadcast pushes ev to every registered session.
func (h *Hub) Broadcast(ev Event) {
	for _, s := range h.table.all() {
		h.send(s, ev)
	}
}

// OnlineUsers returns the ids of all currently connected users.
func (h *Hub) OnlineUsers() []uuid.UUID {
	return h.table.Snapshot()
}

// broadcastPresence pushes a fresh snapshot to all sessions. O(N) per
// connect/disconnect, which is fine at chat-app scale.
func (h *Hub) broadcastPresence() {
	h.Broadcast(OnlineUsersEvent(h.table.Snapshot()))
}

func (h *Hub) send(s Session, ev Event) {
	if !s.Send(ev) {
		h.metrics.EventsDropped.WithLabelValues(ev.Name).Inc()
		h.log.Warn("dropping event, client send buffer full", "event", ev.Name)
		return
	}
	h.metrics.EventsDelivered.WithLabelValues(ev.Name).Inc()
}
