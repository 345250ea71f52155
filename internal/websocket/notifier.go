package websocket

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/lmarchetti/sidechat/internal/model"
)

type peerEmitter interface {
	EmitToUser(userID uuid.UUID, ev Event) bool
}

// Notifier routes message lifecycle events to the affected peer.
// Callers invoke it strictly after the database write has committed,
// so a peer that receives an event can always fetch the record.
// Delivery is fire-and-forget: an offline peer simply misses the live
// update and sees the correct state on its next full fetch.
type Notifier struct {
	hub peerEmitter
	log *slog.Logger
}

// NewNotifier returns a new instance of Notifier.
func NewNotifier(hub peerEmitter, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{hub: hub, log: log}
}

// MessageCreated pushes the persisted message to its receiver.
func (n *Notifier) MessageCreated(m model.Message) {
	if !n.hub.EmitToUser(m.ReceiverID, NewMessageEvent(m)) {
		n.log.Debug("receiver offline, newMessage not delivered",
			"message_id", m.ID.String(),
			"receiver_id", m.ReceiverID.String())
	}
}

// MessageUpdated pushes the updated record to the receiver only; the
// editing client updates its own view from the HTTP response.
func (n *Notifier) MessageUpdated(m model.Message) {
	if !n.hub.EmitToUser(m.ReceiverID, MessageUpdatedEvent(m)) {
		n.log.Debug("receiver offline, messageUpdated not delivered",
			"message_id", m.ID.String(),
			"receiver_id", m.ReceiverID.String())
	}
}

// MessageDeleted notifies the party that did not perform the deletion.
// Either participant may delete, so the target is computed relative to
// the caller.
func (n *Notifier) MessageDeleted(callerID uuid.UUID, m model.Message) {
	other := m.OtherParty(callerID)
	if !n.hub.EmitToUser(other, MessageDeletedEvent(m.ID)) {
		n.log.Debug("peer offline, messageDeleted not delivered",
			"message_id", m.ID.String(),
			"peer_id", other.String())
	}
}
