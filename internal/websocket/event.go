package websocket

import (
	"github.com/google/uuid"

	"github.com/lmarchetti/sidechat/internal/model"
)

// Event names match the wire protocol the frontend listens on.
const (
	EventOnlineUsers    = "getOnlineUsers"
	EventNewMessage     = "newMessage"
	EventMessageUpdated = "messageUpdated"
	EventMessageDeleted = "messageDeleted"
)

// Event is a server-initiated push. Data is marshaled as-is; events are
// transient and never persisted by this layer.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// OnlineUsersEvent carries a fresh snapshot of online user ids, not a
// diff. The caller provides the ids already sorted.
func OnlineUsersEvent(ids []uuid.UUID) Event {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return Event{Name: EventOnlineUsers, Data: strs}
}

func NewMessageEvent(m model.Message) Event {
	return Event{Name: EventNewMessage, Data: m}
}

func MessageUpdatedEvent(m model.Message) Event {
	return Event{Name: EventMessageUpdated, Data: m}
}

func MessageDeletedEvent(id uuid.UUID) Event {
	return Event{Name: EventMessageDeleted, Data: id.String()}
}
