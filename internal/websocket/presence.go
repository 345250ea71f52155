package websocket

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Session is the send side of one realtime connection. The hub only
// needs these two operations, so tests swap in fakes.
type Session interface {
	// Send queues an event without blocking. Returns false if the
	// session's buffer is full and the event was dropped.
	Send(ev Event) bool

	// Shutdown closes the underlying connection. Safe to call more
	// than once.
	Shutdown(reason string)
}

// Table maps user ids to their live session. At most one session per
// user id: a later Register for the same id supersedes the earlier one
// (the caller is handed the superseded session and must close it).
//
// All methods are linearizable with respect to each other.
type Table struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]Session
}

func NewTable() *Table {
	return &Table{sessions: make(map[uuid.UUID]Session)}
}

// Register stores the mapping and returns the superseded session, if
// any.
func (t *Table) Register(userID uuid.UUID, s Session) Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.sessions[userID]
	t.sessions[userID] = s
	return prev
}

// Unregister removes the mapping only while it still points at s. A
// disconnect of a superseded session must not evict the live one, so
// callers pass the session captured at connect time.
func (t *Table) Unregister(userID uuid.UUID, s Session) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.sessions[userID]; ok && current == s {
		delete(t.sessions, userID)
		return true
	}
	return false
}

func (t *Table) Lookup(userID uuid.UUID) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[userID]
	return s, ok
}

// Snapshot returns all registered user ids, sorted for deterministic
// output.
func (t *Table) Snapshot() []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})
	return ids
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (t *Table) all() []Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	sessions := make([]Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}
