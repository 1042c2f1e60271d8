// Package push is the real-time channel to authenticated browser clients.
// Sessions are event-oriented websocket connections: the client opens the
// socket, authenticates with a bearer token in an auth frame, and from then
// on receives the domain events the notifier broadcasts.
package push

import (
	"sync"

	Logger "github.com/pagestreamhq/pagestream/utils/log"
)

// Frame is one event on the wire, in either direction.
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Server-emitted lifecycle events.
const (
	EventConnected  = "connected"
	EventJoinedRoom = "joined_room"
)

// Client-emitted events.
const (
	eventAuth     = "auth"
	eventJoinRoom = "join_room"
)

// Hub maintains the process-wide session map. Handshake, disconnect and
// broadcast all mutate it concurrently; a single RWMutex serializes access.
type Hub struct {
	mu sync.RWMutex

	// session id -> session. Only authenticated sessions are ever added.
	sessions map[string]*Session

	// room name -> session ids.
	rooms map[string]map[string]bool
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]bool),
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.Id] = s
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s.Id]; !ok {
		return
	}
	delete(h.sessions, s.Id)
	for _, members := range h.rooms {
		delete(members, s.Id)
	}
	s.close()
}

func (h *Hub) joinRoom(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[string]bool)
	}
	h.rooms[room][s.Id] = true
}

// SessionCount returns the number of active authenticated sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Subject returns the authenticated subject of a session, if present.
func (h *Hub) Subject(sessionId string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[sessionId]
	if !ok {
		return "", false
	}
	return s.Subject, true
}

// Broadcast emits the event to every connected session. The emit is
// fire-and-forget from the caller's perspective: each session's write pump
// owns actual delivery. A session whose outbound queue is full or closed is
// treated as failed, logged, and removed from the map; the broadcast
// continues to the remaining sessions.
func (h *Hub) Broadcast(event string, data interface{}) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	frame := Frame{Event: event, Data: data}
	for _, s := range targets {
		if !s.enqueue(frame) {
			Logger.Log.Warnf("push delivery failed for session %s (subject %s), dropping session", s.Id, s.Subject)
			h.unregister(s)
		}
	}
}
