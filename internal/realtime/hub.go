package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/swarmchat-backend/internal/logger"
)

// writeTimeout bounds every socket write so one stalled client cannot hold up
// delivery to the rest.
const writeTimeout = 10 * time.Second

// Conn is the slice of a websocket connection the hub needs. *websocket.Conn
// from gorilla satisfies it.
type Conn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
}

// client wraps a registered connection with its own write mutex; gorilla conns
// support at most one concurrent writer.
type client struct {
	mu   sync.Mutex
	conn Conn
}

func (c *client) send(envelope Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(envelope)
}

// Hub is the process-local connection registry. Connections are indexed by
// scope (subgroup or session) and by participant for direct sends; none of
// this state is ever persisted. Delivery is best-effort at-most-once: a failed
// send prunes the connection and moves on. Registry reads take the RLock and
// socket writes happen outside it, so a slow client never blocks connects,
// disconnects, or delivery to its peers.
type Hub struct {
	mu       sync.RWMutex
	log      *logger.Logger
	subgroup map[uuid.UUID]map[uuid.UUID]*client
	session  map[uuid.UUID]map[uuid.UUID]*client
	direct   map[uuid.UUID]*client
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:      log.With("component", "Hub"),
		subgroup: make(map[uuid.UUID]map[uuid.UUID]*client),
		session:  make(map[uuid.UUID]map[uuid.UUID]*client),
		direct:   make(map[uuid.UUID]*client),
	}
}

func (h *Hub) ConnectToSubgroup(participantID, subgroupID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.subgroup[subgroupID]
	if !ok {
		conns = make(map[uuid.UUID]*client)
		h.subgroup[subgroupID] = conns
	}
	c := &client{conn: conn}
	conns[participantID] = c
	h.direct[participantID] = c
	h.log.Debug("participant connected to subgroup", "participantID", participantID, "subgroupID", subgroupID)
}

func (h *Hub) ConnectToSession(participantID, sessionID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.session[sessionID]
	if !ok {
		conns = make(map[uuid.UUID]*client)
		h.session[sessionID] = conns
	}
	c := &client{conn: conn}
	conns[participantID] = c
	h.direct[participantID] = c
	h.log.Debug("participant connected to session", "participantID", participantID, "sessionID", sessionID)
}

func (h *Hub) DisconnectFromSubgroup(participantID, subgroupID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.direct, participantID)
	if conns, ok := h.subgroup[subgroupID]; ok {
		delete(conns, participantID)
		if len(conns) == 0 {
			delete(h.subgroup, subgroupID)
		}
	}
}

func (h *Hub) DisconnectFromSession(participantID, sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.direct, participantID)
	if conns, ok := h.session[sessionID]; ok {
		delete(conns, participantID)
		if len(conns) == 0 {
			delete(h.session, sessionID)
		}
	}
}

func (h *Hub) BroadcastToSubgroup(subgroupID uuid.UUID, event string, data any) {
	h.broadcast(h.subgroup, subgroupID, event, data)
}

func (h *Hub) BroadcastToSession(sessionID uuid.UUID, event string, data any) {
	h.broadcast(h.session, sessionID, event, data)
}

func (h *Hub) broadcast(index map[uuid.UUID]map[uuid.UUID]*client, scopeID uuid.UUID, event string, data any) {
	h.mu.RLock()
	conns, ok := index[scopeID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make(map[uuid.UUID]*client, len(conns))
	for participantID, c := range conns {
		targets[participantID] = c
	}
	h.mu.RUnlock()

	envelope := Envelope{Event: event, Data: data}
	var dead []uuid.UUID
	for participantID, c := range targets {
		if err := c.send(envelope); err != nil {
			dead = append(dead, participantID)
		}
	}
	if len(dead) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok = index[scopeID]
	if !ok {
		return
	}
	for _, participantID := range dead {
		// Only prune if the entry is still the connection that failed; the
		// participant may have reconnected while we were writing.
		if conns[participantID] != targets[participantID] {
			continue
		}
		delete(conns, participantID)
		if h.direct[participantID] == targets[participantID] {
			delete(h.direct, participantID)
		}
		h.log.Debug("pruned dead connection", "participantID", participantID, "scopeID", scopeID)
	}
	if len(conns) == 0 {
		delete(index, scopeID)
	}
}

// SendToParticipant delivers to exactly one connection; absent participants
// are a silent no-op.
func (h *Hub) SendToParticipant(participantID uuid.UUID, event string, data any) {
	h.mu.RLock()
	c, ok := h.direct[participantID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := c.send(Envelope{Event: event, Data: data}); err != nil {
		h.mu.Lock()
		if h.direct[participantID] == c {
			delete(h.direct, participantID)
		}
		h.mu.Unlock()
	}
}

func (h *Hub) SubgroupOnlineCount(subgroupID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subgroup[subgroupID])
}
