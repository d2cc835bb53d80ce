package streaming

import (
	"log"
	"sync"
	"time"
)

// clientBuffer sizes each consumer's event channel. Ingestion emits a
// handful of events per file, so a small buffer absorbs normal bursts.
const clientBuffer = 16

// terminalSendTimeout bounds delivery of complete/error events to a
// consumer that has stopped reading.
const terminalSendTimeout = 100 * time.Millisecond

// Client is one connected stream consumer. Events is closed when the
// client is unregistered or the session ends.
type Client struct {
	Events chan SSEEvent
}

// session tracks the live consumers of one upload.
type session struct {
	clients map[*Client]struct{}
}

// StreamHub fans upload pipeline events out to the SSE consumers of
// each session. Uploads run synchronously inside their request, so
// events broadcast to a session nobody watches are dropped, not
// buffered; the upload response itself carries the final counts.
type StreamHub struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewStreamHub creates an empty hub.
func NewStreamHub() *StreamHub {
	return &StreamHub{sessions: make(map[string]*session)}
}

// Register subscribes a new client to a session, creating the session
// on first use.
func (h *StreamHub) Register(sessionID string) *Client {
	client := &Client{Events: make(chan SSEEvent, clientBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	sess := h.sessions[sessionID]
	if sess == nil {
		sess = &session{clients: make(map[*Client]struct{})}
		h.sessions[sessionID] = sess
	}
	sess.clients[client] = struct{}{}
	return client
}

// Unregister drops a client and closes its channel. The session is
// removed when its last client leaves. Safe to call more than once for
// the same client.
func (h *StreamHub) Unregister(sessionID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess := h.sessions[sessionID]
	if sess == nil {
		return
	}
	if _, ok := sess.clients[client]; !ok {
		return
	}
	delete(sess.clients, client)
	close(client.Events)
	if len(sess.clients) == 0 {
		delete(h.sessions, sessionID)
	}
}

// Broadcast delivers an event to every client of the session. Progress
// events are dropped per-client when a consumer falls behind; terminal
// events get a bounded grace period instead, then the whole session is
// torn down. Broadcasting to an unknown session is a no-op.
func (h *StreamHub) Broadcast(sessionID string, event SSEEvent) {
	terminal := event.Type == EventTypeComplete || event.Type == EventTypeError

	h.mu.Lock()
	defer h.mu.Unlock()
	sess := h.sessions[sessionID]
	if sess == nil {
		return
	}

	for client := range sess.clients {
		if terminal {
			h.sendTerminal(sessionID, client, event)
			continue
		}
		select {
		case client.Events <- event:
		default:
			// Slow consumer; progress events are lossy.
		}
	}

	if terminal {
		for client := range sess.clients {
			close(client.Events)
		}
		delete(h.sessions, sessionID)
	}
}

// sendTerminal delivers a complete/error event to one client. When the
// client's buffer is full the oldest pending event is evicted to make
// room, so the terminal event outlives any backlog of progress events.
func (h *StreamHub) sendTerminal(sessionID string, client *Client, event SSEEvent) {
	select {
	case client.Events <- event:
		return
	default:
	}
	select {
	case <-client.Events:
	default:
	}
	select {
	case client.Events <- event:
	case <-time.After(terminalSendTimeout):
		log.Printf("WARNING: dropped %s event for session %s: client not reading", event.Type, sessionID)
	}
}

// IsRunning reports whether the session has any connected clients.
func (h *StreamHub) IsRunning(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[sessionID]
	return ok
}
