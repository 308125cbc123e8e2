// Package ws hosts the per-user push channel. It keeps websocket lifecycle
// and fan-out isolated from domain logic; services publish typed events and
// never learn whether a recipient is connected.
package ws

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/google/uuid"
)

const (
	EventNotificationCreated = "notification:created"
	EventNotificationRead    = "notification:read"
	EventMessageReceived     = "message:received"
	EventBookingStateChanged = "booking:state_changed"
)

// Event is the single frame shape pushed to clients, switched on Type.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// sendQueueSize bounds how far a slow connection may fall behind before it
// is dropped.
const sendQueueSize = 32

// peer buffers outbound events for one connection. A single writer goroutine
// drains the queue, so frames never interleave and always arrive in publish
// order.
type peer struct {
	encoder *json.Encoder
	closer  io.Closer
	queue   chan Event
	done    chan struct{}
	once    sync.Once
}

func newPeer(w io.Writer, closer io.Closer) *peer {
	return &peer{
		encoder: json.NewEncoder(w),
		queue:   make(chan Event, sendQueueSize),
		done:    make(chan struct{}),
	}
}

// enqueue hands the event to the writer goroutine without blocking. A full
// queue or a closed peer reports false; the caller drops the connection.
func (p *peer) enqueue(ev Event) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.queue <- ev:
		return true
	default:
		return false
	}
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		if p.closer != nil {
			_ = p.closer.Close()
		}
	})
}

// Hub tracks live connections per user. Multiple connections for one user
// (multiple tabs) each receive every event. The hub holds no durable state;
// a reconnecting client reconciles against the notification inbox.
type Hub struct {
	mu    sync.Mutex
	peers map[uuid.UUID]map[*peer]struct{}
}

func NewHub() *Hub {
	return &Hub{peers: make(map[uuid.UUID]map[*peer]struct{})}
}

func (h *Hub) attach(userID uuid.UUID, p *peer) {
	h.mu.Lock()
	set, ok := h.peers[userID]
	if !ok {
		set = make(map[*peer]struct{})
		h.peers[userID] = set
	}
	set[p] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(userID, p)
}

// writeLoop is the peer's only writer. A failed write drops the connection.
func (h *Hub) writeLoop(userID uuid.UUID, p *peer) {
	for {
		select {
		case ev := <-p.queue:
			if err := p.encoder.Encode(ev); err != nil {
				h.detach(userID, p)
				p.close()
				return
			}
		case <-p.done:
			return
		}
	}
}

func (h *Hub) detach(userID uuid.UUID, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.peers[userID]
	if !ok {
		return
	}
	delete(set, p)
	if len(set) == 0 {
		delete(h.peers, userID)
	}
}

// Connections reports how many live connections the user has.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers[userID])
}

// Publish delivers the event to every live connection of the user. Delivery
// is at-most-once and fire-and-forget: events are queued to each peer's
// writer goroutine, and a peer whose queue is full or whose write fails is
// dropped rather than surfacing an error to the mutation that triggered it.
func (h *Hub) Publish(userID uuid.UUID, ev Event) {
	h.mu.Lock()
	targets := make([]*peer, 0, len(h.peers[userID]))
	for p := range h.peers[userID] {
		targets = append(targets, p)
	}
	h.mu.Unlock()

	for _, p := range targets {
		if !p.enqueue(ev) {
			h.detach(userID, p)
			p.close()
		}
	}
}
