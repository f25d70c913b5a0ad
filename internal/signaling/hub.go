package signaling

import "sync"

// member is a connection that can receive broadcast frames.
type member interface {
	enqueue(frame []byte) error
}

// Hub tracks which connections are subscribed to which room and fans encoded
// frames out to them.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[member]struct{}
}

func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[member]struct{})}
}

func (h *Hub) subscribe(roomID string, m member) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[roomID]
	if !ok {
		g = make(map[member]struct{})
		h.groups[roomID] = g
	}
	g[m] = struct{}{}
}

func (h *Hub) unsubscribe(roomID string, m member) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[roomID]
	if !ok {
		return
	}
	delete(g, m)
	if len(g) == 0 {
		delete(h.groups, roomID)
	}
}

// broadcast enqueues frame on every subscriber of roomID except the sender.
// Failed enqueues are returned so the caller can log and count them; they do
// not affect delivery to the remaining subscribers.
func (h *Hub) broadcast(roomID string, except member, frame []byte) (delivered int, failed []error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for m := range h.groups[roomID] {
		if m == except {
			continue
		}
		if err := m.enqueue(frame); err != nil {
			failed = append(failed, err)
			continue
		}
		delivered++
	}
	return delivered, failed
}

// Subscribers returns the number of connections subscribed to roomID.
func (h *Hub) Subscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[roomID])
}
