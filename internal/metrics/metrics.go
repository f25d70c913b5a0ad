package metrics

import (
	"sync"

	"github.com/samber/lo"
)

// Counter names recorded by the signaling server.
const (
	ConnectionsOpened  = "connections_opened"
	ConnectionsClosed  = "connections_closed"
	OriginRejected     = "origin_rejected"
	RoomsCreated       = "rooms_created"
	RoomJoins          = "room_joins"
	RoomLeaves         = "room_leaves"
	ChatMessages       = "chat_messages"
	NamesChanged       = "names_changed"
	SharingToggled     = "sharing_toggled"
	NegotiationRelayed = "negotiation_relayed"
	MalformedEvents    = "malformed_events"
	RateLimitedEvents  = "rate_limited_events"
	SendDropped        = "send_dropped"
)

// Metrics is a concurrency-safe set of named counters.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, delta uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name] += delta
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of every counter.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return map[string]uint64{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Assign(m.m)
}
