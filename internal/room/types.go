package room

import (
	"encoding/json"
)

// Participant is a member of a room. PeerID is fixed for the life of the
// membership; UserName can be changed with Registry.Rename.
type Participant struct {
	PeerID   string `json:"peerId"`
	UserName string `json:"userName"`
	// ConnID identifies the connection that joined as PeerID. It never leaves
	// the process.
	ConnID string `json:"-"`
}

// Participants maps peer ID to participant. It encodes as a JSON object keyed
// by peer ID.
type Participants map[string]Participant

// Message is a chat entry exactly as the sender supplied it.
type Message json.RawMessage

func (m Message) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return m, nil
}

func (m *Message) UnmarshalJSON(data []byte) error {
	*m = append((*m)[:0], data...)
	return nil
}

// Stats summarizes a room for inspection endpoints.
type Stats struct {
	RoomID       string        `json:"roomId"`
	Participants []Participant `json:"participants"`
	MessageCount int           `json:"messageCount"`
}
