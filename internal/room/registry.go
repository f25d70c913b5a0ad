package room

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Option func(*Registry)

// WithDropEmptyRooms makes Leave discard a room once its last participant is
// gone. The default keeps rooms, and their transcripts, for the life of the
// process.
func WithDropEmptyRooms(drop bool) Option {
	return func(r *Registry) { r.dropEmpty = drop }
}

// WithIDGenerator replaces the UUID generator used by CreateRoom.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// Registry is the process-wide room store. All methods are safe for
// concurrent use; returned maps and slices are copies owned by the caller.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*roomState

	dropEmpty bool
	newID     func() string
}

type roomState struct {
	mu           sync.Mutex
	participants map[string]Participant
	messages     []Message
	// removed is set under both locks when the room leaves the map, so a
	// writer holding a stale pointer knows to look the room up again.
	removed bool
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms: make(map[string]*roomState),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRoom registers an empty room under a fresh identifier and returns it.
func (r *Registry) CreateRoom() string {
	for {
		id := r.newID()
		r.mu.Lock()
		if _, exists := r.rooms[id]; !exists {
			r.rooms[id] = newRoomState()
			r.mu.Unlock()
			return id
		}
		r.mu.Unlock()
	}
}

// EnsureRoom creates roomID if it does not exist yet.
func (r *Registry) EnsureRoom(roomID string) {
	r.ensure(roomID)
}

// Join adds p to roomID, replacing any participant with the same peer ID, and
// returns the participants after the insert.
func (r *Registry) Join(roomID string, p Participant) Participants {
	var snapshot Participants
	r.withRoom(roomID, func(st *roomState) {
		st.participants[p.PeerID] = p
		snapshot = copyParticipants(st.participants)
	})
	return snapshot
}

// Leave removes peerID from roomID and reports whether it was present.
func (r *Registry) Leave(roomID, peerID string) bool {
	return r.remove(roomID, peerID, "")
}

// LeaveConn removes peerID from roomID only while the entry still belongs to
// connID. A connection whose peer ID was taken over by a later join gets
// false and leaves the new entry in place.
func (r *Registry) LeaveConn(roomID, peerID, connID string) bool {
	return r.remove(roomID, peerID, connID)
}

func (r *Registry) remove(roomID, peerID, connID string) bool {
	st := r.lookup(roomID)
	if st == nil {
		return false
	}

	st.mu.Lock()
	p, ok := st.participants[peerID]
	if ok && connID != "" && p.ConnID != connID {
		ok = false
	}
	if ok {
		delete(st.participants, peerID)
	}
	empty := len(st.participants) == 0
	st.mu.Unlock()

	if ok && empty && r.dropEmpty {
		r.dropIfEmpty(roomID, st)
	}
	return ok
}

// Rename changes the display name of peerID in roomID. It reports false and
// changes nothing when the participant is not in the room.
func (r *Registry) Rename(roomID, peerID, userName string) bool {
	st := r.lookup(roomID)
	if st == nil {
		return false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.participants[peerID]
	if !ok {
		return false
	}
	p.UserName = userName
	st.participants[peerID] = p
	return true
}

// AppendMessage adds msg to the end of the room transcript.
func (r *Registry) AppendMessage(roomID string, msg Message) {
	stored := slices.Clone(msg)
	r.withRoom(roomID, func(st *roomState) {
		st.messages = append(st.messages, stored)
	})
}

// Messages returns the transcript of roomID in append order. Unknown rooms
// yield an empty, non-nil slice.
func (r *Registry) Messages(roomID string) []Message {
	st := r.lookup(roomID)
	if st == nil {
		return []Message{}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Message, len(st.messages))
	copy(out, st.messages)
	return out
}

// Participants returns the members of roomID. Unknown rooms yield an empty,
// non-nil map.
func (r *Registry) Participants(roomID string) Participants {
	st := r.lookup(roomID)
	if st == nil {
		return Participants{}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return copyParticipants(st.participants)
}

// Stats reports membership and transcript size for roomID.
func (r *Registry) Stats(roomID string) (Stats, bool) {
	st := r.lookup(roomID)
	if st == nil {
		return Stats{}, false
	}
	st.mu.Lock()
	members := lo.Values(st.participants)
	count := len(st.messages)
	st.mu.Unlock()

	slices.SortFunc(members, func(a, b Participant) int {
		return strings.Compare(a.PeerID, b.PeerID)
	})
	return Stats{RoomID: roomID, Participants: members, MessageCount: count}, true
}

// Len returns the number of rooms currently held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) lookup(roomID string) *roomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

func (r *Registry) ensure(roomID string) *roomState {
	if st := r.lookup(roomID); st != nil {
		return st
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.rooms[roomID]; ok {
		return st
	}
	st := newRoomState()
	r.rooms[roomID] = st
	return st
}

// withRoom runs fn with the room's lock held, creating the room when needed.
func (r *Registry) withRoom(roomID string, fn func(*roomState)) {
	for {
		st := r.ensure(roomID)
		st.mu.Lock()
		if st.removed {
			st.mu.Unlock()
			continue
		}
		fn(st)
		st.mu.Unlock()
		return
	}
}

func (r *Registry) dropIfEmpty(roomID string, st *roomState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[roomID] != st {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.participants) != 0 {
		return
	}
	st.removed = true
	delete(r.rooms, roomID)
}

func newRoomState() *roomState {
	return &roomState{
		participants: make(map[string]Participant),
		messages:     []Message{},
	}
}

func copyParticipants(in map[string]Participant) Participants {
	out := make(Participants, len(in))
	for id, p := range in {
		out[id] = p
	}
	return out
}
