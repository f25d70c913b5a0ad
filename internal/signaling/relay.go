package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/KevinRamirezAmaya/webRTC/internal/metrics"
	"github.com/KevinRamirezAmaya/webRTC/internal/room"
)

// Transport is the connection a Relay is bound to.
type Transport interface {
	// Emit queues an event for this connection only.
	Emit(event string, payload any) error
	// Broadcast queues an event for every other connection subscribed to roomID.
	Broadcast(roomID, event string, payload any)
	Subscribe(roomID string)
	Unsubscribe(roomID string)
}

type State int

const (
	StateUnjoined State = iota
	StateJoined
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RelayConfig holds the state shared by every Relay in a process.
type RelayConfig struct {
	Registry *room.Registry
	// Locks must be shared by all relays using Registry.
	Locks   *RoomLocks
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// ConnID tags the registry entries this relay creates. A random UUID is
	// used when empty.
	ConnID string
}

// Relay applies the inbound events of one connection.
//
// A Relay is not safe for concurrent use; the connection's read loop owns it.
type Relay struct {
	registry  *room.Registry
	locks     *RoomLocks
	metrics   *metrics.Metrics
	log       *slog.Logger
	transport Transport
	connID    string

	state  State
	roomID string
	peerID string
}

func NewRelay(cfg RelayConfig, t Transport) *Relay {
	if cfg.Registry == nil {
		cfg.Registry = room.NewRegistry()
	}
	if cfg.Locks == nil {
		cfg.Locks = NewRoomLocks()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConnID == "" {
		cfg.ConnID = uuid.NewString()
	}
	return &Relay{
		registry:  cfg.Registry,
		locks:     cfg.Locks,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		transport: t,
		connID:    cfg.ConnID,
	}
}

func (r *Relay) State() State { return r.state }

// Binding returns the room and peer the connection is joined as.
func (r *Relay) Binding() (roomID, peerID string, ok bool) {
	if r.state != StateJoined {
		return "", "", false
	}
	return r.roomID, r.peerID, true
}

// HandleFrame decodes and applies one raw inbound message.
func (r *Relay) HandleFrame(raw []byte) error {
	if r.state == StateDisconnected {
		return ErrDisconnected
	}
	f, err := ParseFrame(raw)
	if err != nil {
		return r.reject(err)
	}
	return r.Handle(f.Event, f.Data)
}

// Handle applies one inbound event. A rejected event yields a *ProtocolError;
// it has already been logged and reported to the caller with an error event.
func (r *Relay) Handle(event string, data json.RawMessage) error {
	if r.state == StateDisconnected {
		return ErrDisconnected
	}

	var err error
	switch event {
	case EventCreateRoom:
		r.createRoom()
	case EventJoinRoom:
		err = r.joinRoom(data)
	case EventLeaveRoom:
		err = r.leaveRoom(data)
	case EventStartSharing:
		err = r.toggleSharing(event, EventUserStartedSharing, data)
	case EventStopSharing:
		err = r.toggleSharing(event, EventUserStoppedSharing, data)
	case EventSendMessage:
		err = r.sendMessage(data)
	case EventChangeName:
		err = r.changeName(data)
	case EventOffer, EventAnswer, EventICECandidate:
		err = r.negotiate(event, data)
	default:
		err = &ProtocolError{Event: event, Code: CodeUnknownEvent, Message: fmt.Sprintf("unknown event %q", event)}
	}
	if err != nil {
		return r.reject(err)
	}
	return nil
}

// Disconnect runs the departure path for whatever binding the connection
// holds. Later calls, and any events handled afterwards, do nothing.
func (r *Relay) Disconnect() {
	if r.state == StateDisconnected {
		return
	}
	if r.state == StateJoined {
		r.leave()
	}
	r.state = StateDisconnected
}

func (r *Relay) reject(err error) error {
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		return err
	}
	r.metrics.Inc(metrics.MalformedEvents)
	r.log.Warn("dropping signaling event",
		"event", perr.Event,
		"code", perr.Code,
		"room_id", r.roomID,
		"peer_id", r.peerID,
		"err", perr.Message,
	)
	_ = r.transport.Emit(EventError, ErrorNotice{Code: perr.Code, Message: perr.Error()})
	return err
}

func (r *Relay) createRoom() {
	roomID := r.registry.CreateRoom()
	r.metrics.Inc(metrics.RoomsCreated)
	r.log.Info("room created", "room_id", roomID)
	_ = r.transport.Emit(EventRoomCreated, RoomCreated{RoomID: roomID})
}

func (r *Relay) joinRoom(data json.RawMessage) error {
	var req JoinRoomRequest
	if err := decodeEvent(EventJoinRoom, data, &req); err != nil {
		return err
	}

	if r.state == StateJoined && (r.roomID != req.RoomID || r.peerID != req.PeerID) {
		r.leave()
	}

	unlock := r.locks.Lock(req.RoomID)
	defer unlock()

	r.registry.EnsureRoom(req.RoomID)
	_ = r.transport.Emit(EventGetMessages, r.registry.Messages(req.RoomID))

	p := room.Participant{PeerID: req.PeerID, UserName: req.UserName, ConnID: r.connID}
	participants := r.registry.Join(req.RoomID, p)
	r.transport.Subscribe(req.RoomID)
	r.state, r.roomID, r.peerID = StateJoined, req.RoomID, req.PeerID

	r.transport.Broadcast(req.RoomID, EventUserJoined, p)
	_ = r.transport.Emit(EventGetUsers, UsersUpdate{RoomID: req.RoomID, Participants: participants})

	r.metrics.Inc(metrics.RoomJoins)
	r.log.Info("peer joined room", "room_id", req.RoomID, "peer_id", req.PeerID, "participants", len(participants))
	return nil
}

func (r *Relay) leaveRoom(data json.RawMessage) error {
	var req PeerRoomRequest
	if err := decodeEvent(EventLeaveRoom, data, &req); err != nil {
		return err
	}
	if r.state != StateJoined {
		return nil
	}
	if r.roomID != req.RoomID || r.peerID != req.PeerID {
		return notJoined(EventLeaveRoom, req.RoomID)
	}
	r.leave()
	return nil
}

func (r *Relay) toggleSharing(event, outEvent string, data json.RawMessage) error {
	var req PeerRoomRequest
	if err := decodeEvent(event, data, &req); err != nil {
		return err
	}
	if err := r.requireMember(event, req.RoomID); err != nil {
		return err
	}

	unlock := r.locks.Lock(req.RoomID)
	defer unlock()
	r.transport.Broadcast(req.RoomID, outEvent, req.PeerID)
	r.metrics.Inc(metrics.SharingToggled)
	return nil
}

func (r *Relay) sendMessage(data json.RawMessage) error {
	var req SendMessageRequest
	if err := decodeEvent(EventSendMessage, data, &req); err != nil {
		return err
	}
	if err := r.requireMember(EventSendMessage, req.RoomID); err != nil {
		return err
	}

	msg := room.Message(req.Message)
	unlock := r.locks.Lock(req.RoomID)
	defer unlock()
	r.registry.AppendMessage(req.RoomID, msg)
	r.transport.Broadcast(req.RoomID, EventAddMessage, msg)
	r.metrics.Inc(metrics.ChatMessages)
	return nil
}

func (r *Relay) changeName(data json.RawMessage) error {
	var req ChangeNameRequest
	if err := decodeEvent(EventChangeName, data, &req); err != nil {
		return err
	}
	if err := r.requireMember(EventChangeName, req.RoomID); err != nil {
		return err
	}

	unlock := r.locks.Lock(req.RoomID)
	defer unlock()
	if !r.registry.Rename(req.RoomID, req.PeerID, req.UserName) {
		r.log.Debug("rename of unknown participant ignored", "room_id", req.RoomID, "peer_id", req.PeerID)
		return nil
	}
	r.transport.Broadcast(req.RoomID, EventNameChanged, NameChanged{PeerID: req.PeerID, UserName: req.UserName})
	r.metrics.Inc(metrics.NamesChanged)
	return nil
}

// negotiate forwards an offer, answer or ICE candidate. The per-connection
// read loop already orders a sender's events, and nothing in the registry
// changes, so no room lock is taken.
func (r *Relay) negotiate(event string, data json.RawMessage) error {
	var req NegotiationRequest
	if err := decodeEvent(event, data, &req); err != nil {
		return err
	}
	payload := req.payload(event)
	if !isPresent(payload) {
		return badMessage(event, "missing or invalid fields: %s", negotiationKey(event))
	}
	if err := r.requireMember(event, req.RoomID); err != nil {
		return err
	}

	r.transport.Broadcast(req.RoomID, event, negotiationPayload(event, payload, req.From))
	r.metrics.Inc(metrics.NegotiationRelayed)
	return nil
}

// leave drops the current binding and tells the rest of the room. When another
// connection has since joined with the same peer ID, its entry stays and
// nothing is broadcast.
func (r *Relay) leave() {
	roomID, peerID := r.roomID, r.peerID
	r.state, r.roomID, r.peerID = StateUnjoined, "", ""

	unlock := r.locks.Lock(roomID)
	defer unlock()

	r.transport.Unsubscribe(roomID)
	if !r.registry.LeaveConn(roomID, peerID, r.connID) {
		r.log.Debug("peer absent from room or owned by another connection", "room_id", roomID, "peer_id", peerID)
		return
	}
	r.transport.Broadcast(roomID, EventUserDisconnected, peerID)
	r.transport.Broadcast(roomID, EventGetUsers, UsersUpdate{RoomID: roomID, Participants: r.registry.Participants(roomID)})

	r.metrics.Inc(metrics.RoomLeaves)
	r.log.Info("peer left room", "room_id", roomID, "peer_id", peerID)
}

func (r *Relay) requireMember(event, roomID string) error {
	if r.state == StateJoined && r.roomID == roomID {
		return nil
	}
	return notJoined(event, roomID)
}

func notJoined(event, roomID string) *ProtocolError {
	return &ProtocolError{Event: event, Code: CodeNotJoined, Message: fmt.Sprintf("connection is not joined to room %q", roomID)}
}
