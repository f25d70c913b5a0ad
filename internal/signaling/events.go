package signaling

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/KevinRamirezAmaya/webRTC/internal/room"
)

// Inbound events.
const (
	EventCreateRoom   = "create-room"
	EventJoinRoom     = "join-room"
	EventLeaveRoom    = "leave-room"
	EventStartSharing = "start-sharing"
	EventStopSharing  = "stop-sharing"
	EventSendMessage  = "send-message"
	EventChangeName   = "change-name"
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice-candidate"
)

// Outbound events. offer, answer and ice-candidate keep their inbound names.
const (
	EventRoomCreated        = "room-created"
	EventGetMessages        = "get-messages"
	EventGetUsers           = "get-users"
	EventUserJoined         = "user-joined"
	EventUserDisconnected   = "user-disconnected"
	EventUserStartedSharing = "user-started-sharing"
	EventUserStoppedSharing = "user-stopped-sharing"
	EventAddMessage         = "add-message"
	EventNameChanged        = "name-changed"
	EventError              = "error"
)

// Frame is the envelope of every WebSocket text message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRoomRequest struct {
	RoomID   string `json:"roomId" validate:"required"`
	PeerID   string `json:"peerId" validate:"required"`
	UserName string `json:"userName"`
}

// PeerRoomRequest is the payload of leave-room, start-sharing and stop-sharing.
type PeerRoomRequest struct {
	PeerID string `json:"peerId" validate:"required"`
	RoomID string `json:"roomId" validate:"required"`
}

type SendMessageRequest struct {
	RoomID  string          `json:"roomId" validate:"required"`
	Message json.RawMessage `json:"message" validate:"payload"`
}

type ChangeNameRequest struct {
	PeerID   string `json:"peerId" validate:"required"`
	UserName string `json:"userName" validate:"required"`
	RoomID   string `json:"roomId" validate:"required"`
}

// NegotiationRequest carries an offer, answer or ICE candidate. Only the field
// matching the event is read; its contents are forwarded untouched.
type NegotiationRequest struct {
	RoomID    string          `json:"roomId" validate:"required"`
	From      string          `json:"from" validate:"required"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

func (n NegotiationRequest) payload(event string) json.RawMessage {
	switch event {
	case EventOffer:
		return n.Offer
	case EventAnswer:
		return n.Answer
	case EventICECandidate:
		return n.Candidate
	}
	return nil
}

type RoomCreated struct {
	RoomID string `json:"roomId"`
}

type UsersUpdate struct {
	RoomID       string            `json:"roomId"`
	Participants room.Participants `json:"participants"`
}

type NameChanged struct {
	PeerID   string `json:"peerId"`
	UserName string `json:"userName"`
}

type ErrorNotice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// negotiationKey names the payload field of a negotiation event on the wire.
func negotiationKey(event string) string {
	if event == EventICECandidate {
		return "candidate"
	}
	return event
}

func negotiationPayload(event string, payload json.RawMessage, from string) map[string]any {
	return map[string]any{
		negotiationKey(event): payload,
		"from":                from,
	}
}

// ParseFrame decodes one inbound WebSocket message.
func ParseFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, badMessage("", "invalid frame: %v", err)
	}
	f.Event = strings.TrimSpace(f.Event)
	if f.Event == "" {
		return Frame{}, badMessage("", "missing event name")
	}
	return f, nil
}

// EncodeFrame renders an outbound frame. Raw payloads are compacted, and HTML
// characters are left unescaped, so forwarded payloads arrive as the same JSON
// value the sender wrote.
func EncodeFrame(event string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: event, Data: payload}); err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", event, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// payload: a JSON value that is present and not null.
	if err := v.RegisterValidation("payload", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Slice {
			return false
		}
		return isPresent(field.Bytes())
	}); err != nil {
		panic(err)
	}
	return v
}

func isPresent(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// decodeEvent unmarshals data into v and checks its validate tags.
func decodeEvent(event string, data json.RawMessage, v any) error {
	if !isPresent(data) {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return badMessage(event, "invalid payload: %v", err)
	}
	if err := validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string {
				return fe.Field()
			})
			return badMessage(event, "missing or invalid fields: %s", strings.Join(fields, ", "))
		}
		return badMessage(event, "invalid payload: %v", err)
	}
	return nil
}
