package signaling

import (
	"errors"
	"fmt"
)

// Error codes carried by the outbound "error" event.
const (
	CodeBadMessage   = "bad_message"
	CodeUnknownEvent = "unknown_event"
	CodeNotJoined    = "not_joined"
	CodeRateLimited  = "rate_limited"
)

var (
	ErrDisconnected     = errors.New("signaling: connection disconnected")
	ErrSendQueueFull    = errors.New("signaling: send queue full")
	ErrConnectionClosed = errors.New("signaling: connection closed")
)

// ProtocolError rejects a single inbound event. The connection stays usable.
type ProtocolError struct {
	Event   string
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Event, e.Code, e.Message)
}

func badMessage(event, format string, args ...any) *ProtocolError {
	return &ProtocolError{Event: event, Code: CodeBadMessage, Message: fmt.Sprintf(format, args...)}
}
