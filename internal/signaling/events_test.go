package signaling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireCode(t *testing.T, err error, code string) *ProtocolError {
	t.Helper()
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, code, perr.Code)
	return perr
}

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"offer","data":{"roomId":"r1"}}`))
	require.NoError(t, err)
	require.Equal(t, EventOffer, f.Event)
	require.Equal(t, `{"roomId":"r1"}`, string(f.Data))

	f, err = ParseFrame([]byte(`{"event":"create-room"}`))
	require.NoError(t, err, "frame without data")
	require.Nil(t, f.Data)
}

func TestParseFrame_Rejects(t *testing.T) {
	for _, raw := range []string{``, `[]`, `{"event":""}`, `{"event":7}`} {
		_, err := ParseFrame([]byte(raw))
		requireCode(t, err, CodeBadMessage)
	}
}

func TestEncodeFrame(t *testing.T) {
	frame, err := EncodeFrame(EventUserDisconnected, "peer-1")
	require.NoError(t, err)
	require.Equal(t, `{"event":"user-disconnected","data":"peer-1"}`, string(frame))
}

func TestDecodeEvent_ReportsJSONFieldNames(t *testing.T) {
	var req ChangeNameRequest
	err := decodeEvent(EventChangeName, json.RawMessage(`{"roomId":"r1"}`), &req)

	perr := requireCode(t, err, CodeBadMessage)
	require.Contains(t, perr.Message, "peerId")
	require.Contains(t, perr.Message, "userName")
	require.NotContains(t, perr.Message, "roomId", "present fields must not be reported")
}

func TestDecodeEvent_NullDataIsEmptyObject(t *testing.T) {
	var req PeerRoomRequest
	err := decodeEvent(EventStartSharing, json.RawMessage(`null`), &req)
	requireCode(t, err, CodeBadMessage)
}

func TestDecodeEvent_PayloadRule(t *testing.T) {
	cases := map[string]bool{
		`{"roomId":"r1","message":"hi"}`:     true,
		`{"roomId":"r1","message":0}`:        true,
		`{"roomId":"r1","message":{}}`:       true,
		`{"roomId":"r1","message":null}`:     false,
		`{"roomId":"r1"}`:                    false,
		`{"roomId":"r1","message":  null  }`: false,
	}
	for raw, ok := range cases {
		var req SendMessageRequest
		err := decodeEvent(EventSendMessage, json.RawMessage(raw), &req)
		if ok {
			require.NoError(t, err, raw)
		} else {
			require.Error(t, err, raw)
		}
	}
}
