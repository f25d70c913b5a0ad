// Package signaling relays WebRTC negotiation and room events between browser
// peers over WebSocket.
//
// Every connection gets a Relay that tracks which room and peer ID the
// connection is bound to. Inbound frames are decoded into events, applied to
// the shared room.Registry and fanned out to the other members of the room.
// The relay never inspects SDP or ICE payloads; media flows peer to peer.
//
// Frames are JSON text messages of the form:
//
//	{"event": "join-room", "data": {"roomId": "...", "peerId": "...", "userName": "..."}}
package signaling
