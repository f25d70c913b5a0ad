package httpserver

import (
	"net/http"

	"github.com/KevinRamirezAmaya/webRTC/internal/room"
)

// RoomStats is the read side of the room registry used by the inspection
// endpoint.
type RoomStats interface {
	Stats(roomID string) (room.Stats, bool)
}

// RegisterRoomRoutes adds GET /rooms/{roomId}. Call it before Serve.
func (s *Server) RegisterRoomRoutes(rooms RoomStats) {
	s.mux.HandleFunc("GET /rooms/{roomId}", func(w http.ResponseWriter, r *http.Request) {
		stats, ok := rooms.Stats(r.PathValue("roomId"))
		if !ok {
			WriteJSON(w, http.StatusNotFound, map[string]any{"error": "room not found"})
			return
		}
		WriteJSON(w, http.StatusOK, stats)
	})
}
