package httpserver

import (
	"net/http"

	"github.com/pion/webrtc/v4"

	"github.com/KevinRamirezAmaya/webRTC/internal/config"
	"github.com/KevinRamirezAmaya/webRTC/internal/turnrest"
)

type iceHandler struct {
	cfg       config.Config
	generator *turnrest.Generator
	err       error
}

func newICEHandler(cfg config.Config) *iceHandler {
	h := &iceHandler{cfg: cfg, err: cfg.ICEConfigError()}
	if h.err == nil && cfg.TURNREST.Enabled() {
		h.generator, h.err = turnrest.NewGenerator(turnrest.GeneratorConfig{
			SharedSecret:   cfg.TURNREST.SharedSecret,
			TTLSeconds:     cfg.TURNREST.TTLSeconds,
			UsernamePrefix: cfg.TURNREST.UsernamePrefix,
		})
	}
	return h
}

func (h *iceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"error": h.err.Error()})
		return
	}

	servers := h.cfg.ICEServers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	if h.generator == nil {
		WriteJSON(w, http.StatusOK, map[string]any{"iceServers": servers})
		return
	}

	servers, creds, err := h.generator.ICEServers(servers)
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to mint TURN credentials"})
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, map[string]any{
		"iceServers": servers,
		"expiresAt":  creds.ExpiresAt,
	})
}
