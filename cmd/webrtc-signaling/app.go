package main

import (
	"log/slog"

	"github.com/KevinRamirezAmaya/webRTC/internal/config"
	"github.com/KevinRamirezAmaya/webRTC/internal/httpserver"
	"github.com/KevinRamirezAmaya/webRTC/internal/metrics"
	"github.com/KevinRamirezAmaya/webRTC/internal/room"
	"github.com/KevinRamirezAmaya/webRTC/internal/signaling"
)

// app is the wired process: one room registry shared by the signaling
// WebSocket and the HTTP inspection routes.
type app struct {
	registry  *room.Registry
	metrics   *metrics.Metrics
	signaling *signaling.Server
	http      *httpserver.Server
}

func newApp(cfg config.Config, logger *slog.Logger, build httpserver.BuildInfo) *app {
	registry := room.NewRegistry(room.WithDropEmptyRooms(cfg.DropEmptyRooms))
	m := metrics.New()

	srv := httpserver.New(cfg, logger, build, m)
	sig := signaling.NewServer(signaling.Config{
		Registry: registry,
		Metrics:  m,
		Logger:   logger,
		// The origin middleware already rejected bad origins; the upgrader
		// checks again in case /ws is mounted without it.
		CheckOrigin: srv.OriginPolicy().CheckOrigin,

		SignalingWSIdleTimeout:        cfg.SignalingWSIdleTimeout,
		SignalingWSPingInterval:       cfg.SignalingWSPingInterval,
		MaxSignalingMessageBytes:      cfg.MaxSignalingMessageBytes,
		MaxSignalingMessagesPerSecond: cfg.MaxSignalingMessagesPerSecond,
		SendQueueBytes:                cfg.SignalingSendQueueBytes,
	})
	sig.RegisterRoutes(srv.Mux())
	srv.RegisterRoomRoutes(registry)

	srv.Mux().Handle("GET /metrics", metrics.PrometheusHandler(m,
		metrics.Gauge{
			Name:  "webrtc_signaling_rooms",
			Help:  "Rooms currently held in memory.",
			Value: registry.Len,
		},
		metrics.Gauge{
			Name:  "webrtc_signaling_connections",
			Help:  "Open signaling WebSocket connections.",
			Value: sig.Connections,
		},
	))

	return &app{
		registry:  registry,
		metrics:   m,
		signaling: sig,
		http:      srv,
	}
}
