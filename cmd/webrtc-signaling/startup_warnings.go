package main

import (
	"log/slog"

	"github.com/samber/lo"

	"github.com/KevinRamirezAmaya/webRTC/internal/config"
)

func logStartupWarnings(logger *slog.Logger, cfg config.Config) {
	if logger == nil {
		logger = slog.Default()
	}

	if lo.Contains(cfg.AllowedOrigins, "*") {
		logger.Warn("startup security warning: ALLOWED_ORIGINS contains '*' (allows any origin)",
			"warning_code", "allowed_origins_wildcard",
			"allowed_origins", cfg.AllowedOrigins,
			"mode", cfg.Mode,
		)
	}

	if cfg.Mode == config.ModeProd && len(cfg.AllowedOrigins) == 0 {
		logger.Warn("startup warning: no ALLOWED_ORIGINS/FRONT_URL while --mode=prod; only same-host browser origins can connect",
			"warning_code", "allowed_origins_unset_in_prod",
			"mode", cfg.Mode,
		)
	}

	if cfg.Mode == config.ModeProd && !cfg.DropEmptyRooms {
		logger.Warn("startup warning: empty rooms are retained with their chat history while --mode=prod (memory grows with every room ever used)",
			"warning_code", "empty_rooms_retained_in_prod",
			"drop_empty_rooms", cfg.DropEmptyRooms,
			"mode", cfg.Mode,
		)
	}

	if cfg.Mode == config.ModeProd && len(cfg.ICEServers) == 0 && cfg.ICEConfigError() == nil {
		logger.Warn("startup warning: no ICE servers configured; clients behind NAT may fail to connect",
			"warning_code", "ice_servers_unset_in_prod",
			"mode", cfg.Mode,
		)
	}
}
