package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/debug"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/KevinRamirezAmaya/webRTC/internal/config"
	"github.com/KevinRamirezAmaya/webRTC/internal/httpserver"
)

var (
	// Set via -ldflags at build time. Values may be empty in local/dev builds.
	buildCommit = ""
	buildTime   = ""
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	logger.Info("starting webrtc-signaling",
		"listen_addr", cfg.ListenAddr,
		"mode", cfg.Mode,
		"allowed_origins", cfg.AllowedOrigins,
		"env_file", cfg.DotenvFile,
		"ice_servers", len(cfg.ICEServers),
		"max_signaling_message_bytes", cfg.MaxSignalingMessageBytes,
		"max_signaling_messages_per_second", cfg.MaxSignalingMessagesPerSecond,
		"drop_empty_rooms", cfg.DropEmptyRooms,
		"turn_rest_enabled", cfg.TURNREST.Enabled(),
	)
	if err := cfg.ICEConfigError(); err != nil {
		logger.Error("invalid ICE server configuration; /readyz will report not ready", "err", err)
	}

	logStartupWarnings(logger, cfg)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", "err", err)
		os.Exit(1)
	}

	commit, builtAt := resolveBuildInfo(buildCommit, buildTime)
	a := newApp(cfg, logger, httpserver.BuildInfo{Commit: commit, BuildTime: builtAt})

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.http.Serve(ln)
	}()

	// Runs on SIGINT/SIGTERM. http.Server.Shutdown does not wait for hijacked
	// connections, so signaling sessions are closed explicitly afterwards;
	// each one runs its disconnect path.
	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"webrtc-signaling": func(ctx context.Context) error {
			logger.Info("shutdown signal received")
			err := a.http.Shutdown(ctx)
			if err != nil {
				logger.Warn("http shutdown did not finish; closing listeners", "err", err)
				_ = a.http.Close()
			}
			a.signaling.Close()
			return err
		},
	})

	select {
	case err := <-errCh:
		a.signaling.Close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", "err", err)
			os.Exit(1)
		}
		return
	case exitCode := <-wait:
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited after shutdown", "err", err)
			os.Exit(1)
		}
		logger.Info("shutdown complete", "exit_code", exitCode, "rooms", a.registry.Len())
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}
}

func resolveBuildInfo(commit, buildTime string) (string, string) {
	// ldflags values win; fall back to VCS stamps for `go build` from a checkout.
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "" {
					commit = s.Value
				}
			case "vcs.time":
				if buildTime == "" {
					buildTime = s.Value
				}
			}
		}
	}

	return commit, buildTime
}
