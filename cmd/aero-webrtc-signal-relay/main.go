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
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/config"
	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/httpserver"
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

	stunURLs, turnURLs := countICEURLs(cfg.ICEServers)
	logger.Info("starting aero-webrtc-signal-relay",
		"listen_addr", cfg.ListenAddr,
		"stage", cfg.Stage,
		"mode", cfg.Mode,
		"config_file", cfg.ConfigFile,
		"webrtc_port_base", cfg.WebRTCPortBase,
		"webrtc_port_count", cfg.WebRTCPortCount,
		"keepalive_interval", cfg.KeepaliveInterval,
		"static_dir", cfg.StaticDir,
		"max_message_bytes", cfg.MaxMessageBytes,
		"max_messages_per_second", cfg.MaxMessagesPerSecond,
		"ice_stun_urls", stunURLs,
		"ice_turn_urls", turnURLs,
	)

	logStartupWarnings(logger, cfg)

	commit, builtAt := resolveBuildInfo(buildCommit, buildTime)
	app, err := newApp(cfg, logger, httpserver.BuildInfo{Commit: commit, BuildTime: builtAt})
	if err != nil {
		logger.Error("failed to configure relay", "err", err)
		os.Exit(2)
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", "err", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.srv.Serve(ln)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		app.hub.Close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", "err", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
		logger.Info("shutdown signal received", "connected_clients", app.hub.Count())
	}

	// Upgraded connections are hijacked and not tracked by Shutdown, so the
	// hub closes them explicitly.
	app.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "err", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server exited after shutdown", "err", err)
		os.Exit(1)
	}
	logger.Info("server closed")
}

func resolveBuildInfo(commit, buildTime string) (string, string) {
	// Prefer ldflags-injected values but fall back to the Go build info
	// (useful for `go run` / dev builds).
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
