package main

import (
	"fmt"
	"log/slog"

	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/config"
	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/httpserver"
	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/metrics"
	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/origin"
	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/portpool"
	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/relay"
	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/signaling"
)

type app struct {
	srv *httpserver.Server
	hub *relay.Hub
}

// newApp builds the HTTP server with every route wired to a fresh hub. The
// caller owns Serve and shutdown.
func newApp(cfg config.Config, logger *slog.Logger, build httpserver.BuildInfo) (*app, error) {
	pool, err := portpool.New(cfg.WebRTCPortBase, cfg.WebRTCPortCount)
	if err != nil {
		return nil, err
	}
	originPolicy, err := origin.NewPolicy(cfg.AllowedOrigins)
	if err != nil {
		return nil, err
	}
	hub := relay.NewHub(pool, relay.HubConfig{KeepaliveInterval: cfg.KeepaliveInterval}, metrics.New(), logger)

	sig, err := signaling.NewWebSocketServer(signaling.Config{
		Hub:                  hub,
		Logger:               logger,
		MaxMessageBytes:      cfg.MaxMessageBytes,
		MaxMessagesPerSecond: cfg.MaxMessagesPerSecond,
		SendQueueBytes:       cfg.SendQueueBytes,
		CheckOrigin:          originPolicy.Allow,
	})
	if err != nil {
		return nil, fmt.Errorf("configure websocket server: %w", err)
	}

	srv := httpserver.New(cfg, logger, build)
	srv.SetStatusSource(hub)
	sig.RegisterRoutes(srv.Mux())

	// Browsers connect to the bare host, so "/" upgrades WebSocket handshakes
	// and serves static assets otherwise.
	srv.Mux().Handle("GET /", sig.UpgradeOr(httpserver.StaticHandler(cfg.StaticDir)))

	// Expose internal counters and pool gauges in Prometheus' text format.
	srv.Mux().Handle("GET /metrics", metrics.PrometheusHandler(metrics.NewRegistry(hub.Metrics(), hub)))

	return &app{srv: srv, hub: hub}, nil
}
