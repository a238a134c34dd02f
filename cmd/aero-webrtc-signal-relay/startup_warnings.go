package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/config"
)

func logStartupWarnings(logger *slog.Logger, cfg config.Config) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.ICEConfigError(); err != nil {
		logger.Warn("startup warning: ICE server configuration is invalid; /webrtc/ice and /readyz will report 503",
			"warning_code", "ice_config_invalid",
			"err", err,
			"mode", cfg.Mode,
		)
	}

	if cfg.Mode == config.ModeProd && cfg.MaxMessagesPerSecond <= 0 {
		logger.Warn("startup security warning: MAX_MESSAGES_PER_SECOND is unset/0 (unlimited) while --mode=prod; every message is fanned out to all clients",
			"warning_code", "max_messages_per_second_unlimited_in_prod",
			"max_messages_per_second", cfg.MaxMessagesPerSecond,
			"mode", cfg.Mode,
		)
	}

	if cfg.Mode == config.ModeProd && !slices.ContainsFunc(cfg.AllowedOrigins, func(o string) bool { return o != "*" }) {
		logger.Warn("startup security warning: ALLOWED_ORIGINS is empty or '*' while --mode=prod (any web page may open a WebSocket)",
			"warning_code", "allowed_origins_unrestricted_in_prod",
			"allowed_origins", cfg.AllowedOrigins,
			"mode", cfg.Mode,
		)
	}

	if cfg.MaxMessageBytes > 1<<20 { // 1MiB
		logger.Warn("startup security warning: MAX_MESSAGE_BYTES is very large (each inbound message is copied to every connected client)",
			"warning_code", "max_message_bytes_large",
			"max_message_bytes", cfg.MaxMessageBytes,
			"mode", cfg.Mode,
		)
	}

	if cfg.MaxMessageBytes > int64(cfg.SendQueueBytes) {
		logger.Warn("startup warning: MAX_MESSAGE_BYTES exceeds SEND_QUEUE_BYTES; the largest messages can never be delivered",
			"warning_code", "max_message_exceeds_send_queue",
			"max_message_bytes", cfg.MaxMessageBytes,
			"send_queue_bytes", cfg.SendQueueBytes,
			"mode", cfg.Mode,
		)
	}

	if cfg.KeepaliveInterval > 5*time.Minute {
		logger.Warn("startup warning: KEEPALIVE_INTERVAL is very large (idle proxies may drop connections between pings)",
			"warning_code", "keepalive_interval_large",
			"keepalive_interval", cfg.KeepaliveInterval,
			"mode", cfg.Mode,
		)
	}

	if dir := strings.TrimSpace(cfg.StaticDir); dir != "" {
		st, err := os.Stat(dir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("startup warning: STATIC_DIR does not exist; only the root greeting will be served",
				"warning_code", "static_dir_missing",
				"static_dir", absOrRaw(dir),
			)
		case err != nil:
			logger.Warn("startup warning: STATIC_DIR is not readable",
				"warning_code", "static_dir_unreadable",
				"static_dir", absOrRaw(dir),
				"err", err,
			)
		case !st.IsDir():
			logger.Warn("startup warning: STATIC_DIR is not a directory",
				"warning_code", "static_dir_not_directory",
				"static_dir", absOrRaw(dir),
			)
		}
	}
}

func absOrRaw(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
