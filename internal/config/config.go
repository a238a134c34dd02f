package config

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/origin"
)

const (
	envVarConfigFile      = "AERO_SIGNAL_RELAY_CONFIG"
	envVarPort            = "PORT"
	envVarListenAddr      = "AERO_SIGNAL_RELAY_LISTEN_ADDR"
	envVarStage           = "STAGE"
	envVarNodeEnv         = "NODE_ENV"
	envVarMode            = "AERO_SIGNAL_RELAY_MODE"
	envVarLogFormat       = "AERO_SIGNAL_RELAY_LOG_FORMAT"
	envVarLogLevel        = "AERO_SIGNAL_RELAY_LOG_LEVEL"
	envVarShutdownTimeout = "AERO_SIGNAL_RELAY_SHUTDOWN_TIMEOUT"

	envVarWebRTCPortBase  = "WEBRTC_PORT_BASE"
	envVarWebRTCPortCount = "WEBRTC_PORT_COUNT"

	envVarKeepaliveInterval    = "KEEPALIVE_INTERVAL"
	envVarStaticDir            = "STATIC_DIR"
	envVarMaxMessageBytes      = "MAX_MESSAGE_BYTES"
	envVarMaxMessagesPerSecond = "MAX_MESSAGES_PER_SECOND"
	envVarSendQueueBytes       = "SEND_QUEUE_BYTES"
	envVarAllowedOrigins       = "ALLOWED_ORIGINS"

	DefaultPort                      = 3000
	DefaultStage                     = "development"
	DefaultShutdown                  = 15 * time.Second
	DefaultWebRTCPortBase            = 500
	DefaultWebRTCPortCount           = 5
	DefaultKeepaliveInterval         = 50 * time.Second
	DefaultStaticDir                 = "public"
	DefaultMaxMessageBytes           = int64(1 << 20)
	DefaultMaxMessagesPerSecond      = 0
	DefaultSendQueueBytes            = 4 << 20
	DefaultMode                 Mode = ModeDev
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

type Config struct {
	// ConfigFile is the TOML file the values were layered on, if any.
	ConfigFile string

	ListenAddr      string
	Stage           string
	Mode            Mode
	LogFormat       LogFormat
	LogLevel        slog.Level
	ShutdownTimeout time.Duration

	// WebRTCPortBase and WebRTCPortCount define the pool of ports handed out
	// to clients: [base, base+count).
	WebRTCPortBase  int
	WebRTCPortCount int

	KeepaliveInterval time.Duration
	StaticDir         string

	MaxMessageBytes      int64
	MaxMessagesPerSecond int
	SendQueueBytes       int

	// AllowedOrigins restricts which browser origins may open a WebSocket.
	// Empty admits every origin.
	AllowedOrigins []string

	ICEServers   []webrtc.ICEServer
	iceConfigErr error
}

// ICEConfigError reports an invalid ICE server configuration. It does not
// fail Load; /webrtc/ice serves the error instead.
func (c Config) ICEConfigError() error {
	return c.iceConfigErr
}

func Load(args []string) (Config, error) {
	return load(os.LookupEnv, args)
}

func load(lookup func(string) (string, bool), args []string) (Config, error) {
	configPath := envOrDefault(lookup, envVarConfigFile, "")
	if p, ok := configFlagValue(args); ok {
		configPath = p
	}
	file, err := loadFile(configPath)
	if err != nil {
		return Config{}, err
	}

	stage := file.stringOr("stage", file.Stage, DefaultStage)
	stage = envOrDefault(lookup, envVarNodeEnv, stage)
	stage = envOrDefault(lookup, envVarStage, stage)

	// Mode, log format and log level fall back to values derived from the
	// final stage/mode unless some layer sets them explicitly.
	modeDefault := file.stringOr("mode", file.Mode, "")
	modeDefault = envOrDefault(lookup, envVarMode, modeDefault)

	logFormatDefault := file.stringOr("log_format", file.LogFormat, "")
	logFormatDefault = envOrDefault(lookup, envVarLogFormat, logFormatDefault)

	logLevelDefault := file.stringOr("log_level", file.LogLevel, "")
	logLevelDefault = envOrDefault(lookup, envVarLogLevel, logLevelDefault)

	port, err := envIntOrDefault(lookup, envVarPort, file.intOr("port", file.Port, DefaultPort))
	if err != nil {
		return Config{}, err
	}
	listenAddr := file.stringOr("listen_addr", file.ListenAddr, "")
	listenAddr = envOrDefault(lookup, envVarListenAddr, listenAddr)

	shutdownTimeout, err := envDurationOrDefault(lookup, envVarShutdownTimeout, file.durationOr("shutdown_timeout", file.ShutdownTimeout, DefaultShutdown))
	if err != nil {
		return Config{}, err
	}

	webrtcPortBase, err := envIntOrDefault(lookup, envVarWebRTCPortBase, file.intOr("webrtc.port_base", file.WebRTC.PortBase, DefaultWebRTCPortBase))
	if err != nil {
		return Config{}, err
	}
	webrtcPortCount, err := envIntOrDefault(lookup, envVarWebRTCPortCount, file.intOr("webrtc.port_count", file.WebRTC.PortCount, DefaultWebRTCPortCount))
	if err != nil {
		return Config{}, err
	}

	keepaliveInterval, err := envDurationOrDefault(lookup, envVarKeepaliveInterval, file.durationOr("keepalive_interval", file.KeepaliveInterval, DefaultKeepaliveInterval))
	if err != nil {
		return Config{}, err
	}
	staticDir := file.stringOr("static_dir", file.StaticDir, DefaultStaticDir)
	staticDir = envOrDefault(lookup, envVarStaticDir, staticDir)

	maxMessageBytes := DefaultMaxMessageBytes
	if file.defined("max_message_bytes") {
		maxMessageBytes = file.MaxMessageBytes
	}
	if raw, ok := lookup(envVarMaxMessageBytes); ok && strings.TrimSpace(raw) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", envVarMaxMessageBytes, raw, err)
		}
		maxMessageBytes = n
	}
	maxMessagesPerSecond, err := envIntOrDefault(lookup, envVarMaxMessagesPerSecond, file.intOr("max_messages_per_second", file.MaxMessagesPerSecond, DefaultMaxMessagesPerSecond))
	if err != nil {
		return Config{}, err
	}
	sendQueueBytes, err := envIntOrDefault(lookup, envVarSendQueueBytes, file.intOr("send_queue_bytes", file.SendQueueBytes, DefaultSendQueueBytes))
	if err != nil {
		return Config{}, err
	}

	allowedOrigins := strings.Join(file.AllowedOrigins, ",")
	allowedOrigins = envOrDefault(lookup, envVarAllowedOrigins, allowedOrigins)

	iceServersJSON := envOrDefault(lookup, envICEServersJSON, "")
	stunURLs := envOrDefault(lookup, envStunURLs, "")
	turnURLs := envOrDefault(lookup, envTurnURLs, "")
	turnUsername := envOrDefault(lookup, envTurnUsername, "")
	turnCredential := envOrDefault(lookup, envTurnCredential, "")

	fs := flag.NewFlagSet("aero-webrtc-signal-relay", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		modeStr      string
		logFormatStr string
		logLevelStr  string
	)

	fs.StringVar(&configPath, "config", configPath, "Optional TOML config file (env "+envVarConfigFile+")")
	fs.IntVar(&port, "port", port, "HTTP port, used when --listen-addr is unset (env "+envVarPort+")")
	fs.StringVar(&listenAddr, "listen-addr", listenAddr, "HTTP listen address (host:port; default :<port>)")
	fs.StringVar(&stage, "stage", stage, "Deployment stage, e.g. development or production (env "+envVarStage+" or "+envVarNodeEnv+")")
	fs.StringVar(&modeStr, "mode", modeDefault, "Run mode: dev or prod (default derived from --stage)")
	fs.StringVar(&logFormatStr, "log-format", logFormatDefault, "Log format: text or json (default derived from --mode)")
	fs.StringVar(&logLevelStr, "log-level", logLevelDefault, "Log level: debug, info, warn, error (default derived from --mode)")
	fs.DurationVar(&shutdownTimeout, "shutdown-timeout", shutdownTimeout, "Graceful shutdown timeout (e.g. 15s)")

	fs.IntVar(&webrtcPortBase, "webrtc-port-base", webrtcPortBase, "First WebRTC port handed out to clients (env "+envVarWebRTCPortBase+")")
	fs.IntVar(&webrtcPortCount, "webrtc-port-count", webrtcPortCount, "Number of WebRTC ports, and so the maximum concurrent clients (env "+envVarWebRTCPortCount+")")
	fs.DurationVar(&keepaliveInterval, "keepalive-interval", keepaliveInterval, "Interval between keepalive pings (env "+envVarKeepaliveInterval+")")
	fs.StringVar(&staticDir, "static-dir", staticDir, "Directory of static assets served over HTTP; empty disables (env "+envVarStaticDir+")")
	fs.Int64Var(&maxMessageBytes, "max-message-bytes", maxMessageBytes, "Max inbound WebSocket message size in bytes (env "+envVarMaxMessageBytes+")")
	fs.IntVar(&maxMessagesPerSecond, "max-messages-per-second", maxMessagesPerSecond, "Max inbound WebSocket messages per second per client, 0 = unlimited (env "+envVarMaxMessagesPerSecond+")")
	fs.IntVar(&sendQueueBytes, "send-queue-bytes", sendQueueBytes, "Max queued outbound bytes per client before dropping (env "+envVarSendQueueBytes+")")

	fs.StringVar(&allowedOrigins, "allowed-origins", allowedOrigins, "Comma-separated browser origins allowed to open a WebSocket; empty or * allows all (env "+envVarAllowedOrigins+")")

	fs.StringVar(&iceServersJSON, "ice-servers-json", iceServersJSON, "ICE server JSON config ("+envICEServersJSON+")")
	fs.StringVar(&stunURLs, "stun-urls", stunURLs, "comma-separated STUN URLs ("+envStunURLs+")")
	fs.StringVar(&turnURLs, "turn-urls", turnURLs, "comma-separated TURN URLs ("+envTurnURLs+")")
	fs.StringVar(&turnUsername, "turn-username", turnUsername, "TURN username ("+envTurnUsername+")")
	fs.StringVar(&turnCredential, "turn-credential", turnCredential, "TURN credential ("+envTurnCredential+")")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if port < 1 || port > 65535 {
		return Config{}, fmt.Errorf("%s/--port must be 1-65535, got %d", envVarPort, port)
	}
	listenAddr = strings.TrimSpace(listenAddr)
	if listenAddr == "" {
		listenAddr = net.JoinHostPort("", strconv.Itoa(port))
	}
	if _, _, err := net.SplitHostPort(listenAddr); err != nil {
		return Config{}, fmt.Errorf("invalid %s/--listen-addr %q: %w", envVarListenAddr, listenAddr, err)
	}

	if strings.TrimSpace(modeStr) == "" {
		modeStr = modeForStage(stage)
	}
	mode, err := parseMode(modeStr)
	if err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(logFormatStr) == "" {
		logFormatStr = defaultLogFormatForMode(string(mode))
	}
	if strings.TrimSpace(logLevelStr) == "" {
		logLevelStr = defaultLogLevelForMode(string(mode))
	}
	logFormat, err := parseLogFormat(logFormatStr)
	if err != nil {
		return Config{}, err
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}
	if shutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("%s/--shutdown-timeout must be > 0", envVarShutdownTimeout)
	}

	if webrtcPortCount <= 0 {
		return Config{}, fmt.Errorf("%s/--webrtc-port-count must be > 0, got %d", envVarWebRTCPortCount, webrtcPortCount)
	}
	if webrtcPortBase < 1 || webrtcPortBase+webrtcPortCount-1 > 65535 {
		return Config{}, fmt.Errorf("%s/--webrtc-port-base and %s/--webrtc-port-count must describe a range within 1-65535, got base=%d count=%d",
			envVarWebRTCPortBase, envVarWebRTCPortCount, webrtcPortBase, webrtcPortCount)
	}
	if keepaliveInterval <= 0 {
		return Config{}, fmt.Errorf("%s/--keepalive-interval must be > 0", envVarKeepaliveInterval)
	}
	if maxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("%s/--max-message-bytes must be > 0", envVarMaxMessageBytes)
	}
	if maxMessagesPerSecond < 0 {
		return Config{}, fmt.Errorf("%s/--max-messages-per-second must be >= 0", envVarMaxMessagesPerSecond)
	}
	if sendQueueBytes <= 0 {
		return Config{}, fmt.Errorf("%s/--send-queue-bytes must be > 0", envVarSendQueueBytes)
	}

	origins := splitCommaSeparated(allowedOrigins)
	if _, err := origin.NewPolicy(origins); err != nil {
		return Config{}, fmt.Errorf("%s/--allowed-origins: %w", envVarAllowedOrigins, err)
	}

	cfg := Config{
		ConfigFile:           configPath,
		ListenAddr:           listenAddr,
		Stage:                stage,
		Mode:                 mode,
		LogFormat:            logFormat,
		LogLevel:             level,
		ShutdownTimeout:      shutdownTimeout,
		WebRTCPortBase:       webrtcPortBase,
		WebRTCPortCount:      webrtcPortCount,
		KeepaliveInterval:    keepaliveInterval,
		StaticDir:            strings.TrimSpace(staticDir),
		MaxMessageBytes:      maxMessageBytes,
		MaxMessagesPerSecond: maxMessagesPerSecond,
		SendQueueBytes:       sendQueueBytes,
		AllowedOrigins:       origins,
	}

	iceServers, err := parseICEServersFromValues(iceServersJSON, stunURLs, turnURLs, turnUsername, turnCredential, file.ICEServers)
	if err != nil {
		cfg.iceConfigErr = err
	} else {
		cfg.ICEServers = iceServers
	}

	return cfg, nil
}

// configFlagValue finds --config ahead of the full parse, since the file
// supplies defaults for every other flag.
func configFlagValue(args []string) (string, bool) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg || len(arg)-len(name) > 2 {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v, true
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func NewLogger(cfg Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case LogFormatText:
		handler = slog.NewTextHandler(os.Stdout, opts)
	case LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return slog.New(handler), nil
}

func envOrDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envDurationOrDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func modeForStage(stage string) string {
	switch strings.ToLower(strings.TrimSpace(stage)) {
	case "production", "prod":
		return string(ModeProd)
	default:
		return string(ModeDev)
	}
}

func defaultLogFormatForMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(ModeProd), "production":
		return string(LogFormatJSON)
	default:
		return string(LogFormatText)
	}
}

func defaultLogLevelForMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(ModeProd), "production":
		return "info"
	default:
		return "debug"
	}
}

func parseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ModeDev), "development":
		return ModeDev, nil
	case string(ModeProd), "production":
		return ModeProd, nil
	default:
		return "", fmt.Errorf("invalid mode %q (expected dev or prod)", raw)
	}
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf("invalid log format %q (expected text or json)", raw)
	}
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug, info, warn, error)", raw)
	}
}
