package signaling

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/metrics"
	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/relay"
)

const (
	DefaultMaxMessageBytes = 1 << 20
	DefaultSendQueueBytes  = 4 << 20
)

// Config wires together the runtime dependencies for the signaling service.
type Config struct {
	Hub    *relay.Hub
	Logger *slog.Logger

	// MaxMessageBytes bounds a single inbound frame. Larger frames close the
	// connection with 1009.
	MaxMessageBytes int64

	// MaxMessagesPerSecond rate-limits inbound frames per connection. Frames
	// over the limit are dropped. Zero disables the limit.
	MaxMessagesPerSecond int

	// SendQueueBytes bounds the outbound frames buffered per connection.
	SendQueueBytes int

	// CheckOrigin decides whether a handshake's Origin may connect. Rejected
	// handshakes get 403 and are counted. Nil accepts every origin.
	CheckOrigin func(r *http.Request) bool
}

// WebSocketServer upgrades requests and runs each connection through the
// Connecting, Active and Closed states against a relay.Hub.
type WebSocketServer struct {
	hub *relay.Hub
	log *slog.Logger

	maxMessageBytes      int64
	maxMessagesPerSecond int
	sendQueueBytes       int

	upgrader websocket.Upgrader
}

func NewWebSocketServer(cfg Config) (*WebSocketServer, error) {
	if cfg.Hub == nil {
		return nil, errors.New("signaling: hub is required")
	}
	if cfg.MaxMessagesPerSecond < 0 {
		return nil, errors.New("signaling: MaxMessagesPerSecond must be >= 0")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxBytes := cfg.MaxMessageBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMessageBytes
	}
	queueBytes := cfg.SendQueueBytes
	if queueBytes <= 0 {
		queueBytes = DefaultSendQueueBytes
	}
	checkOrigin := func(r *http.Request) bool { return true }
	if allow := cfg.CheckOrigin; allow != nil {
		m := cfg.Hub.Metrics()
		checkOrigin = func(r *http.Request) bool {
			if allow(r) {
				return true
			}
			m.Inc(metrics.OriginRejected)
			logger.Warn("websocket_origin_rejected", "remote", r.RemoteAddr, "origin", r.Header.Get("Origin"))
			return false
		}
	}

	return &WebSocketServer{
		hub:                  cfg.Hub,
		log:                  logger,
		maxMessageBytes:      maxBytes,
		maxMessagesPerSecond: cfg.MaxMessagesPerSecond,
		sendQueueBytes:       queueBytes,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
	}, nil
}

// RegisterRoutes mounts the dedicated WebSocket path.
func (s *WebSocketServer) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /ws", s)
}

// UpgradeOr serves WebSocket upgrade requests itself and passes everything
// else to next, so a single path can carry both the socket and plain HTTP.
func (s *WebSocketServer) UpgradeOr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			s.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
