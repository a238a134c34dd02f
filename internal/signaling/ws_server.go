package signaling

import (
	"bytes"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/metrics"
	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/relay"
)

func (s *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket_upgrade_failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	m := s.hub.Metrics()
	peer := newWSPeer(conn, s.sendQueueBytes, m)

	client, err := s.hub.Register(peer, func(c *relay.Client) error {
		welcome, err := encodeWelcome(c.ID(), int(c.Port()), time.Now())
		if err != nil {
			return err
		}
		return peer.Send(welcome)
	})
	if err != nil {
		if errors.Is(err, relay.ErrNoAvailablePorts) {
			s.refuse(peer)
			return
		}
		s.log.Warn("client_register_failed", "remote", r.RemoteAddr, "err", err)
		peer.shutdown(websocket.CloseInternalServerErr, "internal error")
		return
	}
	peer.start()

	defer func() {
		s.hub.Unregister(client)
		peer.abort()
	}()

	s.readLoop(conn, client, m)
}

func (s *WebSocketServer) refuse(peer *wsPeer) {
	payload, err := encodeRefusal(time.Now())
	if err != nil {
		peer.shutdown(refusalCloseCode, refusalCloseReason)
		return
	}
	peer.refuse(payload, refusalCloseCode, refusalCloseReason)
}

// readLoop relays inbound frames until the connection fails or closes.
func (s *WebSocketServer) readLoop(conn *websocket.Conn, client *relay.Client, m *metrics.Metrics) {
	conn.SetReadLimit(s.maxMessageBytes)

	var limiter *rate.Limiter
	if s.maxMessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.maxMessagesPerSecond), s.maxMessagesPerSecond)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// gorilla has already sent 1009 to the client.
			if errors.Is(err, websocket.ErrReadLimit) {
				m.Inc(metrics.MessagesOversized)
				s.log.Info("message_too_large", "client_id", client.ID(), "limit_bytes", s.maxMessageBytes)
			} else if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.log.Debug("websocket_read_failed", "client_id", client.ID(), "err", err)
			}
			return
		}
		m.Inc(metrics.MessagesIn)

		// Frames of either type are relayed as text, so the payload is
		// normalized before it is inspected.
		data = normalizeText(data)

		if string(data) == PongMessage {
			s.hub.NotePong(client)
			continue
		}

		// Apply the limit after reading so the frame is consumed from the
		// socket either way.
		if limiter != nil && !limiter.Allow() {
			m.Inc(metrics.MessagesRateLimited)
			s.log.Debug("message_rate_limited", "client_id", client.ID())
			continue
		}

		s.hub.Broadcast(client, data)
	}
}

// normalizeText replaces each run of invalid UTF-8 with U+FFFD.
func normalizeText(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte(string(utf8.RuneError)))
}
