package relay

import (
	"time"

	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/metrics"
)

// keepalive is the single repeating probe schedule. It exists only while the
// hub has at least one client.
type keepalive struct {
	stop chan struct{}
}

func (h *Hub) startKeepaliveLocked() {
	if h.keepalive != nil {
		return
	}
	ka := &keepalive{stop: make(chan struct{})}
	h.keepalive = ka
	h.metrics.Inc(metrics.KeepaliveStarted)
	h.log.Info("keepalive_started", "interval", h.keepaliveInterval.String())
	go h.runKeepalive(ka)
}

func (h *Hub) stopKeepaliveLocked() {
	if h.keepalive == nil {
		return
	}
	close(h.keepalive.stop)
	h.keepalive = nil
	h.metrics.Inc(metrics.KeepaliveStopped)
	h.log.Info("keepalive_stopped")
}

func (h *Hub) runKeepalive(ka *keepalive) {
	ticker := time.NewTicker(h.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ka.stop:
			return
		case <-ticker.C:
			if !h.pingAll(ka) {
				return
			}
		}
	}
}

// pingAll probes every ready client. It reports false once ka has been
// cancelled; the check happens under the hub lock so no probe is sent after
// the last client's Unregister returns.
func (h *Hub) pingAll(ka *keepalive) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-ka.stop:
		return false
	default:
	}

	ping := []byte(PingMessage)
	sent := 0
	for _, c := range h.clients {
		if h.sendLocked(c, ping) {
			sent++
		}
	}
	if sent > 0 {
		h.metrics.Add(metrics.KeepalivePingsSent, uint64(sent))
	}
	return true
}
