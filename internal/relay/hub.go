package relay

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/metrics"
	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/portpool"
)

// PingMessage is the keepalive probe sent to every client.
const PingMessage = "ping"

// DefaultKeepaliveInterval is the period between keepalive probes.
const DefaultKeepaliveInterval = 50 * time.Second

type HubConfig struct {
	// KeepaliveInterval defaults to DefaultKeepaliveInterval when <= 0.
	KeepaliveInterval time.Duration
}

// Hub is the single owner of the client registry and the port pool.
type Hub struct {
	log               *slog.Logger
	metrics           *metrics.Metrics
	keepaliveInterval time.Duration
	newID             func() string

	mu        sync.Mutex
	pool      *portpool.Pool
	clients   map[string]*Client
	keepalive *keepalive
	closed    bool
}

func NewHub(pool *portpool.Pool, cfg HubConfig, m *metrics.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m == nil {
		m = &metrics.Metrics{}
	}
	interval := cfg.KeepaliveInterval
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}
	h := &Hub{
		log:               logger,
		metrics:           m,
		keepaliveInterval: interval,
		newID:             uuid.NewString,
		pool:              pool,
		clients:           make(map[string]*Client),
	}
	if pool.OnChange == nil {
		pool.OnChange = func(free, total int) {
			logger.Debug("webrtc_port_pool", "available", free, "total", total)
		}
	}
	return h
}

func (h *Hub) Metrics() *metrics.Metrics { return h.metrics }

// Register assigns t a fresh client ID and a WebRTC port and adds it to the
// registry.
//
// greet, when non-nil, runs after the port is assigned but before the client
// is visible to Broadcast or the keepalive, so whatever it sends is the first
// frame the client receives. It runs with the hub locked and must not call
// back into the hub. If greet fails the port is returned and the client is
// not registered.
//
// ErrNoAvailablePorts is returned when the pool is exhausted.
func (h *Hub) Register(t Transport, greet func(*Client) error) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	id, err := h.uniqueIDLocked()
	if err != nil {
		return nil, err
	}

	port, ok := h.pool.Allocate()
	if !ok {
		h.metrics.Inc(metrics.ClientRefusedNoPorts)
		h.log.Warn("client_refused",
			"client_id", id,
			"reason", "no available webrtc ports",
			"total_clients", len(h.clients),
			"available_ports", h.pool.Free(),
			"total_ports", h.pool.Total(),
		)
		return nil, ErrNoAvailablePorts
	}

	c := &Client{
		id:          id,
		port:        port,
		transport:   t,
		connectedAt: time.Now(),
	}

	if greet != nil {
		if err := greet(c); err != nil {
			h.pool.Release(port)
			return nil, fmt.Errorf("greet client %s: %w", id, err)
		}
	}

	h.clients[id] = c
	h.metrics.Inc(metrics.ClientConnected)
	h.log.Info("client_connected",
		"client_id", id,
		"webrtc_port", int(port),
		"total_clients", len(h.clients),
		"available_ports", h.pool.Free(),
		"total_ports", h.pool.Total(),
	)

	if len(h.clients) == 1 {
		h.startKeepaliveLocked()
	}
	return c, nil
}

func (h *Hub) uniqueIDLocked() (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id := h.newID()
		if id == "" {
			continue
		}
		if _, taken := h.clients[id]; !taken {
			return id, nil
		}
	}
	return "", errors.New("failed to allocate unique client id")
}

// Unregister removes c from the registry and returns its port to the pool.
// Only the first call for a given client has any effect; it reports whether
// this call performed the teardown.
func (h *Hub) Unregister(c *Client) bool {
	if c == nil {
		return false
	}
	removed := false
	c.unregisterOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if cur, ok := h.clients[c.id]; !ok || cur != c {
			return
		}
		delete(h.clients, c.id)
		h.pool.Release(c.port)
		removed = true

		h.metrics.Inc(metrics.ClientDisconnected)
		h.log.Info("client_disconnected",
			"client_id", c.id,
			"webrtc_port", int(c.port),
			"remaining_clients", len(h.clients),
			"available_ports", h.pool.Free(),
			"total_ports", h.pool.Total(),
			"connected_for", time.Since(c.connectedAt).Round(time.Millisecond).String(),
		)

		if len(h.clients) == 0 {
			h.stopKeepaliveLocked()
		}
	})
	return removed
}

// Broadcast delivers payload unmodified to every registered client other than
// from whose transport is ready. A nil from delivers to everyone. Send
// failures are counted and skipped. It returns the number of clients the
// payload was handed to.
func (h *Hub) Broadcast(from *Client, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, c := range h.clients {
		if c == from {
			continue
		}
		if h.sendLocked(c, payload) {
			delivered++
		}
	}
	if delivered > 0 {
		h.metrics.Add(metrics.MessagesRelayed, uint64(delivered))
	}
	return delivered
}

func (h *Hub) sendLocked(c *Client, payload []byte) bool {
	if !c.transport.Ready() {
		return false
	}
	if err := c.transport.Send(payload); err != nil {
		h.metrics.Inc(metrics.RelaySendFailed)
		h.log.Debug("relay_send_failed", "client_id", c.id, "err", err)
		return false
	}
	return true
}

// NotePong records a keepalive acknowledgement from c. Clients that never
// answer are not disconnected.
func (h *Hub) NotePong(c *Client) {
	if c == nil {
		return
	}
	c.lastPong.Store(time.Now().UnixNano())
	h.metrics.Inc(metrics.KeepalivePongs)
	h.log.Debug("keepalive", "client_id", c.id)
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ClientIDs returns the registered client IDs in sorted order.
func (h *Hub) ClientIDs() []string {
	h.mu.Lock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Lookup returns the registered client with the given ID.
func (h *Hub) Lookup(id string) (*Client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	return c, ok
}

func (h *Hub) ConnectedClients() int { return h.Count() }

func (h *Hub) PortsAvailable() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.Free()
}

func (h *Hub) PortsTotal() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.Total()
}

// KeepaliveRunning reports whether the keepalive schedule is active.
func (h *Hub) KeepaliveRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.keepalive != nil
}

// Close rejects further registrations, stops the keepalive and closes every
// registered transport. Clients are removed as their owners observe the close
// and call Unregister.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.stopKeepaliveLocked()
	transports := make([]Transport, 0, len(h.clients))
	for _, c := range h.clients {
		transports = append(transports, c.transport)
	}
	h.mu.Unlock()

	for _, t := range transports {
		_ = t.Close()
	}
}
