package metrics

import "sync"

// Event names.
const (
	ClientConnected      = "client_connected"
	ClientDisconnected   = "client_disconnected"
	ClientRefusedNoPorts = "client_refused_no_ports"
	OriginRejected       = "websocket_origin_rejected"

	MessagesIn          = "messages_in"
	MessagesRelayed     = "messages_relayed"
	MessagesRateLimited = "messages_dropped_rate_limited"
	MessagesOversized   = "messages_dropped_oversized"

	RelaySendFailed    = "relay_send_failed"
	RelaySendQueueFull = "relay_send_queue_full"

	KeepaliveStarted   = "keepalive_started"
	KeepaliveStopped   = "keepalive_stopped"
	KeepalivePingsSent = "keepalive_pings_sent"
	KeepalivePongs     = "keepalive_pongs"
)

// Metrics is a minimal, concurrency-safe counter registry. The zero value is
// ready to use.
//
// It implements prometheus.Collector so the counters can be scraped without
// every call site depending on the Prometheus client.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, delta uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.m == nil {
		m.m = make(map[string]uint64)
	}
	m.m[name] += delta
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
