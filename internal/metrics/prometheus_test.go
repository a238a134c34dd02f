package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fixedGauges struct{ clients, available, total int }

func (g fixedGauges) ConnectedClients() int { return g.clients }
func (g fixedGauges) PortsAvailable() int   { return g.available }
func (g fixedGauges) PortsTotal() int       { return g.total }

func TestPrometheusHandler_ExposesCountersAndGauges(t *testing.T) {
	m := New()
	m.Inc(ClientConnected)
	m.Add(MessagesRelayed, 2)
	m.Inc(`quote"back\slash`)

	reg := NewRegistry(m, fixedGauges{clients: 3, available: 2, total: 5})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	PrometheusHandler(reg).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d, want %d", rr.Code, http.StatusOK)
	}

	body := rr.Body.String()
	for _, want := range []string{
		"# TYPE aero_webrtc_signal_relay_events_total counter",
		`aero_webrtc_signal_relay_events_total{event="client_connected"} 1`,
		`aero_webrtc_signal_relay_events_total{event="messages_relayed"} 2`,
		`aero_webrtc_signal_relay_events_total{event="quote\"back\\slash"} 1`,
		"aero_webrtc_signal_relay_connected_clients 3",
		"aero_webrtc_signal_relay_webrtc_ports_available 2",
		"aero_webrtc_signal_relay_webrtc_ports_total 5",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestRegistry_CountersOnly(t *testing.T) {
	m := New()
	m.Inc(KeepalivePingsSent)
	m.Inc(KeepalivePingsSent)

	reg := NewRegistry(m, nil)
	if got := testutil.CollectAndCount(reg); got != 1 {
		t.Fatalf("collected %d metrics, want 1", got)
	}
	if got := testutil.ToFloat64(m); got != 2 {
		t.Fatalf("events_total=%v, want 2", got)
	}
}

func TestMetrics_ZeroValueAndNil(t *testing.T) {
	var m Metrics
	m.Inc("x")
	if got := m.Get("x"); got != 1 {
		t.Fatalf("Get=%d, want 1", got)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc("x")
	if got := nilMetrics.Get("x"); got != 0 {
		t.Fatalf("nil Get=%d, want 0", got)
	}
}

func TestPrometheusHandler_NilRegistry(t *testing.T) {
	rr := httptest.NewRecorder()
	PrometheusHandler(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want %d", rr.Code, http.StatusInternalServerError)
	}
}
