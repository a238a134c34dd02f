package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aero_webrtc_signal_relay"

var eventsDesc = prometheus.NewDesc(
	prometheus.BuildFQName(namespace, "", "events_total"),
	"Internal event counters.",
	[]string{"event"},
	nil,
)

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- eventsDesc
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for name, v := range m.Snapshot() {
		ch <- prometheus.MustNewConstMetric(eventsDesc, prometheus.CounterValue, float64(v), name)
	}
}

// GaugeSource reports the live state sampled on every scrape.
type GaugeSource interface {
	ConnectedClients() int
	PortsAvailable() int
	PortsTotal() int
}

// NewRegistry builds a private registry exposing the event counters and, when
// src is non-nil, the connection and port pool gauges.
func NewRegistry(m *Metrics, src GaugeSource) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if m != nil {
		reg.MustRegister(m)
	}
	if src != nil {
		reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connected_clients",
				Help:      "Number of clients currently registered.",
			}, func() float64 { return float64(src.ConnectedClients()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "webrtc_ports",
				Name:      "available",
				Help:      "Number of WebRTC ports not assigned to any client.",
			}, func() float64 { return float64(src.PortsAvailable()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "webrtc_ports",
				Name:      "total",
				Help:      "Size of the WebRTC port pool.",
			}, func() float64 { return float64(src.PortsTotal()) }),
		)
	}
	return reg
}

// PrometheusHandler exposes reg in Prometheus' text exposition format.
func PrometheusHandler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics not configured", http.StatusInternalServerError)
		})
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
