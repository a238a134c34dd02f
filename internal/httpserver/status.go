package httpserver

import (
	"net/http"
	"time"
)

// StatusSource is the live relay state reported by GET /status.
type StatusSource interface {
	ClientIDs() []string
	PortsAvailable() int
	PortsTotal() int
}

type statusResponse struct {
	Status           string   `json:"status"`
	ConnectedClients int      `json:"connectedClients"`
	ClientIDs        []string `json:"clientIds"`
	AvailablePorts   int      `json:"availablePorts"`
	TotalPorts       int      `json:"totalPorts"`
	Timestamp        string   `json:"timestamp"`
}

// SetStatusSource wires GET /status to src. Until it is called the endpoint
// answers 503.
func (s *Server) SetStatusSource(src StatusSource) {
	if src == nil {
		s.status.Store(nil)
		return
	}
	s.status.Store(&src)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	p := s.status.Load()
	if p == nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "status not configured"})
		return
	}
	src := *p

	ids := src.ClientIDs()
	if ids == nil {
		ids = []string{}
	}
	WriteJSON(w, http.StatusOK, statusResponse{
		Status:           "active",
		ConnectedClients: len(ids),
		ClientIDs:        ids,
		AvailablePorts:   src.PortsAvailable(),
		TotalPorts:       src.PortsTotal(),
		Timestamp:        time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}
