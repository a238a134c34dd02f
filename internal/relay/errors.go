package relay

import "errors"

var (
	// ErrNoAvailablePorts is returned by Hub.Register when every WebRTC port is
	// assigned. It is an expected condition: the caller refuses the connection.
	ErrNoAvailablePorts = errors.New("no available webrtc ports")
	ErrHubClosed        = errors.New("hub closed")
	ErrTransportClosed  = errors.New("transport closed")
)
