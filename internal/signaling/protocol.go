package signaling

import "github.com/gorilla/websocket"

const (
	// PongMessage is the keepalive acknowledgement sent by clients. It is
	// consumed by the server and never relayed.
	PongMessage = "pong"

	welcomeText = "Welcome to WebSocket Server"
	refusalText = "No available WebRTC ports"

	// Sent when the port pool is exhausted.
	refusalCloseCode   = websocket.ClosePolicyViolation
	refusalCloseReason = "No available ports"

	shutdownCloseCode   = websocket.CloseGoingAway
	shutdownCloseReason = "server shutting down"
)

// timestampLayout is RFC 3339 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"
