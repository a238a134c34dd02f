// Package signaling is the WebSocket surface of the relay: it upgrades
// browser connections, registers them with a relay.Hub and pumps frames
// between the socket and the hub until the connection ends.
package signaling
