// Package relay owns the signaling relay's shared state: the registry of
// connected clients, the WebRTC port pool, the keepalive schedule and the
// broadcast fan-out.
//
// All of it lives behind a single Hub so registration, port assignment and
// fan-out are serialized. Transports must never block in Send; the Hub calls
// it while holding its lock.
package relay
