package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/portpool"
)

// Transport is the hub's handle on one client connection.
type Transport interface {
	// Send queues data for delivery as a single text frame. It must not block
	// on network I/O.
	Send(data []byte) error
	// Ready reports whether the transport is open.
	Ready() bool
	// Close tears the connection down. The owner of the connection is
	// expected to observe the close and call Hub.Unregister.
	Close() error
}

// Client is a registered connection and the port it holds.
type Client struct {
	id          string
	port        portpool.Port
	transport   Transport
	connectedAt time.Time

	lastPong atomic.Int64

	unregisterOnce sync.Once
}

func (c *Client) ID() string             { return c.id }
func (c *Client) Port() portpool.Port    { return c.port }
func (c *Client) ConnectedAt() time.Time { return c.connectedAt }
func (c *Client) Transport() Transport   { return c.transport }

// LastPong returns when the client last acknowledged a keepalive probe, or
// the zero time if it never has.
func (c *Client) LastPong() time.Time {
	ns := c.lastPong.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
