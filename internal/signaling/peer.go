package signaling

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/metrics"
	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/relay"
)

const wsWriteWait = 10 * time.Second

var errSendQueueFull = errors.New("send queue full")

// wsPeer adapts a WebSocket connection to relay.Transport. Frames handed to
// Send are written by a dedicated writer goroutine in FIFO order.
type wsPeer struct {
	conn    *websocket.Conn
	queue   *sendQueue
	metrics *metrics.Metrics

	// writeMu serializes data frames. Close frames go through WriteControl,
	// which gorilla allows concurrently with WriteMessage.
	writeMu sync.Mutex

	closed    atomic.Bool
	closeOnce sync.Once
}

var _ relay.Transport = (*wsPeer)(nil)

// newWSPeer wraps conn. Frames sent before start are held in the queue.
func newWSPeer(conn *websocket.Conn, queueBytes int, m *metrics.Metrics) *wsPeer {
	return &wsPeer{
		conn:    conn,
		queue:   newSendQueue(queueBytes),
		metrics: m,
	}
}

func (p *wsPeer) start() {
	go p.writeLoop()
}

func (p *wsPeer) Send(data []byte) error {
	if p.closed.Load() {
		return relay.ErrTransportClosed
	}
	if !p.queue.Enqueue(data) {
		p.metrics.Inc(metrics.RelaySendQueueFull)
		return errSendQueueFull
	}
	return nil
}

func (p *wsPeer) Ready() bool {
	return !p.closed.Load()
}

// Close sends a going-away close frame and tears the connection down. The
// read loop observes the closed socket and unregisters the client.
func (p *wsPeer) Close() error {
	p.shutdown(shutdownCloseCode, shutdownCloseReason)
	return nil
}

// refuse writes payload directly, bypassing the queue, then closes with code.
// It must only be used before start.
func (p *wsPeer) refuse(payload []byte, code int, reason string) {
	_ = p.writeText(payload)
	p.shutdown(code, reason)
}

func (p *wsPeer) shutdown(code int, reason string) {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.queue.Close()
		p.writeClose(code, reason)
		_ = p.conn.Close()
	})
}

// abort closes the socket without a close frame.
func (p *wsPeer) abort() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.queue.Close()
		_ = p.conn.Close()
	})
}

func (p *wsPeer) writeLoop() {
	for {
		frame, ok := p.queue.Dequeue()
		if !ok {
			return
		}
		if err := p.writeText(frame); err != nil {
			p.abort()
			return
		}
	}
}

func (p *wsPeer) writeText(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *wsPeer) writeClose(code int, reason string) {
	_ = p.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}
