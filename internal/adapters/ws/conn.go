package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lberthe/scribe/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// wsClientConn is the outbound half of one websocket client. Sends are
// non-blocking: a full buffer is a delivery failure for that recipient,
// never a stall for the sender.
type wsClientConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newClientConn(conn *websocket.Conn, buffer int) *wsClientConn {
	return &wsClientConn{conn: conn, send: make(chan core.Frame, buffer)}
}

func (c *wsClientConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// Close stops accepting sends and closes the send channel. The write
// pump drains whatever is still queued (a handshake error must reach
// the peer) and then closes the underlying socket.
func (c *wsClientConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
}
