// Package transport provides the byte-stream abstraction the MQTT engine
// drives the wire through (spec.md §4.3). The engine treats any Transport
// as a reliable, ordered byte stream; it never inspects the concrete
// network type underneath.
package transport

import (
	"context"
	"io"
	"sync"
)

// Transport is a bidirectional byte stream with an explicit connect step
// and a close-notification hook. Plain TCP, TLS, and WebSocket transports
// all implement it identically from the engine's point of view.
type Transport interface {
	io.Reader
	io.Writer

	// Connect dials addr ("host:port") and blocks until the stream is
	// ready to read and write, or ctx is done.
	Connect(ctx context.Context, addr string) error

	// Close closes the underlying stream. Safe to call more than once.
	Close() error

	// OnClose registers fn to run exactly once, the first time the
	// stream is observed closed - either by an explicit Close or by the
	// peer closing its end. fn may be called from the goroutine that
	// discovered the closure (usually the dispatcher's read loop).
	OnClose(fn func())
}

// closeNotifier is embedded by every concrete transport to implement the
// OnClose bookkeeping once instead of three times.
type closeNotifier struct {
	mu   sync.Mutex
	fn   func()
	done bool
}

func (c *closeNotifier) onClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fn = fn
}

func (c *closeNotifier) notifyClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return
	}
	c.done = true
	if c.fn != nil {
		c.fn()
	}
}
