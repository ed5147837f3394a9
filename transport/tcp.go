package transport

import (
	"context"
	"net"
)

// TCP is a plain, unencrypted byte-stream transport. Grounded on the
// teacher's net.Conn handling in conn.go/client.go's dial.
type TCP struct {
	closeNotifier
	conn net.Conn
	d    net.Dialer
}

func (t *TCP) Connect(ctx context.Context, addr string) error {
	c, err := t.d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	t.conn = c
	return nil
}

func (t *TCP) Read(p []byte) (int, error) {
	n, err := t.conn.Read(p)
	if err != nil {
		t.notifyClosed()
	}
	return n, err
}

func (t *TCP) Write(p []byte) (int, error) {
	n, err := t.conn.Write(p)
	if err != nil {
		t.notifyClosed()
	}
	return n, err
}

func (t *TCP) Close() error {
	t.notifyClosed()
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

func (t *TCP) OnClose(fn func()) { t.onClose(fn) }
