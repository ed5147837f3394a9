package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
)

// WebSocket dials an MQTT-over-WebSocket endpoint negotiating the "mqtt"
// subprotocol, spec.md §4.3. Frames are opaque to the engine: each MQTT
// control packet may span, or share, WebSocket binary frames, so Read
// buffers whatever is left over from the previous frame.
type WebSocket struct {
	closeNotifier
	TLSConfig *TLSConfig // non-nil selects wss://

	conn    *websocket.Conn
	leftover bytes.Buffer
}

func (w *WebSocket) Connect(ctx context.Context, addr string) error {
	scheme := "ws"
	var tlsCfg *tls.Config
	if w.TLSConfig != nil {
		scheme = "wss"
		cfg, err := w.TLSConfig.build()
		if err != nil {
			return err
		}
		tlsCfg = cfg
	}
	dialer := websocket.Dialer{
		Subprotocols:    []string{"mqtt"},
		TLSClientConfig: tlsCfg,
	}
	url := fmt.Sprintf("%s://%s/mqtt", scheme, addr)
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	w.conn = conn
	return nil
}

func (w *WebSocket) Read(p []byte) (int, error) {
	for w.leftover.Len() == 0 {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			w.notifyClosed()
			return 0, err
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		w.leftover.Write(data)
	}
	return w.leftover.Read(p)
}

func (w *WebSocket) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		w.notifyClosed()
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocket) Close() error {
	w.notifyClosed()
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

func (w *WebSocket) OnClose(fn func()) { w.onClose(fn) }

var _ io.ReadWriter = (*WebSocket)(nil)
