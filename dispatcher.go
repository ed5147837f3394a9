package mqtt

import (
	"bytes"
	"errors"
	"log"
	"sync"

	"github.com/golang-io/mqttc/packet"
)

// Handler receives a parsed packet of the type it was registered for.
type Handler func(packet.Packet)

// dispatcher owns the receive loop (spec.md §4.4): it appends newly read
// bytes to an internal buffer, repeatedly attempts to parse whole packets,
// and invokes every handler registered for the parsed type. Grounded on the
// teacher's conn.go read path and server.go serve loop, generalized from a
// server accept loop to a single client connection.
type dispatcher struct {
	mu       sync.Mutex
	handlers map[byte][]Handler
	logger   *log.Logger
	stat     *stat
}

func newDispatcher(logger *log.Logger, s *stat) *dispatcher {
	return &dispatcher{handlers: make(map[byte][]Handler), logger: logger, stat: s}
}

// register adds h to the ordered list of callbacks for kind. At least one
// handler per ack type must be registered before Connect is sent (spec.md
// §4.4); the connection handler and publishing manager register during
// construction.
func (d *dispatcher) register(kind byte, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = append(d.handlers[kind], h)
}

func (d *dispatcher) dispatch(pkt packet.Packet) {
	d.mu.Lock()
	hs := append([]Handler(nil), d.handlers[pkt.Kind()]...)
	d.mu.Unlock()
	for _, h := range hs {
		h(pkt)
	}
}

// reader is the minimal surface the dispatcher needs from a transport; it
// is satisfied by transport.Transport.
type reader interface {
	Read(p []byte) (int, error)
}

// run reads from r until it errors, parsing and dispatching whole packets
// as they become available. A truncated-packet condition is not an error:
// the loop simply waits for the next chunk. Any other decode error is
// fatal and is returned so the caller can trigger an unsolicited disconnect
// (spec.md §7 propagation policy).
func (d *dispatcher) run(r reader) error {
	var buf bytes.Buffer
	chunk := make([]byte, 4096)
	for {
		n, rerr := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			d.stat.BytesReceived.Add(float64(n))
		}
		for {
			br := bytes.NewReader(buf.Bytes())
			pkt, perr := packet.Read(br)
			if errors.Is(perr, packet.ErrTruncated) {
				break
			}
			if perr != nil {
				return perr
			}
			buf.Next(buf.Len() - br.Len())
			d.stat.PacketsReceived.Inc()
			d.dispatch(pkt)
		}
		if rerr != nil {
			return rerr
		}
	}
}
