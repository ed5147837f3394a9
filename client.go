package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/golang-io/mqttc/packet"
	"github.com/golang-io/mqttc/topic"
	"github.com/golang-io/mqttc/transport"
	"golang.org/x/sync/errgroup"
)

// State is the connection handler's lifecycle state, spec.md §4.5:
// disconnected -> connecting -> connected -> disconnecting -> disconnected
// (or faulted on a handshake failure).
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Client is an MQTT 3.1 / 3.1.1 client. It owns a single session: one
// transport, one dispatcher, one publishing manager, one subscriptions
// manager, and the keep-alive timer that watches over them. Grounded on the
// teacher's Client (client.go) and conn.go's state machine, generalized
// from an HTTP-flavored RoundTripper to the MQTT handshake spec.md §4.5
// describes.
type Client struct {
	opts Options

	mu    sync.Mutex
	state State
	tr    transport.Transport

	disp *dispatcher
	pub  *publishManager
	subs *subscriptionsManager
	keep *keepAlive

	logger  *log.Logger
	logging bool
	stat    *stat

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New constructs a Client. It does not connect; call Connect.
func New(opts ...Option) *Client {
	o := newOptions(opts...)
	c := &Client{
		opts:   o,
		state:  StateDisconnected,
		logger: log.New(os.Stderr, "mqttc: ", log.LstdFlags),
		stat:   newStat(o.ClientID),
	}
	if o.MetricsRegistry != nil {
		c.stat.register(o.MetricsRegistry)
	}
	return c
}

// Logging sets the flag that gates logf, which writes through a logger owned
// by the Client rather than a process-global flag (spec.md §6's logging(on)
// operation, spec.md §9). No protocol path of the client calls logf, so the
// flag produces no output.
func (c *Client) Logging(on bool) {
	c.mu.Lock()
	c.logging = on
	c.mu.Unlock()
}

func (c *Client) logf(format string, args ...any) {
	c.mu.Lock()
	on := c.logging
	c.mu.Unlock()
	if on {
		c.logger.Printf(format, args...)
	}
}

// State reports the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) dial(ctx context.Context) (transport.Transport, error) {
	addr := net.JoinHostPort(c.opts.Server, strconv.Itoa(c.opts.Port))
	var tr transport.Transport
	switch {
	case c.opts.UseWebSocket:
		tr = &transport.WebSocket{TLSConfig: secureTLSConfig(c.opts)}
	case c.opts.Secure:
		tr = &transport.TLS{Config: c.opts.TLS}
	default:
		tr = &transport.TCP{}
	}
	if err := tr.Connect(ctx, addr); err != nil {
		return nil, err
	}
	return tr, nil
}

func secureTLSConfig(o Options) *transport.TLSConfig {
	if !o.Secure {
		return nil
	}
	cfg := o.TLS
	return &cfg
}

func (c *Client) buildConnectPacket() (*packet.Connect, error) {
	cm := c.opts.ConnectMessage
	if cm == nil {
		cm = &ConnectMessage{
			ClientID:     c.opts.ClientID,
			CleanSession: true,
			KeepAlive:    c.opts.KeepAlive,
		}
	}
	if cm.ClientID == "" {
		return nil, newErr(ErrClientIdentifierInvalid, fmt.Errorf("client identifier is empty"))
	}

	flags := connectFlagsFromMessage(cm)
	pkt := &packet.Connect{
		Level:     c.opts.Version,
		Flags:     flags,
		KeepAlive: uint16(cm.KeepAlive / time.Second),
		ClientID:  cm.ClientID,
	}
	if flags.WillFlag {
		pkt.WillTopic = cm.WillTopic
		pkt.WillPayload = cm.WillPayload
	}
	if flags.UsernameFlag {
		pkt.Username = cm.Username
	}
	if flags.PasswordFlag {
		pkt.Password = []byte(cm.Password)
	}
	return pkt, nil
}

// connectFlagsFromMessage derives the wire connect-flags byte from a
// ConnectMessage: username/password flags follow from non-empty fields,
// the will flag from a non-empty WillTopic.
func connectFlagsFromMessage(cm *ConnectMessage) packet.ConnectFlags {
	return packet.ConnectFlags{
		UsernameFlag: cm.Username != "",
		PasswordFlag: cm.Password != "",
		WillFlag:     cm.WillTopic != "",
		WillQoS:      cm.WillQoS,
		WillRetain:   cm.WillRetain,
		CleanSession: cm.CleanSession,
	}
}

// Connect opens the transport and drives the handshake of spec.md §4.5:
// open transport, start the dispatcher, register the internal ConnAck
// handler, send Connect, and wait (bounded by WithConnectTimeout) for
// ConnAck. On return code 0 the client becomes connected; any other
// outcome returns a *ClientError and leaves the transport closed.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	connectPkt, err := c.buildConnectPacket()
	if err != nil {
		c.setState(StateFaulted)
		return err
	}

	tr, err := c.dial(ctx)
	if err != nil {
		c.setState(StateFaulted)
		return newErr(ErrConnectionFailed, err)
	}
	c.tr = tr

	groupCtx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(groupCtx)
	c.group, c.cancel = group, cancel

	send := c.sendLocked
	c.disp = newDispatcher(c.logger, c.stat)
	c.pub = newPublishManager(send, c.subs0Dispatch)
	c.subs = newSubscriptionsManager(send, c.stat)
	dispenser := newMidDispenser(func(id uint16) bool { return c.pub.isLive(id) || c.subs.isLive(id) })
	c.pub.mid = dispenser
	c.subs.mid = dispenser

	c.disp.register(packet.PUBLISH, func(p packet.Packet) { c.pub.handlePublish(p.(*packet.Publish)) })
	c.disp.register(packet.PUBACK, func(p packet.Packet) { c.pub.handlePubAck(p.(*packet.PubAck)) })
	c.disp.register(packet.PUBREC, func(p packet.Packet) { c.pub.handlePubRec(p.(*packet.PubRec)) })
	c.disp.register(packet.PUBREL, func(p packet.Packet) { c.pub.handlePubRel(p.(*packet.PubRel)) })
	c.disp.register(packet.PUBCOMP, func(p packet.Packet) { c.pub.handlePubComp(p.(*packet.PubComp)) })
	c.disp.register(packet.SUBACK, func(p packet.Packet) { c.subs.handleSubAck(p.(*packet.SubAck)) })
	c.disp.register(packet.UNSUBACK, func(p packet.Packet) { c.subs.handleUnsubAck(p.(*packet.UnsubAck)) })

	connAckCh := make(chan *packet.ConnAck, 1)
	c.disp.register(packet.CONNACK, func(p packet.Packet) {
		select {
		case connAckCh <- p.(*packet.ConnAck):
		default:
		}
	})
	c.disp.register(packet.PINGRESP, func(p packet.Packet) { c.keep.notePingResp() })

	group.Go(func() error {
		err := c.disp.run(tr)
		c.onTransportClosed(err)
		return err
	})

	c.keep = newKeepAlive(c.opts.KeepAlive, send, func() { c.onUnsolicitedDisconnect(fmt.Errorf("keep-alive: no ping response")) })
	group.Go(func() error { c.keep.run(); return nil })

	if err := c.sendLocked(connectPkt); err != nil {
		c.teardown()
		c.setState(StateFaulted)
		return newErr(ErrConnectionFailed, err)
	}

	timeout := c.opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case ack := <-connAckCh:
		if ack.ReturnCode != packet.Accepted {
			c.teardown()
			c.setState(StateFaulted)
			return &ClientError{Kind: ErrConnectionFailed, ReturnCode: ack.ReturnCode}
		}
		c.setState(StateConnected)
		return nil
	case <-time.After(timeout):
		c.teardown()
		c.setState(StateFaulted)
		return newErr(ErrConnectionFailed, fmt.Errorf("timed out waiting for CONNACK"))
	case <-gctx.Done():
		c.teardown()
		c.setState(StateFaulted)
		return newErr(ErrConnectionFailed, gctx.Err())
	}
}

// subs0Dispatch adapts the publishing manager's delivery callback to the
// subscriptions manager's fan-out, keeping the two managers from importing
// each other directly.
func (c *Client) subs0Dispatch(topicName string, payload []byte) {
	c.subs.dispatch(topicName, payload)
}

func (c *Client) sendLocked(p packet.Packet) error {
	c.mu.Lock()
	tr := c.tr
	c.mu.Unlock()
	if tr == nil {
		return newErr(ErrNoConnection, nil)
	}
	if err := p.Pack(writerAdapter{tr, c.stat}); err != nil {
		return err
	}
	c.stat.PacketsSent.Inc()
	if c.keep != nil {
		c.keep.noteSent()
	}
	return nil
}

// writerAdapter lets packet.Packet.Pack, which wants an io.Writer, write
// straight to a transport.Transport, counting the bytes it writes.
type writerAdapter struct {
	t transport.Transport
	s *stat
}

func (w writerAdapter) Write(p []byte) (int, error) {
	n, err := w.t.Write(p)
	if n > 0 {
		w.s.BytesSent.Add(float64(n))
	}
	return n, err
}

// onTransportClosed is invoked once the dispatcher's read loop returns,
// whether from a clean Close() or the peer hanging up.
func (c *Client) onTransportClosed(err error) {
	if c.State() != StateConnected {
		return
	}
	c.onUnsolicitedDisconnect(err)
}

// onUnsolicitedDisconnect implements spec.md §4.5's "unexpected transport
// close while connected" transition: fires onDisconnected exactly once and
// moves to disconnected.
func (c *Client) onUnsolicitedDisconnect(err error) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	c.mu.Unlock()

	c.stat.Reconnects.Inc()
	c.teardown()
	if c.opts.OnDisconnected != nil {
		c.opts.OnDisconnected(classifyDisconnectErr(err))
	}
}

// classifyDisconnectErr wraps a codec decode failure in the matching
// *ClientError kind (spec.md §7); any other cause (I/O error, peer close,
// keep-alive timeout) is passed through unmarshalled, as the source data
// itself isn't a protocol violation.
func classifyDisconnectErr(err error) error {
	switch {
	case errors.Is(err, packet.ErrMalformedHeader):
		return newErr(ErrInvalidHeader, err)
	case errors.Is(err, packet.ErrMalformedBody):
		return newErr(ErrInvalidMessage, err)
	case errors.Is(err, packet.ErrPayloadTooLarge):
		return newErr(ErrInvalidPayloadSize, err)
	default:
		return err
	}
}

func (c *Client) teardown() {
	if c.keep != nil {
		c.keep.close()
	}
	c.mu.Lock()
	tr := c.tr
	c.tr = nil
	c.mu.Unlock()
	if tr != nil {
		_ = tr.Close()
	}
	if c.cancel != nil {
		c.cancel()
	}
	if c.pub != nil {
		c.pub.reset()
	}
	if c.subs != nil {
		c.subs.reset()
	}
}

// Disconnect sends Disconnect best-effort, closes the transport, and resets
// session state. Pending QoS 2 entries are dropped; no session persistence
// (spec.md §5 Cancellation, §6 Persisted state).
func (c *Client) Disconnect() error {
	c.setState(StateDisconnecting)
	if c.State() == StateDisconnecting {
		_ = c.sendLocked(&packet.Disconnect{})
	}
	c.teardown()
	c.setState(StateDisconnected)
	return nil
}

// PublishMessage sends topic at the given QoS (spec.md §6). A structurally
// invalid, or wildcard-carrying, publish topic fails synchronously with
// ErrInvalidTopic and writes no bytes; the connection remains connected.
func (c *Client) PublishMessage(tp string, qos byte, payload []byte, retain bool) (uint16, error) {
	if err := topic.ValidatePublishTopic(tp); err != nil {
		return 0, newErr(ErrInvalidTopic, err)
	}
	if c.State() != StateConnected {
		return 0, newErr(ErrNoConnection, nil)
	}
	return c.pub.publish(tp, qos, payload, retain)
}

// Subscribe registers topic at qos, returning its Subscription handle
// (spec.md §4.8). Calling it again for the same topic returns the existing
// Subscription and sends no second Subscribe packet.
func (c *Client) Subscribe(tp string, qos byte) (*Subscription, error) {
	if c.State() != StateConnected {
		return nil, newErr(ErrNoConnection, nil)
	}
	return c.subs.subscribe(tp, qos)
}

// Unsubscribe removes the subscription for topic, if any.
func (c *Client) Unsubscribe(tp string) error {
	if c.State() != StateConnected {
		return newErr(ErrNoConnection, nil)
	}
	return c.subs.unsubscribe(tp)
}

// GetSubscriptionStatus reports the lifecycle state of the subscription
// for topic (spec.md §6).
func (c *Client) GetSubscriptionStatus(tp string) SubscriptionStatus {
	return c.subs.status(tp)
}

// RegisterHandler adds h to the ordered list of callbacks invoked for every
// parsed packet of the given kind (spec.md §4.5's registerForMessage).
func (c *Client) RegisterHandler(kind byte, h Handler) {
	c.disp.register(kind, h)
}
