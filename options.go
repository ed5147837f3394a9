package mqtt

import (
	"time"

	"github.com/golang-io/mqttc/packet"
	"github.com/golang-io/mqttc/transport"
	"github.com/golang-io/requests"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultKeepAlive is the keep-alive period (seconds) used when no
// WithKeepAlive option is given, spec.md §6.
const DefaultKeepAlive = 60 * time.Second

// ConnectMessage overrides the default Connect packet the handshake sends
// (spec.md §4.5 step 4). Building one directly exposes the will message
// that spec.md §9 notes the original library only partially modeled.
type ConnectMessage struct {
	ClientID     string
	CleanSession bool
	KeepAlive    time.Duration
	Username     string
	Password     string
	WillTopic    string
	WillPayload  []byte
	WillQoS      byte
	WillRetain   bool
}

// Options configures a Client. Built by New via functional options rather
// than threaded by hand (spec.md §9 "Global state" redesign note).
type Options struct {
	Server          string
	Port            int
	ClientID        string
	Version         byte
	UseWebSocket    bool
	Secure          bool
	TLS             transport.TLSConfig
	KeepAlive       time.Duration
	ConnectMessage  *ConnectMessage
	OnDisconnected  func(err error)
	ConnectTimeout  time.Duration
	MetricsRegistry *prometheus.Registry
}

// Option configures a Client at construction time.
type Option func(*Options)

func newOptions(opts ...Option) Options {
	o := Options{
		Server:         "127.0.0.1",
		Port:           1883,
		ClientID:       "mqttc-" + requests.GenId(),
		Version:        packet.VERSION311,
		KeepAlive:      DefaultKeepAlive,
		ConnectTimeout: 5 * time.Second,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.Secure && o.Port == 1883 {
		o.Port = 8883
	}
	return o
}

// WithServer sets the broker hostname.
func WithServer(server string) Option {
	return func(o *Options) { o.Server = server }
}

// WithPort sets the broker port. Defaults to 1883, or 8883 when WithSecure
// is also given and no explicit port was set.
func WithPort(port int) Option {
	return func(o *Options) { o.Port = port }
}

// WithClientID sets the client identifier sent in Connect.
func WithClientID(id string) Option {
	return func(o *Options) { o.ClientID = id }
}

// WithVersion selects the protocol level: packet.VERSION310 ("MQIsdp") or
// packet.VERSION311 ("MQTT").
func WithVersion(level byte) Option {
	return func(o *Options) { o.Version = level }
}

// WithWebSocket selects the WebSocket transport instead of a raw socket.
func WithWebSocket() Option {
	return func(o *Options) { o.UseWebSocket = true }
}

// WithSecure selects TLS (or WebSocket-over-TLS when combined with
// WithWebSocket).
func WithSecure() Option {
	return func(o *Options) { o.Secure = true }
}

// WithTLS supplies the certificate material for the secure transport.
func WithTLS(cfg transport.TLSConfig) Option {
	return func(o *Options) { o.TLS = cfg; o.Secure = true }
}

// WithKeepAlive sets the keep-alive period. Zero disables the ping timer
// entirely (spec.md §4.6).
func WithKeepAlive(d time.Duration) Option {
	return func(o *Options) { o.KeepAlive = d }
}

// WithConnectMessage overrides the default Connect packet the handshake
// builds.
func WithConnectMessage(m ConnectMessage) Option {
	return func(o *Options) { o.ConnectMessage = &m }
}

// WithOnDisconnected registers the callback fired exactly once when an
// established connection is lost without a caller-initiated Disconnect.
func WithOnDisconnected(fn func(err error)) Option {
	return func(o *Options) { o.OnDisconnected = fn }
}

// WithConnectTimeout bounds how long Connect waits for ConnAck.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) { o.ConnectTimeout = d }
}

// WithMetricsRegistry registers this Client's counters and gauges (packets
// sent/received, bytes sent/received, reconnects, active subscriptions)
// with reg. Unset by default: a process running several Clients chooses
// its own registry rather than one being picked automatically.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *Options) { o.MetricsRegistry = reg }
}
