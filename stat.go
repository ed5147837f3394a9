package mqtt

import "github.com/prometheus/client_golang/prometheus"

// stat holds this Client's prometheus counters/gauges. Grounded on the
// teacher's stat.go, re-pointed from server-wide package-level singletons
// to one registry per Client (spec.md §9 "Global state": no process-global
// mutable registration).
type stat struct {
	PacketsSent     prometheus.Counter
	PacketsReceived prometheus.Counter
	BytesSent       prometheus.Counter
	BytesReceived   prometheus.Counter
	Reconnects      prometheus.Counter
	ActiveSubs      prometheus.Gauge
}

func newStat(clientID string) *stat {
	labels := prometheus.Labels{"client_id": clientID}
	return &stat{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqttc_packets_sent_total", Help: "Total MQTT control packets sent.", ConstLabels: labels,
		}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqttc_packets_received_total", Help: "Total MQTT control packets received.", ConstLabels: labels,
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqttc_bytes_sent_total", Help: "Total bytes written to the transport.", ConstLabels: labels,
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqttc_bytes_received_total", Help: "Total bytes read from the transport.", ConstLabels: labels,
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqttc_reconnects_total", Help: "Total unsolicited disconnects observed.", ConstLabels: labels,
		}),
		ActiveSubs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqttc_active_subscriptions", Help: "Current number of active subscriptions.", ConstLabels: labels,
		}),
	}
}

// register adds every counter/gauge to reg. Registration is opt-in rather
// than automatic at construction, since a process may run several Clients
// sharing one registry.
func (s *stat) register(reg *prometheus.Registry) {
	reg.MustRegister(s.PacketsSent, s.PacketsReceived, s.BytesSent, s.BytesReceived, s.Reconnects, s.ActiveSubs)
}
