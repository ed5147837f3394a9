package transport

import (
	"context"
	"log"
	"net/http"

	"github.com/golang-io/requests"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServeMetrics exposes reg's collectors on addr at /metrics. It is an
// optional debug aid (spec.md's "supplemented features": a scaled-down
// version of the teacher's stat.go Httpd, with the pprof routes and
// federation endpoints dropped as broker/cluster concerns out of scope for
// a client engine). reg is the same *prometheus.Registry passed to
// mqttc.WithMetricsRegistry, so this serves that Client's own counters
// rather than the global default registry. Blocks until ctx is canceled.
func ServeMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := requests.NewServeMux(requests.URL(addr))
	mux.Route("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := requests.NewServer(ctx, mux, requests.OnStart(func(s *http.Server) {
		log.Printf("mqttc: metrics listening on %s", s.Addr)
	}))
	return srv.ListenAndServe()
}
