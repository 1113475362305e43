// Package metrics exposes Prometheus-format metrics on a dedicated
// listener, separate from the API server.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Application counters. Registered in the default set and served by
// every MetricsServer.
var (
	ProvisionRunsStarted   = metrics.NewCounter("provision_runs_started_total")
	ProvisionRunsSucceeded = metrics.NewCounter("provision_runs_succeeded_total")
	ProvisionRunsFailed    = metrics.NewCounter("provision_runs_failed_total")
	VerificationCodes      = metrics.NewCounter("verification_codes_fetched_total")
	IdentityResets         = metrics.NewCounter("identity_resets_total")
)

// MetricsServer serves the default metrics set over HTTP.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server bound to addr. The service name is
// exported as a constant gauge so dashboards can tell deployments apart.
func New(name, addr string) (*MetricsServer, error) {
	if addr == "" {
		return nil, fmt.Errorf("metrics server requires a listen address")
	}

	metrics.NewGauge(fmt.Sprintf(`service_info{name=%q}`, name), func() float64 { return 1 })

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving metrics until Shutdown.
func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the listener.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
