package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/podium/pkg/metrics"
)

// handleHealth handles GET /healthz with the Prometheus exposition of the
// service registry.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.UpdateSystemMetrics()
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
