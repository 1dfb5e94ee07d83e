package mcp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcp",
		Name:      "requests_total",
		Help:      "JSON-RPC requests handled, by method and outcome.",
	}, []string{"method", "outcome"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mcp",
		Name:      "active_sessions",
		Help:      "Sessions currently present in the session table.",
	})
)

// observeRequest records one handled JSON-RPC request.
func observeRequest(method string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	requestsTotal.WithLabelValues(method, outcome).Inc()
}
