// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

var (
	authOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runclub",
		Subsystem: "auth",
		Name:      "operations_total",
		Help:      "Auth service operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	gateRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runclub",
		Subsystem: "auth",
		Name:      "gate_rejections_total",
		Help:      "Requests rejected by the authorization middleware, by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(authOperations, gateRejections)
}

// ObserveAuth counts one auth service call.
func ObserveAuth(operation, outcome string) {
	authOperations.WithLabelValues(operation, outcome).Inc()
}

// ObserveRejection counts one request turned away by the gate.  reason is
// "unauthenticated" or "forbidden".
func ObserveRejection(reason string) {
	gateRejections.WithLabelValues(reason).Inc()
}
