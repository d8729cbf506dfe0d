package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SessionStates are the lifecycle states exported by the state gauge.
var SessionStates = []string{"pending", "running", "stopping", "stopped", "failed"}

var (
	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "state",
		Help:      "1 for the state the current session is in, 0 otherwise",
	}, []string{"state"})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "started_total",
		Help:      "Sessions whose process spawned successfully",
	})

	sessionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "failed_total",
		Help:      "Sessions that ended in the failed state",
	}, []string{"reason"})

	stopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "stops_total",
		Help:      "Requested stops by outcome",
	}, []string{"outcome"})
)

// Failure reasons.
const (
	FailureSpawn = "spawn"
	FailureExit  = "exit"
)

// SetSessionState marks state as the current one.
func SetSessionState(state string) {
	for _, s := range SessionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		sessionState.WithLabelValues(s).Set(v)
	}
}

// IncSessionsStarted counts a successfully spawned session.
func IncSessionsStarted() {
	sessionsStarted.Inc()
}

// IncSessionsFailed counts a failed session.
func IncSessionsFailed(reason string) {
	sessionsFailed.WithLabelValues(reason).Inc()
}

// IncStops counts a requested stop. forced is true when SIGKILL was needed.
func IncStops(forced bool) {
	outcome := "graceful"
	if forced {
		outcome = "forced"
	}
	stopsTotal.WithLabelValues(outcome).Inc()
}
