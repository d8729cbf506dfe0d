package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "events",
	Name:      "dropped_total",
	Help:      "Events not delivered to a slow SSE client",
}, []string{"event"})

// IncEventsDropped counts an event dropped because a subscriber's buffer was full.
func IncEventsDropped(event string) {
	eventsDropped.WithLabelValues(event).Inc()
}
