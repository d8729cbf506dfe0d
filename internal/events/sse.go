package events

import (
	"github.com/kelindar/event"

	"github.com/smazurov/restreamer/internal/metrics"
)

// Subscriptions is a set of unsubscribe functions released together.
type Subscriptions []func()

// Close releases every subscription.
func (s Subscriptions) Close() {
	for _, unsub := range s {
		unsub()
	}
}

// SubscribeToChannel bridges a kelindar/event subscription to ch for SSE
// handlers that select on a channel. Publishing never blocks: when ch is
// full the event is dropped and counted.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			metrics.IncEventsDropped(Name(e))
		}
	})
}

// Name returns the SSE event name of ev.
func Name(ev Event) string {
	switch ev.Type() {
	case TypeSessionStateChanged:
		return "session-state"
	case TypeSessionProgress:
		return "session-progress"
	case TypeLogEntry:
		return "log"
	case TypePresetsReloaded:
		return "presets-reloaded"
	default:
		return "unknown"
	}
}
