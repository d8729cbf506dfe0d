package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/restreamer/internal/events"
)

// registerSSERoutes registers the session event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time session state changes, encoder progress and preset reloads",
		Tags:        []string{"events"},
	}, map[string]any{
		"session-state":    events.SessionStateChangedEvent{},
		"session-progress": events.SessionProgressEvent{},
		"presets-reloaded": events.PresetsReloadedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		subs := events.Subscriptions{
			events.SubscribeToChannel[events.SessionStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SessionProgressEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PresetsReloadedEvent](s.eventBus, eventCh),
		}
		defer subs.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
