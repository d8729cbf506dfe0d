package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/restreamer/internal/events"
	"github.com/smazurov/restreamer/internal/logging"
)

// subprocessModule is the logger module carrying ffmpeg's own output. Those
// lines stay in the journal and the per-session buffer and are not streamed.
const subprocessModule = "ffmpeg"

type logStreamInput struct {
	Tail   int    `query:"tail" minimum:"0" example:"100" doc:"Historical entries to replay first, 0 for all buffered"`
	Module string `query:"module" example:"session" doc:"Only entries of this module"`
}

// registerLogRoutes registers the log streaming SSE endpoint.
func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Application log streaming via Server-Sent Events. Sends buffered entries first, then streams new ones. ffmpeg output is not included; read it from the session logs endpoint.",
		Tags:        []string{"logs"},
	}, map[string]any{
		"log": events.LogEntryEvent{},
	}, func(ctx context.Context, input *logStreamInput, send sse.Sender) {
		// subscribe before replaying so nothing falls between the two
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		var lastSeq uint64
		if buffer := logging.GetBuffer(); buffer != nil {
			entries := buffer.Tail(input.Tail)
			// sequence numbers count every entry ever written
			first := buffer.Total() - uint64(len(entries)) + 1
			for i, entry := range entries {
				lastSeq = first + uint64(i)
				if !wanted(entry.Module, input.Module) {
					continue
				}
				if err := send.Data(events.LogEntryEvent{
					Seq:        lastSeq,
					Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
					Level:      entry.Level,
					Module:     entry.Module,
					Message:    entry.Message,
					Attributes: entry.Attributes,
				}); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				entry, ok := ev.(events.LogEntryEvent)
				if !ok || (entry.Seq != 0 && entry.Seq <= lastSeq) {
					continue
				}
				if !wanted(entry.Module, input.Module) {
					continue
				}
				if err := send.Data(entry); err != nil {
					return
				}
			}
		}
	})
}

func wanted(module, filter string) bool {
	if module == subprocessModule {
		return false
	}
	return filter == "" || module == filter
}
