package events

// Event type constants for kelindar/event.
const (
	TypeSessionStateChanged uint32 = iota + 1
	TypeSessionProgress
	TypeLogEntry
	TypePresetsReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStateChangedEvent is published on every lifecycle transition of a
// streaming session.
type SessionStateChangedEvent struct {
	SessionID     string `json:"session_id" example:"3f1c2a9e-8d4b-4f3a-9b1e-2c7d5e6f7a8b" doc:"Session identifier"`
	State         string `json:"state" example:"running" enum:"pending,running,stopping,stopped,failed" doc:"New state"`
	PreviousState string `json:"previous_state,omitempty" example:"pending" doc:"State before the transition"`
	ExitCode      *int   `json:"exit_code,omitempty" example:"0" doc:"Process exit code, set once the process has exited"`
	Error         string `json:"error,omitempty" doc:"Failure reason for failed sessions"`
	Timestamp     string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// IsTerminal reports whether the session can no longer change state.
func (e SessionStateChangedEvent) IsTerminal() bool {
	return e.State == "stopped" || e.State == "failed"
}

// SessionProgressEvent carries the latest ffmpeg stats line of a session.
type SessionProgressEvent struct {
	SessionID string  `json:"session_id" doc:"Session identifier"`
	Frame     int64   `json:"frame" example:"1500" doc:"Frames encoded so far"`
	FPS       float64 `json:"fps" example:"30" doc:"Current encoding frame rate"`
	SizeKB    int64   `json:"size_kb" example:"2048" doc:"Output written so far in kB"`
	Time      string  `json:"time" example:"00:00:50.00" doc:"Output timestamp"`
	Bitrate   float64 `json:"bitrate_kbps" example:"660.5" doc:"Output bitrate in kbit/s"`
	Speed     float64 `json:"speed" example:"1.01" doc:"Encoding speed relative to realtime"`
	Timestamp string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionProgressEvent.
func (e SessionProgressEvent) Type() uint32 { return TypeSessionProgress }

// LogEntryEvent represents an application log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"session" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// PresetsReloadedEvent is published after the presets file changed on disk.
type PresetsReloadedEvent struct {
	Names     []string `json:"names" example:"[\"default\"]" doc:"Preset names after the reload"`
	Timestamp string   `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PresetsReloadedEvent.
func (e PresetsReloadedEvent) Type() uint32 { return TypePresetsReloaded }
