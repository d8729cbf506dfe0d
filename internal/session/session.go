// Package session supervises restream runs. A session is one ffmpeg process
// started from a set of form settings; at most one session is active at a time.
package session

import (
	"time"

	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/process"
)

// State is the lifecycle state of a session.
type State string

// Session states. pending -> running -> stopping -> stopped | failed, and
// pending -> failed when the process cannot be spawned.
const (
	StatePending  State = State(process.StatePending)
	StateRunning  State = State(process.StateRunning)
	StateStopping State = State(process.StateStopping)
	StateStopped  State = State(process.StateStopped)
	StateFailed   State = State(process.StateFailed)
)

// IsTerminal reports whether the session has finished.
func (s State) IsTerminal() bool {
	return process.State(s).IsTerminal()
}

// Session is a point-in-time snapshot of one run.
type Session struct {
	ID       string
	State    State
	Settings ffmpeg.Settings
	// Destination is the URL handed to ffmpeg after DNS resolution.
	Destination string
	Args        []string
	Command     string
	PID         int
	CreatedAt   time.Time
	StartedAt   time.Time
	EndedAt     time.Time
	// ExitCode is nil until the process has exited.
	ExitCode *int
	// Forced is set when a requested stop had to kill the process.
	Forced   bool
	Error    string
	Progress *ffmpeg.Progress
	LogLines int
}

// Uptime is how long the process ran, or has been running.
func (s *Session) Uptime(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if !s.EndedAt.IsZero() {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// LogLine is one buffered diagnostic line of a session.
type LogLine struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// StartResult is the outcome of Start.
type StartResult struct {
	Session *Session
	// Output is the operator-facing status text.
	Output string
	// Logs are the diagnostic lines seen during the startup window.
	Logs    []string
	Command string
}

// StopResult is the outcome of Stop.
type StopResult struct {
	Session *Session
	Output  string
	Forced  bool
}

// Operator-facing outputs.
const (
	OutputStarted   = "Command executed successfully."
	OutputStreaming = "\nStreaming in progress..."
	OutputStopped   = "Stream stopped."
	OutputForced    = "Stopping the stream took too long. Forcing termination."
)
