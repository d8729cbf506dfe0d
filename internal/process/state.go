package process

import "time"

// State represents the current state of a managed process.
type State string

// Process states.
const (
	StatePending  State = "pending"  // Spawn in progress
	StateRunning  State = "running"  // Active
	StateStopping State = "stopping" // Stop requested, waiting for exit
	StateStopped  State = "stopped"  // Exited cleanly or on request
	StateFailed   State = "failed"   // Failed to spawn or exited non-zero on its own
)

// IsTerminal reports whether no further transitions can happen.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}

// IsActive reports whether the process occupies an active slot.
func (s State) IsActive() bool {
	return s == StatePending || s == StateRunning || s == StateStopping
}

// StopResult describes how a process ended after a stop request.
type StopResult struct {
	// Forced is true when the process ignored SIGINT and had to be killed.
	Forced   bool
	ExitCode int
	Duration time.Duration
}

// Info contains information about a managed process.
type Info struct {
	ID        string
	State     State
	Args      []string
	PID       int
	StartedAt time.Time
	EndedAt   time.Time
	// ExitCode is only meaningful once State is terminal.
	ExitCode  int
	Stop      *StopResult
	LastError error
}
