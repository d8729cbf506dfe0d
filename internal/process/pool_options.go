package process

import (
	"log/slog"
	"time"
)

// StateChangeCallback is called when a process state changes.
// Callbacks run asynchronously on a pool-owned goroutine, one at a time and
// in transition order.
type StateChangeCallback func(id string, oldState, newState State, err error)

// Configurer configures a Process before it starts.
// Used for domain-specific setup (e.g., log parser, output handler).
type Configurer func(id string, proc *Process)

// PoolOptions configures a new Pool.
type PoolOptions struct {
	// MaxActive bounds the number of non-terminal processes. 0 means unlimited.
	MaxActive int

	// HistorySize is how many terminal entries are retained. Defaults to 20.
	HistorySize int

	// GracefulTimeout is the wait after SIGINT before SIGKILL. Defaults to 10s.
	GracefulTimeout time.Duration

	// KillTimeout is the wait after SIGKILL before giving up. Defaults to 5s.
	KillTimeout time.Duration

	// OnStateChange is called when process state transitions (optional).
	OnStateChange StateChangeCallback

	// ConfigureProcess allows customization of the Process before start (optional).
	ConfigureProcess Configurer

	// Logger for pool operations. If nil, uses slog.Default().
	Logger *slog.Logger
}

const (
	defaultHistorySize     = 20
	defaultGracefulTimeout = 10 * time.Second
	defaultKillTimeout     = 5 * time.Second
)
