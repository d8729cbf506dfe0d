// Package process provides subprocess lifecycle management.
//
// The package offers two levels of abstraction:
//
// Process wraps os/exec for a single subprocess:
//   - argv is executed directly, never through a shell
//   - spawn success or failure is reported on Started before Run blocks
//   - graceful shutdown with SIGINT and a configurable timeout
//   - force kill with SIGKILL if graceful shutdown times out
//   - output streaming with pluggable log parsing
//
// Pool manages processes by ID:
//   - Start/Stop individual processes
//   - state tracking (pending, running, stopping, stopped, failed)
//   - a MaxActive limit on non-terminal processes
//   - bounded history of finished processes
//   - StopAll for graceful shutdown of everything still active
//
// Example usage with Pool:
//
//	pool := process.NewPool(&process.PoolOptions{
//	    MaxActive: 1,
//	    OnStateChange: func(id string, old, new process.State, err error) {
//	        log.Printf("process %s: %s -> %s", id, old, new)
//	    },
//	})
//	if err := pool.Start("session-1", []string{"ffmpeg", "-i", src, "-f", "flv", dst}); err != nil {
//	    return err
//	}
//	defer pool.StopAll()
package process
