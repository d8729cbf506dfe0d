// Package logging provides structured logging with per-module log levels.
//
// Initialize once at startup, then ask for a module logger:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "auto", // text on a terminal, json otherwise
//		Modules: map[string]string{
//			"session": "debug",
//			"ffmpeg":  "warn",
//		},
//	})
//
//	logger := logging.GetLogger("session").With("session_id", id)
//	logger.Info("Session started", "pid", pid)
//
// Records fan out to stdout, the systemd journal when journald is
// reachable, and an in-memory ring buffer. The buffer backs the
// /api/logs/stream endpoint; SetLogCallback lets the caller publish each
// entry without this package importing the event bus.
//
// When running under systemd the journal fields are upper-cased attribute
// keys, so a single run can be followed with:
//
//	journalctl -t restreamer SESSION_ID=<id>
package logging
