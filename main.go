package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/gofrs/flock"

	"github.com/smazurov/restreamer/cmd"
	"github.com/smazurov/restreamer/internal/api"
	"github.com/smazurov/restreamer/internal/config"
	"github.com/smazurov/restreamer/internal/events"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/logging"
	"github.com/smazurov/restreamer/internal/metrics/exporters"
	"github.com/smazurov/restreamer/internal/presets"
	"github.com/smazurov/restreamer/internal/session"
	"github.com/smazurov/restreamer/internal/version"
	"github.com/smazurov/restreamer/ui"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port             string `help:"Port to listen on" short:"p" default:":8080" toml:"server.port" env:"SERVER_PORT"`
	ServerCORSOrigin string `help:"Access-Control-Allow-Origin value" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// ffmpeg settings
	Binary string `help:"ffmpeg executable" default:"ffmpeg" toml:"ffmpeg.binary" env:"FFMPEG_BINARY"`

	// Stream supervision settings
	StreamStartupWindow      string `help:"How long Run Command waits for early output" default:"3s" toml:"stream.startup_window" env:"STREAM_STARTUP_WINDOW"`
	StreamGracefulTimeout    string `help:"Wait after SIGINT before killing ffmpeg" default:"10s" toml:"stream.graceful_timeout" env:"STREAM_GRACEFUL_TIMEOUT"`
	StreamKillTimeout        string `help:"Wait after SIGKILL before giving up" default:"5s" toml:"stream.kill_timeout" env:"STREAM_KILL_TIMEOUT"`
	StreamLogLines           int    `help:"Diagnostic lines kept per session" default:"500" toml:"stream.log_lines" env:"STREAM_LOG_LINES"`
	StreamHistorySize        int    `help:"Finished sessions kept for inspection" default:"20" toml:"stream.history_size" env:"STREAM_HISTORY_SIZE"`
	StreamResolveDestination bool   `help:"Replace the RTMP host with its IPv4 address" default:"true" toml:"stream.resolve_destination" env:"STREAM_RESOLVE_DESTINATION"`

	// Encoding overrides, empty keeps the built-in profile
	EncodingPreset       string `help:"x264 preset" default:"" toml:"encoding.preset" env:"ENCODING_PRESET"`
	EncodingVideoCodec   string `help:"Video codec" default:"" toml:"encoding.video_codec" env:"ENCODING_VIDEO_CODEC"`
	EncodingVideoBitrate string `help:"Video bitrate" default:"" toml:"encoding.video_bitrate" env:"ENCODING_VIDEO_BITRATE"`
	EncodingMaxrate      string `help:"Maximum video bitrate" default:"" toml:"encoding.maxrate" env:"ENCODING_MAXRATE"`
	EncodingAudioBitrate string `help:"Audio bitrate" default:"" toml:"encoding.audio_bitrate" env:"ENCODING_AUDIO_BITRATE"`

	// Presets settings
	PresetsFile string `help:"Presets file" default:"presets.toml" toml:"presets.file" env:"PRESETS_FILE"`

	// Observability settings
	MetricsEnabled bool `help:"Serve Prometheus metrics at /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Instance settings
	InstanceLockFile string `help:"Single-instance lock file, empty disables" default:"restreamer.lock" toml:"instance.lock_file" env:"INSTANCE_LOCK_FILE"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json, auto)" default:"auto" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSession string `help:"Session logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingFfmpeg  string `help:"ffmpeg output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingProcess string `help:"Process manager logging level" default:"info" toml:"logging.process" env:"LOGGING_PROCESS"`
	LoggingPresets string `help:"Presets logging level" default:"info" toml:"logging.presets" env:"LOGGING_PRESETS"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

// duration parses a config duration, falling back on empty or bad input.
func duration(logger *slog.Logger, key, value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("Invalid duration, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return d
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"session":         opts.LoggingSession,
				"ffmpeg":          opts.LoggingFfmpeg,
				"process_manager": opts.LoggingProcess,
				"presets":         opts.LoggingPresets,
				"api":             opts.LoggingAPI,
				"http":            opts.LoggingAPI,
			},
		})

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Forward every buffered log entry to /api/logs/stream subscribers
		logging.SetLogCallback(func(entry logging.LogEntry) {
			var seq uint64
			if buffer := logging.GetBuffer(); buffer != nil {
				seq = buffer.Total()
			}
			eventBus.Publish(events.LogEntryEvent{
				Seq:        seq,
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		// Presets are read-only; the watcher keeps them current
		presetLogger := logging.GetLogger("presets")
		presetStore := presets.NewStore(opts.PresetsFile)
		if loadErr := presetStore.Load(); loadErr != nil {
			presetLogger.Warn("Failed to load presets, using built-in defaults", "file", opts.PresetsFile, "error", loadErr)
		}
		presetWatcher := presets.NewWatcher(presetStore, presetLogger,
			config.WithDebounce[*presets.File](500*time.Millisecond),
		)
		presetWatcher.OnReload(func(*presets.File) {
			names := presetStore.Names()
			presetLogger.Info("Presets reloaded", "presets", names)
			eventBus.Publish(events.PresetsReloadedEvent{
				Names:     names,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		})

		sessions := session.NewService(session.Options{
			Binary: opts.Binary,
			Encoding: ffmpeg.Encoding{
				Preset:       opts.EncodingPreset,
				VideoCodec:   opts.EncodingVideoCodec,
				VideoBitrate: opts.EncodingVideoBitrate,
				MaxRate:      opts.EncodingMaxrate,
				AudioBitrate: opts.EncodingAudioBitrate,
			},
			StartupWindow:      duration(logger, "stream.startup_window", opts.StreamStartupWindow, 3*time.Second),
			GracefulTimeout:    duration(logger, "stream.graceful_timeout", opts.StreamGracefulTimeout, 10*time.Second),
			KillTimeout:        duration(logger, "stream.kill_timeout", opts.StreamKillTimeout, 5*time.Second),
			LogLines:           opts.StreamLogLines,
			HistorySize:        opts.StreamHistorySize,
			ResolveDestination: opts.StreamResolveDestination,
			Bus:                eventBus,
		})

		uiHandler, uiErr := ui.Handler(presetStore, version.Version, logger)
		if uiErr != nil {
			logger.Error("Failed to load control panel", "error", uiErr)
		}

		apiOpts := &api.Options{
			CORSOrigin: opts.ServerCORSOrigin,
			Sessions:   sessions,
			Presets:    presetStore,
			EventBus:   eventBus,
			UIHandler:  uiHandler,
		}
		if opts.MetricsEnabled {
			apiOpts.MetricsHandler = exporters.HTTPHandler()
		}

		server := api.NewServer(apiOpts)

		var lock *flock.Flock

		hooks.OnStart(func() {
			// Two panels on one host would each drive their own ffmpeg
			if opts.InstanceLockFile != "" {
				lock = flock.New(opts.InstanceLockFile)
				locked, lockErr := lock.TryLock()
				if lockErr != nil {
					logger.Error("Failed to acquire instance lock", "file", opts.InstanceLockFile, "error", lockErr)
					os.Exit(1)
				}
				if !locked {
					logger.Error("Another restreamer instance is running", "file", opts.InstanceLockFile)
					os.Exit(1)
				}
			}

			if watchErr := presetWatcher.Start(); watchErr != nil {
				presetLogger.Warn("Failed to start presets watcher, hot-reload disabled", "error", watchErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port, "version", version.Get().String())
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Stop ffmpeg after the HTTP server stops accepting new runs
			logger.Info("Stopping stream")
			sessions.Shutdown()

			if stopErr := presetWatcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping presets watcher", "error", stopErr)
			}
			if lock != nil {
				if unlockErr := lock.Unlock(); unlockErr != nil {
					logger.Warn("Failed to release instance lock", "error", unlockErr)
				}
			}
		})
	})

	cli.Root().Use = "restreamer"
	cli.Root().Short = "FFmpeg RTMP restreamer control panel"
	cli.Root().AddCommand(cmd.CreateCommandCmd())
	cli.Root().AddCommand(cmd.CreateProbeCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	// Run the CLI
	cli.Run()
}
