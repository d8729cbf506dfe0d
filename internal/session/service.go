package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/smazurov/restreamer/internal/events"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/logging"
	"github.com/smazurov/restreamer/internal/metrics"
	"github.com/smazurov/restreamer/internal/process"
	"github.com/smazurov/restreamer/internal/resolve"
)

const (
	defaultStartupWindow = 3 * time.Second
	defaultLogLines      = 500
	defaultHistorySize   = 20
)

// Publisher receives session events.
type Publisher interface {
	Publish(ev events.Event)
}

// ProbeFunc inspects an ffmpeg binary.
type ProbeFunc func(ctx context.Context, binary string) (*ffmpeg.Capabilities, error)

// Options configures a Service.
type Options struct {
	// Binary is the ffmpeg executable. Defaults to "ffmpeg" from PATH.
	Binary   string
	Encoding ffmpeg.Encoding

	// StartupWindow bounds how long Start waits for early output or an early exit.
	StartupWindow   time.Duration
	GracefulTimeout time.Duration
	KillTimeout     time.Duration

	// LogLines is the per-session diagnostic buffer size.
	LogLines    int
	HistorySize int

	ResolveDestination bool
	Resolver           resolve.Resolver

	Bus          Publisher
	Probe        ProbeFunc
	Logger       *slog.Logger
	FFmpegLogger *slog.Logger
}

// Preview is a generated command that has not been run.
type Preview struct {
	Args    []string
	Command string
}

type record struct {
	id          string
	settings    ffmpeg.Settings
	destination string
	args        []string
	command     string
	createdAt   time.Time
	logs        *logging.RingBuffer
	progress    *ffmpeg.Progress // guarded by Service.mu
	done        chan struct{}
	doneOnce    sync.Once
}

func (r *record) markDone() {
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *record) isDone() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Service supervises restream sessions. At most one session is active.
//
// Lock order: controlMu before mu. mu is never held while calling into the pool.
type Service struct {
	opts     Options
	pool     process.Pool
	validate *validator.Validate
	logger   *slog.Logger
	ffLogger *slog.Logger

	// controlMu serializes start, stop and restart decisions.
	controlMu sync.Mutex

	mu      sync.RWMutex
	records map[string]*record
	last    string
}

// NewService creates a session supervisor.
func NewService(opts Options) *Service {
	if opts.StartupWindow <= 0 {
		opts.StartupWindow = defaultStartupWindow
	}
	if opts.LogLines <= 0 {
		opts.LogLines = defaultLogLines
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = defaultHistorySize
	}
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.Probe == nil {
		opts.Probe = ffmpeg.Probe
	}
	opts.Encoding = opts.Encoding.WithDefaults()

	s := &Service{
		opts:     opts,
		validate: newValidator(),
		logger:   opts.Logger,
		ffLogger: opts.FFmpegLogger,
		records:  make(map[string]*record),
	}
	if s.logger == nil {
		s.logger = logging.GetLogger("session")
	}
	if s.ffLogger == nil {
		s.ffLogger = logging.GetLogger("ffmpeg")
	}

	s.pool = process.NewPool(&process.PoolOptions{
		MaxActive:        1,
		HistorySize:      opts.HistorySize,
		GracefulTimeout:  opts.GracefulTimeout,
		KillTimeout:      opts.KillTimeout,
		OnStateChange:    s.onStateChange,
		ConfigureProcess: s.configureProcess,
		Logger:           s.logger,
	})
	return s
}

// Preview validates settings and builds the command without resolving or running it.
func (s *Service) Preview(_ context.Context, settings ffmpeg.Settings) (*Preview, error) {
	if err := s.validateSettings(settings); err != nil {
		return nil, err
	}
	args := ffmpeg.BuildArgs(s.opts.Binary, settings, s.opts.Encoding)
	return &Preview{Args: args, Command: ffmpeg.FormatCommand(args)}, nil
}

// Start launches a new session and waits for the startup window, an early
// exit or ctx, whichever comes first.
func (s *Service) Start(ctx context.Context, settings ffmpeg.Settings) (*StartResult, error) {
	if err := s.validateSettings(settings); err != nil {
		return nil, err
	}

	destination := settings.DestinationURL
	if s.opts.ResolveDestination {
		resolved, err := resolve.Destination(ctx, s.opts.Resolver, destination)
		if err != nil {
			return nil, NewError(CodeResolveFailed, err.Error(), err)
		}
		destination = resolved
	}

	run := settings
	run.DestinationURL = destination
	args := ffmpeg.BuildArgs(s.opts.Binary, run, s.opts.Encoding)
	command := ffmpeg.FormatCommand(args)

	s.controlMu.Lock()
	rec, err := s.launch(settings, destination, args, command)
	s.controlMu.Unlock()
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.opts.StartupWindow)
	defer timer.Stop()
	select {
	case <-rec.done:
	case <-timer.C:
	case <-ctx.Done():
	}

	sess := s.snapshot(rec)
	output := OutputStarted
	if !sess.State.IsTerminal() {
		output += OutputStreaming
	}

	entries := rec.logs.ReadAll()
	logs := make([]string, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, e.Message)
	}

	return &StartResult{
		Session: sess,
		Output:  output,
		Logs:    logs,
		Command: command,
	}, nil
}

// launch registers a record and spawns it. Caller holds controlMu.
func (s *Service) launch(settings ffmpeg.Settings, destination string, args []string, command string) (*record, error) {
	if len(s.pool.Active()) > 0 {
		e := NewError(CodeAlreadyRunning, MsgAlreadyRunning, nil)
		e.Command = command
		return nil, e
	}

	rec := &record{
		id:          uuid.NewString(),
		settings:    settings,
		destination: destination,
		args:        args,
		command:     command,
		createdAt:   time.Now(),
		logs:        logging.NewRingBuffer(s.opts.LogLines),
		done:        make(chan struct{}),
	}

	s.mu.Lock()
	s.records[rec.id] = rec
	s.last = rec.id
	s.mu.Unlock()

	s.logger.Info("Starting session", "session_id", rec.id, "command", command)

	err := s.pool.Start(rec.id, args)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, process.ErrActiveLimit):
		s.forget(rec.id)
		e := NewError(CodeAlreadyRunning, MsgAlreadyRunning, err)
		e.Command = command
		return nil, e
	case errors.Is(err, process.ErrClosed):
		s.forget(rec.id)
		return nil, NewError(CodeSpawnFailed, "The service is shutting down.", err)
	default:
		// the failed entry stays in history
		s.logger.Error("Failed to start session", "session_id", rec.id, "error", err)
		msg := strings.TrimPrefix(err.Error(), process.ErrSpawn.Error()+": ")
		e := NewError(CodeSpawnFailed, "An error occurred: "+msg, err)
		e.Command = command
		return nil, e
	}
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	if s.last == id {
		s.last = ""
	}
}

// Stop stops the active session.
func (s *Service) Stop(ctx context.Context) (*StopResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.controlMu.Lock()
	defer s.controlMu.Unlock()
	return s.stopActive()
}

// stopActive stops the active session. Caller holds controlMu.
func (s *Service) stopActive() (*StopResult, error) {
	active := s.pool.Active()
	if len(active) == 0 {
		return nil, NewError(CodeNotRunning, MsgNotRunning, nil)
	}
	id := active[0].ID

	s.logger.Info("Stopping session", "session_id", id)
	res, err := s.pool.Stop(id)
	if err != nil {
		if errors.Is(err, process.ErrNotActive) || errors.Is(err, process.ErrNotFound) {
			return nil, NewError(CodeNotRunning, MsgNotRunning, err)
		}
		if errors.Is(err, process.ErrStopTimeout) {
			s.logger.Error("Session did not exit after kill", "session_id", id)
		}
		return nil, err
	}
	metrics.IncStops(res.Forced)

	output := OutputStopped
	if res.Forced {
		output = OutputForced
		s.logger.Warn("Session did not exit in time, killed", "session_id", id)
	}

	result := &StopResult{Output: output, Forced: res.Forced}
	if rec := s.record(id); rec != nil {
		result.Session = s.snapshot(rec)
	}
	return result, nil
}

// Restart stops the active session, if any, and starts a new one with the
// settings of the active or most recent session.
func (s *Service) Restart(ctx context.Context) (*StartResult, error) {
	s.controlMu.Lock()
	var id string
	if active := s.pool.Active(); len(active) > 0 {
		id = active[0].ID
	} else {
		s.mu.RLock()
		id = s.last
		s.mu.RUnlock()
	}
	rec := s.record(id)
	if rec == nil {
		s.controlMu.Unlock()
		return nil, NewError(CodeNotFound, MsgNothingToRetry, nil)
	}
	if s.pool.IsActive(id) {
		if _, err := s.stopActive(); err != nil && CodeOf(err) != CodeNotRunning {
			s.controlMu.Unlock()
			return nil, err
		}
	}
	s.controlMu.Unlock()

	return s.Start(ctx, rec.settings)
}

// Current returns the active session, or the most recent one when nothing is active.
func (s *Service) Current() (*Session, error) {
	if active := s.pool.Active(); len(active) > 0 {
		if rec := s.record(active[0].ID); rec != nil {
			return s.snapshot(rec), nil
		}
	}
	s.mu.RLock()
	rec := s.records[s.last]
	s.mu.RUnlock()
	if rec == nil {
		return nil, NewError(CodeNotFound, MsgNotRunning, nil)
	}
	return s.snapshot(rec), nil
}

// Get returns one session by ID.
func (s *Service) Get(id string) (*Session, error) {
	rec := s.record(id)
	if rec == nil {
		return nil, NewError(CodeNotFound, "Session "+id+" not found.", nil)
	}
	return s.snapshot(rec), nil
}

// List returns retained sessions, newest first.
func (s *Service) List() []*Session {
	infos := s.pool.List()
	out := make([]*Session, 0, len(infos))
	for _, info := range infos {
		if rec := s.record(info.ID); rec != nil {
			out = append(out, s.build(rec, info))
		}
	}
	return out
}

// Logs returns the buffered diagnostic lines of a session, oldest first.
func (s *Service) Logs(id string) ([]LogLine, error) {
	rec := s.record(id)
	if rec == nil {
		return nil, NewError(CodeNotFound, "Session "+id+" not found.", nil)
	}
	entries := rec.logs.ReadAll()
	lines := make([]LogLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, LogLine{Timestamp: e.Timestamp, Level: e.Level, Message: e.Message})
	}
	return lines, nil
}

// Capabilities probes the configured ffmpeg binary.
func (s *Service) Capabilities(ctx context.Context) (*ffmpeg.Capabilities, error) {
	caps, err := s.opts.Probe(ctx, s.opts.Binary)
	if err != nil {
		return nil, NewError(CodeProbeFailed, ffmpeg.ProbeErrorMessage(err), err)
	}
	return caps, nil
}

// Binary is the ffmpeg executable sessions run.
func (s *Service) Binary() string {
	return s.opts.Binary
}

// Shutdown stops every session and waits for pending notifications.
func (s *Service) Shutdown() {
	s.pool.StopAll()
}

func (s *Service) record(id string) *record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id]
}

func (s *Service) snapshot(rec *record) *Session {
	return s.build(rec, s.pool.GetStatus(rec.id))
}

// build merges record data with pool status. info may be nil.
func (s *Service) build(rec *record, info *process.Info) *Session {
	sess := &Session{
		ID:          rec.id,
		State:       StatePending,
		Settings:    rec.settings,
		Destination: rec.destination,
		Args:        slices.Clone(rec.args),
		Command:     rec.command,
		CreatedAt:   rec.createdAt,
		LogLines:    rec.logs.Count(),
	}

	s.mu.RLock()
	if rec.progress != nil {
		p := *rec.progress
		sess.Progress = &p
	}
	s.mu.RUnlock()

	if info == nil {
		return sess
	}
	sess.State = State(info.State)
	sess.PID = info.PID
	sess.StartedAt = info.StartedAt
	sess.EndedAt = info.EndedAt
	if info.State.IsTerminal() {
		code := info.ExitCode
		sess.ExitCode = &code
	}
	if info.Stop != nil {
		sess.Forced = info.Stop.Forced
	}
	if info.LastError != nil {
		sess.Error = info.LastError.Error()
	}
	return sess
}

func (s *Service) configureProcess(id string, proc *process.Process) {
	proc.SetLogParser(s.ffLogger.With("session_id", id), parseOutputLine)
	if rec := s.record(id); rec != nil {
		proc.SetOutputHandler(&outputSink{svc: s, rec: rec})
	}
}

// parseOutputLine demotes stats lines so they do not flood the log.
func parseOutputLine(line string) (level, msg string) {
	if _, ok := ffmpeg.ParseProgress(line); ok {
		return "debug", line
	}
	return ffmpeg.ParseLogLevel(line)
}

func (s *Service) onStateChange(id string, oldState, newState process.State, err error) {
	switch newState {
	case process.StateRunning:
		metrics.IncSessionsStarted()
	case process.StateFailed:
		reason := metrics.FailureExit
		if oldState == process.StatePending {
			reason = metrics.FailureSpawn
		}
		metrics.IncSessionsFailed(reason)
	}
	metrics.SetSessionState(string(newState))

	ev := events.SessionStateChangedEvent{
		SessionID:     id,
		State:         string(newState),
		PreviousState: string(oldState),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		ev.Error = err.Error()
	}

	if newState.IsTerminal() {
		if info := s.pool.GetStatus(id); info != nil {
			code := info.ExitCode
			ev.ExitCode = &code
		}
		metrics.DeleteFFmpegMetrics(id)
		if rec := s.record(id); rec != nil {
			rec.markDone()
		}
		s.pruneRecords()
	}

	s.logger.Info("Session state changed", "session_id", id, "from", oldState, "to", newState)
	if s.opts.Bus != nil {
		s.opts.Bus.Publish(ev)
	}
}

// pruneRecords drops finished records the pool no longer retains.
func (s *Service) pruneRecords() {
	retained := make(map[string]bool)
	for _, info := range s.pool.List() {
		retained[info.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.records {
		if !retained[id] && rec.isDone() {
			delete(s.records, id)
			if s.last == id {
				s.last = ""
			}
		}
	}
}

// outputSink receives every ffmpeg output line of one session.
type outputSink struct {
	svc *Service
	rec *record
}

func (o *outputSink) HandleLine(_, line string) {
	if p, ok := ffmpeg.ParseProgress(line); ok {
		o.svc.mu.Lock()
		o.rec.progress = &p
		o.svc.mu.Unlock()

		metrics.SetFFmpegProgress(o.rec.id, metrics.FFmpegProgress{
			FPS:     p.FPS,
			Speed:   p.Speed,
			Bitrate: p.Bitrate,
			Frames:  p.Frame,
			SizeKB:  p.SizeKB,
		})
		if o.svc.opts.Bus != nil {
			o.svc.opts.Bus.Publish(events.SessionProgressEvent{
				SessionID: o.rec.id,
				Frame:     p.Frame,
				FPS:       p.FPS,
				SizeKB:    p.SizeKB,
				Time:      p.Time,
				Bitrate:   p.Bitrate,
				Speed:     p.Speed,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		}
		return
	}

	level, msg := ffmpeg.ParseLogLevel(line)
	o.rec.logs.Write(logging.LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Module:    "ffmpeg",
		Message:   msg,
	})
}
