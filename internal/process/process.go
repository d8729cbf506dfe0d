package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"slices"
	"sync"
	"syscall"
	"time"
)

// ExitCodeKilled is returned by Run when the process had to be force-killed.
const ExitCodeKilled = 137

const maxLineSize = 1024 * 1024

// OutputHandler receives output lines from the subprocess.
// Implementations can buffer output, extract progress, etc.
type OutputHandler interface {
	HandleLine(source, line string)
}

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output (ffmpeg, etc.)
type LogParser func(line string) (level, msg string)

// Process manages the lifecycle of a subprocess.
type Process struct {
	id              string
	args            []string
	cmd             *exec.Cmd
	logger          *slog.Logger
	processLogger   *slog.Logger // logger for process output (nil = use logger)
	logParser       LogParser    // parses process output for log level (nil = no parsing)
	ctx             context.Context
	cancel          context.CancelFunc
	started         chan error
	outputHandler   OutputHandler
	gracefulTimeout time.Duration // timeout for graceful shutdown before force kill
	killTimeout     time.Duration // timeout after Kill() before giving up

	mu         sync.Mutex
	pid        int
	stopResult *StopResult
}

// NewProcess creates a new process for argv. args[0] is the binary.
func NewProcess(id string, args []string, logger *slog.Logger) *Process {
	return NewProcessWithOutput(id, args, logger, nil)
}

// NewProcessWithOutput creates a new process with an output handler.
// The handler receives each line of stdout/stderr from the subprocess.
func NewProcessWithOutput(id string, args []string, logger *slog.Logger, handler OutputHandler) *Process {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Process{
		id:              id,
		args:            slices.Clone(args),
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
		started:         make(chan error, 1),
		outputHandler:   handler,
		gracefulTimeout: defaultGracefulTimeout,
		killTimeout:     defaultKillTimeout,
	}
}

// Args returns a copy of the argv the process runs.
func (p *Process) Args() []string {
	return slices.Clone(p.args)
}

// SetLogParser sets a custom logger and log parser for process output.
// The logger is used for process output (e.g., module="ffmpeg").
// The parser extracts log level from process-specific output formats.
func (p *Process) SetLogParser(logger *slog.Logger, parser LogParser) {
	p.processLogger = logger
	p.logParser = parser
}

// SetOutputHandler replaces the output handler. Must be called before Run.
func (p *Process) SetOutputHandler(handler OutputHandler) {
	p.outputHandler = handler
}

// SetTimeouts overrides the graceful and kill timeouts. Zero values keep the current setting.
func (p *Process) SetTimeouts(graceful, kill time.Duration) {
	if graceful > 0 {
		p.gracefulTimeout = graceful
	}
	if kill > 0 {
		p.killTimeout = kill
	}
}

// Started delivers exactly one value once Run has tried to spawn the
// subprocess: nil on success, the spawn error otherwise.
func (p *Process) Started() <-chan error {
	return p.started
}

// PID returns the subprocess PID, or 0 before it started.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// StopResult returns how the process ended after Shutdown, or nil if it
// exited on its own.
func (p *Process) StopResult() *StopResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopResult == nil {
		return nil
	}
	res := *p.stopResult
	return &res
}

// Shutdown triggers a graceful shutdown of the process.
func (p *Process) Shutdown() {
	p.cancel()
}

// runningProcess holds channels for monitoring a running subprocess.
type runningProcess struct {
	processDone <-chan error // sent after both output streams hit EOF
}

// startProcess starts the subprocess and returns channels for monitoring.
func (p *Process) startProcess() (*runningProcess, error) {
	if len(p.args) == 0 || p.args[0] == "" {
		p.logger.Error("Empty command")
		return nil, errors.New("empty command")
	}

	p.cmd = exec.Command(p.args[0], p.args[1:]...)
	p.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		p.logger.Error("Failed to create stdout pipe", "error", err)
		return nil, err
	}

	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		p.logger.Error("Failed to create stderr pipe", "error", err)
		return nil, err
	}

	if err := p.cmd.Start(); err != nil {
		p.logger.Error("Failed to start process", "error", err, "binary", p.args[0])
		return nil, err
	}

	p.mu.Lock()
	p.pid = p.cmd.Process.Pid
	p.mu.Unlock()

	p.logger.Info("Process started", "id", p.id, "pid", p.cmd.Process.Pid, "binary", p.args[0])

	// Stream output in separate goroutines
	outputDone := make(chan struct{}, 2)
	go func() {
		p.streamOutput(stdout, "stdout")
		outputDone <- struct{}{}
	}()
	go func() {
		p.streamOutput(stderr, "stderr")
		outputDone <- struct{}{}
	}()

	// Wait closes the pipes, so drain both to EOF first or the last
	// stderr lines, usually the error, are lost.
	processDone := make(chan error, 1)
	go func() {
		p.waitOutputDone(outputDone)
		processDone <- p.cmd.Wait()
	}()

	return &runningProcess{processDone: processDone}, nil
}

// waitOutputDone waits for both output streams to complete.
func (p *Process) waitOutputDone(outputDone <-chan struct{}) {
	<-outputDone
	<-outputDone
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, 128+signal for a
// signalled child, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}

// handleProcessExit extracts exit code from process error and logs non-ExitError errors.
func (p *Process) handleProcessExit(processErr error) int {
	exitCode := exitCodeFromError(processErr)
	if processErr != nil && exitCode == 1 {
		var exitErr *exec.ExitError
		if !errors.As(processErr, &exitErr) {
			p.logger.Error("Process exited with error", "error", processErr)
		}
	}
	return exitCode
}

// Run starts the subprocess and blocks until it exits or Shutdown is called.
// Returns the exit code of the subprocess, 1 if it could not be started.
// Run may only be called once.
func (p *Process) Run() int {
	rp, err := p.startProcess()
	if err != nil {
		p.started <- fmt.Errorf("spawn %s: %w", p.binary(), err)
		return 1
	}
	p.started <- nil

	select {
	case <-p.ctx.Done():
		p.logger.Info("Shutdown requested, stopping process", "id", p.id)
		begin := time.Now()
		p.sendStopSignal()
		exitCode, forced := p.waitForExit(rp.processDone, p.gracefulTimeout)
		p.mu.Lock()
		p.stopResult = &StopResult{Forced: forced, ExitCode: exitCode, Duration: time.Since(begin)}
		p.mu.Unlock()
		return exitCode
	case processErr := <-rp.processDone:
		exitCode := p.handleProcessExit(processErr)
		p.logger.Info("Process exited", "id", p.id, "exit_code", exitCode)
		return exitCode
	}
}

func (p *Process) binary() string {
	if len(p.args) == 0 {
		return ""
	}
	return p.args[0]
}

// sendStopSignal sends SIGINT to the subprocess group without waiting.
func (p *Process) sendStopSignal() {
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	p.logger.Info("Sending SIGINT to process", "pid", p.cmd.Process.Pid)
	if err := signalGroup(p.cmd.Process.Pid, syscall.SIGINT); err != nil {
		p.logger.Warn("Failed to send SIGINT", "error", err)
	}
}

// signalGroup signals every process in the group led by pid. A group that
// is already gone is not an error.
func signalGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}

// waitForExit waits for the process to exit with a timeout, force-killing if needed.
// The second return value reports whether the kill was necessary.
func (p *Process) waitForExit(processDone <-chan error, timeout time.Duration) (int, bool) {
	select {
	case err := <-processDone:
		return exitCodeFromError(err), false
	case <-time.After(timeout):
		p.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", timeout)
		if p.cmd.Process != nil {
			if err := signalGroup(p.cmd.Process.Pid, syscall.SIGKILL); err != nil {
				p.logger.Error("Failed to kill process", "error", err)
			}
		}
		// Wait for process to exit with a secondary timeout to prevent hanging
		select {
		case <-processDone:
		case <-time.After(p.killTimeout):
			p.logger.Error("Process did not exit after kill signal")
		}
		return ExitCodeKilled, true
	}
}

// streamOutput streams output from the subprocess.
// Uses the configured processLogger (or falls back to default logger).
// Uses the configured LogParser to extract log levels from process output.
func (p *Process) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanLines)

	// Use process logger if configured, otherwise fall back to default logger
	logger := p.processLogger
	if logger == nil {
		logger = p.logger
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		if p.outputHandler != nil {
			p.outputHandler.HandleLine(source, line)
		}

		// Use configured parser or default to info level
		level, msg := "info", line
		if p.logParser != nil {
			level, msg = p.logParser(line)
		}

		switch level {
		case "panic", "fatal", "error":
			logger.Error(msg, "source", source)
		case "warning":
			logger.Warn(msg, "source", source)
		case "verbose", "debug", "trace":
			logger.Debug(msg, "source", source)
		default:
			logger.Info(msg, "source", source)
		}
	}

	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading output", "source", source, "error", err)
		// drain so the child never blocks on a full pipe
		_, _ = io.Copy(io.Discard, reader)
	}
}

// scanLines splits on \n, \r\n and bare \r. ffmpeg terminates its
// periodic stats line with \r only.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if !atEOF {
				// need one more byte to tell \r from \r\n
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
