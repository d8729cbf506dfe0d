package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sh(script string) []string {
	return []string{"sh", "-c", script}
}

// newTestProcess creates a Process with short timeouts for testing.
func newTestProcess(args []string) *Process {
	p := NewProcess("test", args, testLogger())
	p.SetTimeouts(100*time.Millisecond, 100*time.Millisecond)
	return p
}

// runAsync runs the process in a goroutine and returns exit code channel.
func runAsync(p *Process) <-chan int {
	done := make(chan int, 1)
	go func() {
		done <- p.Run()
	}()
	return done
}

// waitForExit waits for exit code with timeout, fails test on timeout.
func waitForExit(t *testing.T, done <-chan int, timeout time.Duration) int {
	t.Helper()
	select {
	case exitCode := <-done:
		return exitCode
	case <-time.After(timeout):
		t.Fatal("timeout waiting for process to exit")
		return -1
	}
}

func waitStarted(t *testing.T, p *Process) {
	t.Helper()
	select {
	case err := <-p.Started():
		if err != nil {
			t.Fatalf("spawn failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for spawn")
	}
}

func TestGracefulShutdown(t *testing.T) {
	p := newTestProcess(sh("trap 'exit 0' INT TERM; while :; do sleep 0.1; done"))
	p.SetTimeouts(500*time.Millisecond, 0)

	done := runAsync(p)
	waitStarted(t, p)
	time.Sleep(100 * time.Millisecond)
	p.Shutdown()

	if exitCode := waitForExit(t, done, time.Second); exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	res := p.StopResult()
	if res == nil {
		t.Fatal("expected stop result after Shutdown")
	}
	if res.Forced {
		t.Error("expected graceful stop")
	}
}

func TestForceKillOnTimeout(t *testing.T) {
	p := newTestProcess(sh("trap '' INT; sleep 10"))
	p.SetTimeouts(50*time.Millisecond, 50*time.Millisecond)

	done := runAsync(p)
	waitStarted(t, p)
	time.Sleep(50 * time.Millisecond)
	p.Shutdown()

	if exitCode := waitForExit(t, done, 500*time.Millisecond); exitCode != ExitCodeKilled {
		t.Errorf("expected exit code %d, got %d", ExitCodeKilled, exitCode)
	}
	if res := p.StopResult(); res == nil || !res.Forced {
		t.Errorf("expected forced stop result, got %+v", res)
	}
}

func TestProcessAlreadyExited(t *testing.T) {
	p := newTestProcess([]string{"true"})

	done := runAsync(p)
	if exitCode := waitForExit(t, done, 500*time.Millisecond); exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	if p.StopResult() != nil {
		t.Error("no stop result expected for a process that exited on its own")
	}

	// Shutdown after process has already exited - should not panic
	p.Shutdown()
}

func TestProcessExitWithError(t *testing.T) {
	p := newTestProcess(sh("exit 42"))
	if exitCode := p.Run(); exitCode != 42 {
		t.Errorf("expected exit code 42, got %d", exitCode)
	}
}

func TestProcessKilledBySignal(t *testing.T) {
	p := newTestProcess(sh("kill -TERM $$"))
	if exitCode := p.Run(); exitCode != 128+15 {
		t.Errorf("expected exit code 143, got %d", exitCode)
	}
}

func TestRunWithNonExistentCommand(t *testing.T) {
	p := newTestProcess([]string{"/nonexistent/command/that/does/not/exist"})
	if exitCode := p.Run(); exitCode != 1 {
		t.Errorf("expected exit code 1 for start error, got %d", exitCode)
	}
	err := <-p.Started()
	if err == nil {
		t.Fatal("expected spawn error on Started")
	}
	if !errors.Is(err, exec.ErrNotFound) && !strings.Contains(err.Error(), "no such file") {
		t.Errorf("unexpected spawn error: %v", err)
	}
}

func TestRunWithEmptyCommand(t *testing.T) {
	p := newTestProcess(nil)
	if exitCode := p.Run(); exitCode != 1 {
		t.Errorf("expected exit code 1 for empty command, got %d", exitCode)
	}
	if err := <-p.Started(); err == nil {
		t.Error("expected spawn error for empty argv")
	}
}

func TestArgsAreNotShellParsed(t *testing.T) {
	lines := &collector{}
	p := NewProcessWithOutput("test", []string{"printf", "%s\n", "a b; echo injected"}, testLogger(), lines)
	if exitCode := p.Run(); exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", exitCode)
	}
	got := lines.all()
	if len(got) != 1 || got[0] != "a b; echo injected" {
		t.Errorf("lines = %q, want the argument verbatim", got)
	}
}

func TestArgsReturnsCopy(t *testing.T) {
	argv := []string{"echo", "hello"}
	p := newTestProcess(argv)
	argv[1] = "changed"
	got := p.Args()
	got[0] = "mutated"
	if p.Args()[0] != "echo" || p.Args()[1] != "hello" {
		t.Errorf("Args() = %v, want [echo hello]", p.Args())
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	p := newTestProcess(sh("sleep 10"))
	p.Shutdown() // Should not panic
}

func TestSendStopSignalAfterExit(t *testing.T) {
	p := newTestProcess([]string{"true"})
	if exitCode := p.Run(); exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	p.sendStopSignal() // Should not panic, process already exited
}

func TestStreamOutputLogLevels(t *testing.T) {
	p := newTestProcess(sh(`echo "[error] error message"; echo "[warning] warn message" >&2; echo "plain message"`))
	var mu sync.Mutex
	var levels []string
	p.SetLogParser(testLogger(), func(line string) (string, string) {
		mu.Lock()
		defer mu.Unlock()
		level := "info"
		if strings.HasPrefix(line, "[error]") {
			level = "error"
		} else if strings.HasPrefix(line, "[warning]") {
			level = "warning"
		}
		levels = append(levels, level)
		return level, line
	})
	if exitCode := p.Run(); exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(levels) != 3 {
		t.Errorf("parser saw %d lines, want 3", len(levels))
	}
}

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) HandleLine(_, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *collector) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func TestOutputHandlerSplitsCarriageReturns(t *testing.T) {
	lines := &collector{}
	p := NewProcessWithOutput("test", sh(`printf 'frame=1\rframe=2\rdone\r\nlast\n' >&2`), testLogger(), lines)
	p.SetTimeouts(100*time.Millisecond, 100*time.Millisecond)

	if exitCode := p.Run(); exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	want := []string{"frame=1", "frame=2", "done", "last"}
	got := lines.all()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestScanLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"newlines", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"bare cr", "a\rb\r", []string{"a", "b"}},
		{"no trailing terminator", "a\nb", []string{"a", "b"}},
		{"blank lines kept", "a\n\nb", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := bufio.NewScanner(strings.NewReader(tt.input))
			scanner.Split(scanLines)
			var got []string
			for scanner.Scan() {
				got = append(got, scanner.Text())
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPIDSetAfterStart(t *testing.T) {
	p := newTestProcess(sh("trap 'exit 0' INT; while :; do sleep 0.1; done"))
	if p.PID() != 0 {
		t.Error("PID should be 0 before start")
	}
	done := runAsync(p)
	waitStarted(t, p)
	if p.PID() <= 0 {
		t.Errorf("PID = %d, want > 0", p.PID())
	}
	p.Shutdown()
	waitForExit(t, done, time.Second)
}

func TestOutputTailSurvivesQuickExit(t *testing.T) {
	const n = 3000
	script := fmt.Sprintf(`i=0; while [ $i -lt %d ]; do echo "line $i" >&2; i=$((i+1)); done; echo "FINAL error" >&2; exit 1`, n)

	for run := 0; run < 20; run++ {
		lines := &collector{}
		p := NewProcessWithOutput("test", sh(script), testLogger(), lines)
		if exitCode := p.Run(); exitCode != 1 {
			t.Fatalf("run %d: expected exit code 1, got %d", run, exitCode)
		}
		got := lines.all()
		if len(got) != n+1 || got[len(got)-1] != "FINAL error" {
			last := ""
			if len(got) > 0 {
				last = got[len(got)-1]
			}
			t.Fatalf("run %d: got %d of %d lines, last %q", run, len(got), n+1, last)
		}
	}
}

func TestShutdownStopsWholeGroup(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	p := newTestProcess(sh(fmt.Sprintf(`sleep 30 & echo $! > %s; wait`, pidFile)))
	p.SetTimeouts(500*time.Millisecond, 500*time.Millisecond)

	done := runAsync(p)
	waitStarted(t, p)

	var childPID int
	deadline := time.Now().Add(2 * time.Second)
	for childPID == 0 && time.Now().Before(deadline) {
		if data, err := os.ReadFile(pidFile); err == nil {
			_, _ = fmt.Sscan(strings.TrimSpace(string(data)), &childPID)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if childPID == 0 {
		t.Fatal("helper process never started")
	}

	p.Shutdown()
	waitForExit(t, done, 2*time.Second)

	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if !alive(childPID) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("helper process %d outlived the shutdown", childPID)
}

// alive reports whether pid exists and is not a zombie.
func alive(pid int) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	// state follows the parenthesised command name
	stat := string(data)
	i := strings.LastIndexByte(stat, ')')
	return i < 0 || i+2 >= len(stat) || stat[i+2] != 'Z'
}
