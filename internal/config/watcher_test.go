package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type watchedFile struct {
	Name  string `toml:"name"`
	Value int    `toml:"value"`
}

func loadWatchedFile(path string) (watchedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return watchedFile{}, err
	}
	var cfg watchedFile
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption[watchedFile]) *Watcher[watchedFile] {
	t.Helper()
	opts = append([]WatcherOption[watchedFile]{WithDebounce[watchedFile](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, loadWatchedFile, quietLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	})
	return w
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	if err := os.WriteFile(path, []byte("name = \"initial\"\nvalue = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, path)
	received := make(chan watchedFile, 1)
	w.OnReload(func(cfg watchedFile) { received <- cfg })

	if err := os.WriteFile(path, []byte("name = \"updated\"\nvalue = 42\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Name != "updated" || cfg.Value != 42 {
			t.Errorf("got %+v, want name=updated value=42", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcherSurvivesRenameReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.toml")
	if err := os.WriteFile(path, []byte("name = \"a\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, path)
	received := make(chan watchedFile, 4)
	w.OnReload(func(cfg watchedFile) { received <- cfg })

	tmp := filepath.Join(dir, "presets.toml.tmp")
	if err := os.WriteFile(tmp, []byte("name = \"b\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Name != "b" {
			t.Errorf("Name = %q, want b", cfg.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.toml")
	if err := os.WriteFile(path, []byte("name = \"a\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(watchedFile) { calls.Add(1) })

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("handler called %d times for unrelated file", n)
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	if err := os.WriteFile(path, []byte("value = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, path)
	var removed atomic.Int32
	kept := make(chan struct{}, 1)
	unsub := w.OnReload(func(watchedFile) { removed.Add(1) })
	w.OnReload(func(watchedFile) { kept <- struct{}{} })
	unsub()

	if err := os.WriteFile(path, []byte("value = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-kept:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for remaining handler")
	}
	if removed.Load() != 0 {
		t.Error("unsubscribed handler was called")
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	if err := os.WriteFile(path, []byte("value = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 1)
	startWatcher(t, path, WithErrorHandler[watchedFile](func(err error) { errs <- err }))

	if err := os.WriteFile(path, []byte("value = [broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		var decodeErr *toml.DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("expected toml.DecodeError, got %T: %v", err, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}
