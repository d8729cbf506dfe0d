// Package presets loads named stream settings used to prefill the control
// panel form. The file is read-only for the application and is reloaded when
// it changes on disk.
package presets

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/restreamer/internal/config"
	"github.com/smazurov/restreamer/internal/ffmpeg"
)

// DefaultName is the preset used when the file names no default.
const DefaultName = "default"

// Preset is a named set of form values.
type Preset struct {
	Name        string `toml:"-" json:"name"`
	Description string `toml:"description,omitempty" json:"description,omitempty"`
	ffmpeg.Settings
}

// File is the on-disk presets document.
type File struct {
	Version int               `toml:"version"`
	Default string            `toml:"default,omitempty"`
	Presets map[string]Preset `toml:"presets"`
}

// ErrNotFound is returned by Get for unknown names.
var ErrNotFound = errors.New("preset not found")

// Builtin returns the file used when no presets file exists.
func Builtin() *File {
	return &File{
		Version: 1,
		Default: DefaultName,
		Presets: map[string]Preset{
			DefaultName: {
				Name:        DefaultName,
				Description: "Control panel defaults",
				Settings:    ffmpeg.DefaultSettings(),
			},
		},
	}
}

// LoadFile reads and checks a presets file. A missing file yields Builtin.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Builtin(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read presets %s: %w", path, err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse presets %s: %w", path, err)
	}
	if f.Version == 0 {
		f.Version = 1
	}
	if len(f.Presets) == 0 {
		return nil, fmt.Errorf("presets %s: no presets defined", path)
	}

	for name, p := range f.Presets {
		p.Name = name
		if _, err := ffmpeg.ParseAudioOption(p.Audio); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		f.Presets[name] = p
	}

	if f.Default == "" {
		if _, ok := f.Presets[DefaultName]; ok {
			f.Default = DefaultName
		} else {
			f.Default = sortedNames(f.Presets)[0]
		}
	} else if _, ok := f.Presets[f.Default]; !ok {
		return nil, fmt.Errorf("presets %s: default %q is not defined", path, f.Default)
	}

	return &f, nil
}

func sortedNames(m map[string]Preset) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store holds the current presets. Safe for concurrent use.
type Store struct {
	path string
	mu   sync.RWMutex
	file *File
}

// NewStore creates a store for path holding the builtin presets until Load.
func NewStore(path string) *Store {
	return &Store{path: path, file: Builtin()}
}

// Path returns the presets file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the presets file. On error the current presets are kept.
func (s *Store) Load() error {
	f, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.Replace(f)
	return nil
}

// Replace swaps in a freshly loaded file.
func (s *Store) Replace(f *File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = f
}

// Names returns preset names, the default first and the rest sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := sortedNames(s.file.Presets)
	if i := slices.Index(names, s.file.Default); i > 0 {
		names = append([]string{s.file.Default}, slices.Delete(names, i, i+1)...)
	}
	return names
}

// List returns all presets in Names order.
func (s *Store) List() []Preset {
	names := s.Names()

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Preset, 0, len(names))
	for _, name := range names {
		if p, ok := s.file.Presets[name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the named preset.
func (s *Store) Get(name string) (Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.file.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Default returns the default preset.
func (s *Store) Default() Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file.Presets[s.file.Default]
}

// DefaultName returns the name of the default preset.
func (s *Store) DefaultName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file.Default
}

// NewWatcher returns a file watcher that keeps the store current. Load errors
// leave the previous presets in place.
func NewWatcher(store *Store, logger *slog.Logger, opts ...config.WatcherOption[*File]) *config.Watcher[*File] {
	w := config.NewConfigWatcher(store.path, LoadFile, logger, opts...)
	w.OnReload(store.Replace)
	return w
}
