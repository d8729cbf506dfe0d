// Package ui serves the control panel page.
package ui

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/presets"
)

//go:embed templates/index.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// PresetSource provides the values the form starts with.
type PresetSource interface {
	Names() []string
	DefaultName() string
	Default() presets.Preset
}

// Page is the data rendered into the form.
type Page struct {
	Title        string
	Version      string
	Settings     ffmpeg.Settings
	Preset       string
	Presets      []string
	Resolutions  []ffmpeg.Resolution
	FPSChoices   []int
	AudioChoices []ffmpeg.AudioChoice
}

// Handler returns the handler for / and /static/. presets may be nil.
func Handler(src PresetSource, version string, logger *slog.Logger) (http.Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		page := Page{
			Title:        "FFmpeg RTMP Restreamer",
			Version:      version,
			Settings:     ffmpeg.DefaultSettings(),
			Resolutions:  ffmpeg.Resolutions,
			FPSChoices:   ffmpeg.FPSChoices,
			AudioChoices: ffmpeg.AudioChoices,
		}
		if src != nil {
			page.Settings = src.Default().Settings
			page.Preset = src.DefaultName()
			page.Presets = src.Names()
		}

		// render fully first so a template error still yields a clean 500
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, page); err != nil {
			logger.Error("Failed to render page", "error", err)
			http.Error(w, "failed to render page", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	})
	return mux, nil
}
