package api

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/smazurov/restreamer/internal/api/models"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/session"
)

// mergeSettings overlays the non-empty request fields on base.
func mergeSettings(base ffmpeg.Settings, in models.SettingsData) ffmpeg.Settings {
	out := base
	if in.SourceURL != "" {
		out.SourceURL = in.SourceURL
	}
	if in.DestinationURL != "" {
		out.DestinationURL = in.DestinationURL
	}
	if in.Resolution != "" {
		out.Resolution = in.Resolution
	}
	if in.FPS != 0 {
		out.FPS = in.FPS
	}
	if in.Audio != "" {
		out.Audio = in.Audio
	}
	if in.Logo != nil {
		// a submitted logo block replaces the base one
		out.Logo = ffmpeg.Logo{
			Enabled: in.Logo.Enabled,
			URL:     in.Logo.URL,
			Overlay: in.Logo.Overlay,
		}
		if out.Logo.Enabled && out.Logo.Overlay == "" {
			out.Logo.Overlay = base.Logo.Overlay
		}
	}
	return out
}

func settingsToAPI(s ffmpeg.Settings) models.SettingsData {
	return models.SettingsData{
		SourceURL:      s.SourceURL,
		DestinationURL: s.DestinationURL,
		Resolution:     s.Resolution,
		FPS:            s.FPS,
		Audio:          s.Audio,
		Logo: &models.LogoData{
			Enabled: s.Logo.Enabled,
			URL:     s.Logo.URL,
			Overlay: s.Logo.Overlay,
		},
	}
}

func sessionToAPI(sess *session.Session, now time.Time) models.SessionData {
	data := models.SessionData{
		ID:          sess.ID,
		State:       string(sess.State),
		Settings:    settingsToAPI(sess.Settings),
		Destination: sess.Destination,
		Command:     sess.Command,
		Args:        sess.Args,
		PID:         sess.PID,
		CreatedAt:   sess.CreatedAt,
		ExitCode:    sess.ExitCode,
		Forced:      sess.Forced,
		Error:       sess.Error,
		LogLines:    sess.LogLines,
	}
	if !sess.StartedAt.IsZero() {
		started := sess.StartedAt
		data.StartedAt = &started
		data.Started = humanize.RelTime(started, now, "ago", "from now")
		data.Uptime = sess.Uptime(now).Round(time.Second).String()
	}
	if !sess.EndedAt.IsZero() {
		ended := sess.EndedAt
		data.EndedAt = &ended
	}
	if p := sess.Progress; p != nil {
		data.Progress = &models.ProgressData{
			Frame:       p.Frame,
			FPS:         p.FPS,
			SizeKB:      p.SizeKB,
			Size:        humanize.IBytes(uint64(max(p.SizeKB, 0)) * 1024),
			Time:        p.Time,
			BitrateKbps: p.Bitrate,
			Speed:       p.Speed,
		}
	}
	return data
}

func capabilitiesToAPI(c *ffmpeg.Capabilities, checkedAt time.Time) models.CapabilitiesData {
	return models.CapabilitiesData{
		Binary:          c.Binary,
		Version:         c.Version,
		RTMPS:           c.RTMPS,
		Message:         c.Message(),
		InputProtocols:  c.InputProtocols,
		OutputProtocols: c.OutputProtocols,
		CheckedAt:       checkedAt,
	}
}
