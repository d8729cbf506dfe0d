package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/restreamer/internal/config"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/presets"
	"github.com/smazurov/restreamer/internal/resolve"
	"github.com/smazurov/restreamer/internal/session"
)

// commandOptions are the config.toml keys the command preview shares with
// the server, so the printed command matches what the panel would run.
type commandOptions struct {
	Config string

	Binary       string `toml:"ffmpeg.binary" env:"FFMPEG_BINARY"`
	PresetsFile  string `toml:"presets.file" env:"PRESETS_FILE"`
	Preset       string `toml:"encoding.preset" env:"ENCODING_PRESET"`
	VideoCodec   string `toml:"encoding.video_codec" env:"ENCODING_VIDEO_CODEC"`
	VideoBitrate string `toml:"encoding.video_bitrate" env:"ENCODING_VIDEO_BITRATE"`
	MaxRate      string `toml:"encoding.maxrate" env:"ENCODING_MAXRATE"`
	AudioBitrate string `toml:"encoding.audio_bitrate" env:"ENCODING_AUDIO_BITRATE"`
}

func (o commandOptions) encoding() ffmpeg.Encoding {
	return ffmpeg.Encoding{
		Preset:       o.Preset,
		VideoCodec:   o.VideoCodec,
		VideoBitrate: o.VideoBitrate,
		MaxRate:      o.MaxRate,
		AudioBitrate: o.AudioBitrate,
	}.WithDefaults()
}

// CreateCommandCmd creates the command subcommand.
func CreateCommandCmd() *cobra.Command {
	opts := commandOptions{Config: "config.toml", Binary: "ffmpeg", PresetsFile: "presets.toml"}
	var presetName string
	var resolveDestination bool
	var form ffmpeg.Settings
	var noLogo bool

	cmd := &cobra.Command{
		Use:   "command",
		Short: "Print the ffmpeg command for a preset",
		Long: `Builds the ffmpeg command the control panel would run for a preset, ` +
			`with any form field overridden by flags, and prints it without running it.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := config.LoadConfig(&opts, nil); err != nil {
				fmt.Fprintf(c.ErrOrStderr(), "warning: %v\n", err)
			}

			store := presets.NewStore(opts.PresetsFile)
			if err := store.Load(); err != nil {
				return err
			}
			name := presetName
			if name == "" {
				name = store.DefaultName()
			}
			preset, err := store.Get(name)
			if err != nil {
				return err
			}

			settings := applyFlags(c, preset.Settings, form, noLogo)

			if resolveDestination {
				ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
				defer cancel()
				resolved, err := resolve.Destination(ctx, nil, settings.DestinationURL)
				if err != nil {
					return err
				}
				settings.DestinationURL = resolved
			}

			svc := session.NewService(session.Options{Binary: opts.Binary, Encoding: opts.encoding()})
			defer svc.Shutdown()

			preview, err := svc.Preview(c.Context(), settings)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), preview.Command)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", opts.Config, "Path to configuration file")
	cmd.Flags().StringVar(&presetName, "preset", "", "Preset to start from (defaults to the file's default)")
	cmd.Flags().StringVar(&form.SourceURL, "source", "", "Video URL")
	cmd.Flags().StringVar(&form.DestinationURL, "destination", "", "RTMP output URL")
	cmd.Flags().StringVar(&form.Resolution, "resolution", "", "Output resolution (4K, 1080p, 720p, 480p, 360p, 180p)")
	cmd.Flags().IntVar(&form.FPS, "fps", 0, "Output frame rate")
	cmd.Flags().StringVar(&form.Audio, "audio", "", `Audio option ("copy" or "<channels>|<bitrate>")`)
	cmd.Flags().StringVar(&form.Logo.URL, "logo-url", "", "Logo image URL (enables the logo)")
	cmd.Flags().StringVar(&form.Logo.Overlay, "overlay", "", "Logo overlay filter")
	cmd.Flags().BoolVar(&noLogo, "no-logo", false, "Disable the logo overlay")
	cmd.Flags().BoolVar(&resolveDestination, "resolve", false, "Replace the destination host with its IPv4 address")

	return cmd
}

// applyFlags overlays the flags set on the command line onto base.
func applyFlags(c *cobra.Command, base, form ffmpeg.Settings, noLogo bool) ffmpeg.Settings {
	s := base
	changed := c.Flags().Changed
	if changed("source") {
		s.SourceURL = form.SourceURL
	}
	if changed("destination") {
		s.DestinationURL = form.DestinationURL
	}
	if changed("resolution") {
		s.Resolution = form.Resolution
	}
	if changed("fps") {
		s.FPS = form.FPS
	}
	if changed("audio") {
		s.Audio = form.Audio
	}
	if changed("logo-url") {
		s.Logo.URL = form.Logo.URL
		s.Logo.Enabled = true
	}
	if changed("overlay") {
		s.Logo.Overlay = form.Logo.Overlay
	}
	if s.Logo.Enabled && s.Logo.Overlay == "" {
		s.Logo.Overlay = ffmpeg.DefaultOverlay
	}
	if noLogo {
		s.Logo.Enabled = false
	}
	return s
}
