package ffmpeg

// Settings are the form fields that drive one restream run.
type Settings struct {
	SourceURL      string `json:"source_url" toml:"source_url" validate:"required,url"`
	DestinationURL string `json:"destination_url" toml:"destination_url" validate:"required,url"`
	Resolution     string `json:"resolution" toml:"resolution"`
	FPS            int    `json:"fps" toml:"fps" validate:"gte=0,lte=240"`
	Audio          string `json:"audio" toml:"audio"`
	Logo           Logo   `json:"logo" toml:"logo"`
}

// Logo is the optional watermark overlaid on the video.
type Logo struct {
	Enabled bool   `json:"enabled" toml:"enabled"`
	URL     string `json:"url" toml:"url" validate:"required_if=Enabled true,omitempty,url"`
	// Overlay is the ffmpeg overlay filter placing the scaled logo.
	Overlay string `json:"overlay" toml:"overlay" validate:"required_if=Enabled true"`
}

// Encoding is the fixed output profile appended after the per-run options.
type Encoding struct {
	SampleRate   int    `json:"sample_rate"`
	PixelFormat  string `json:"pixel_format"`
	Tune         string `json:"tune"`
	MaxRate      string `json:"maxrate"`
	Preset       string `json:"preset"`
	VideoCodec   string `json:"video_codec"`
	AudioBitrate string `json:"audio_bitrate"`
	VideoBitrate string `json:"video_bitrate"`
	Format       string `json:"format"`
}

// DefaultEncoding returns the FLV/H.264 profile used for RTMP ingest.
func DefaultEncoding() Encoding {
	return Encoding{
		SampleRate:   44100,
		PixelFormat:  "yuv420p",
		Tune:         "zerolatency",
		MaxRate:      "2000k",
		Preset:       "veryfast",
		VideoCodec:   "libx264",
		AudioBitrate: "128k",
		VideoBitrate: "660k",
		Format:       "flv",
	}
}

// WithDefaults fills empty fields from DefaultEncoding.
func (e Encoding) WithDefaults() Encoding {
	d := DefaultEncoding()
	if e.SampleRate <= 0 {
		e.SampleRate = d.SampleRate
	}
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&e.PixelFormat, d.PixelFormat)
	fill(&e.Tune, d.Tune)
	fill(&e.MaxRate, d.MaxRate)
	fill(&e.Preset, d.Preset)
	fill(&e.VideoCodec, d.VideoCodec)
	fill(&e.AudioBitrate, d.AudioBitrate)
	fill(&e.VideoBitrate, d.VideoBitrate)
	fill(&e.Format, d.Format)
	return e
}

// DefaultSettings mirrors the values the control panel form starts with.
func DefaultSettings() Settings {
	return Settings{
		SourceURL:      "https://kbsworld-ott.akamaized.net/hls/live/2002341/kbsworld/master.m3u8",
		DestinationURL: "rtmps://stream.livepush.io/live/rtmp_8a7a6cd917914f46ba816a72ecdb2454",
		Resolution:     DefaultResolution,
		FPS:            DefaultFPS,
		Audio:          AudioCopy,
		Logo: Logo{
			Enabled: true,
			URL:     "https://i.ibb.co/YcPZxsn/logo.png",
			Overlay: DefaultOverlay,
		},
	}
}
