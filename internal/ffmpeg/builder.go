package ffmpeg

import (
	"strconv"
	"strings"
)

// BuildArgs builds the ffmpeg argv for a run. The source is always the first
// -i and the destination is always the last argument. Settings must already
// be validated; an unparsable audio option falls back to copy.
func BuildArgs(binary string, s Settings, enc Encoding) []string {
	if binary == "" {
		binary = "ffmpeg"
	}
	enc = enc.WithDefaults()

	args := []string{binary, "-re", "-y", "-i", s.SourceURL}

	if s.Logo.Enabled {
		args = append(args,
			"-i", s.Logo.URL,
			"-filter_complex", "[1]scale=iw*0.6:-1[wm];[0][wm]"+s.Logo.Overlay,
		)
	}

	args = append(args, "-s", ResolutionSize(s.Resolution))

	if s.FPS > 0 {
		args = append(args, "-r", strconv.Itoa(s.FPS))
	}

	audio, err := ParseAudioOption(s.Audio)
	if err != nil {
		audio = AudioOption{Copy: true}
	}
	args = append(args, audio.Args()...)

	args = append(args,
		"-ar", strconv.Itoa(enc.SampleRate),
		"-pix_fmt", enc.PixelFormat,
		"-tune", enc.Tune,
		"-maxrate", enc.MaxRate,
		"-preset", enc.Preset,
		"-vcodec", enc.VideoCodec,
		"-ab", enc.AudioBitrate,
		"-vb", enc.VideoBitrate,
		"-f", enc.Format,
		s.DestinationURL,
	)
	return args
}

// FormatCommand renders argv as a single line that can be pasted into a
// POSIX shell. Arguments containing shell metacharacters are single-quoted.
func FormatCommand(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

const shellSafe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./:=,+@%"

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.Trim(s, shellSafe) == "" {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
