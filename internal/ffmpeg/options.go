package ffmpeg

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Form defaults.
const (
	DefaultResolution = "720p"
	DefaultFPS        = 30
	DefaultOverlay    = "overlay=W-w-45:37"
	fallbackSize      = "1280x720"
)

// Audio option values. AudioCopyLabel is accepted as an alias of AudioCopy.
const (
	AudioCopy      = "copy"
	AudioCopyLabel = "Copy Audio from File"
)

// ErrInvalidAudioOption is wrapped by ParseAudioOption failures.
var ErrInvalidAudioOption = errors.New("invalid audio option")

// Resolution is a selectable output size.
type Resolution struct {
	Label  string `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Size returns the WxH form ffmpeg expects for -s.
func (r Resolution) Size() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Resolutions lists the offered sizes, largest first.
var Resolutions = []Resolution{
	{Label: "4K", Width: 3840, Height: 2160},
	{Label: "1080p", Width: 1920, Height: 1080},
	{Label: "720p", Width: 1280, Height: 720},
	{Label: "480p", Width: 854, Height: 480},
	{Label: "360p", Width: 640, Height: 360},
	{Label: "180p", Width: 320, Height: 180},
}

// FPSChoices are the frame rates offered by the form.
var FPSChoices = []int{24, 30, 60}

// AudioChoice is a selectable audio handling.
type AudioChoice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// AudioChoices lists the offered audio options, copy first.
var AudioChoices = []AudioChoice{
	{Value: AudioCopy, Label: AudioCopyLabel},
	{Value: "1|128k", Label: "Mono, 128k"},
	{Value: "2|128k", Label: "Stereo, 128k"},
	{Value: "2|256k", Label: "Stereo, 256k"},
}

// ResolutionSize maps a label to WxH. Unknown labels fall back to 1280x720.
func ResolutionSize(label string) string {
	for _, r := range Resolutions {
		if r.Label == label {
			return r.Size()
		}
	}
	return fallbackSize
}

// AudioOption is a parsed audio choice.
type AudioOption struct {
	Copy     bool
	Channels int
	Bitrate  string
}

var bitratePattern = regexp.MustCompile(`^\d+[kKmM]?$`)

// ParseAudioOption parses "copy" (or its label, or empty) and "<channels>|<bitrate>".
func ParseAudioOption(s string) (AudioOption, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == AudioCopy || s == AudioCopyLabel {
		return AudioOption{Copy: true}, nil
	}

	channels, bitrate, ok := strings.Cut(s, "|")
	if !ok {
		return AudioOption{}, fmt.Errorf("%w %q: expected copy or <channels>|<bitrate>", ErrInvalidAudioOption, s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(channels))
	if err != nil || n < 1 || n > 8 {
		return AudioOption{}, fmt.Errorf("%w %q: channels must be 1-8", ErrInvalidAudioOption, s)
	}
	bitrate = strings.TrimSpace(bitrate)
	if !bitratePattern.MatchString(bitrate) {
		return AudioOption{}, fmt.Errorf("%w %q: bad bitrate %q", ErrInvalidAudioOption, s, bitrate)
	}
	return AudioOption{Channels: n, Bitrate: bitrate}, nil
}

// Args returns the audio arguments for the option.
func (a AudioOption) Args() []string {
	if a.Copy {
		return []string{"-c:a", "copy"}
	}
	return []string{"-ac", strconv.Itoa(a.Channels), "-b:a", a.Bitrate}
}
