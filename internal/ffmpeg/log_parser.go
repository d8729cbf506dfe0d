package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"
)

// ParseLogLevel extracts the log level from ffmpeg output.
// FFmpeg with -loglevel level+info outputs lines like "[info] message"
// or "[component @ 0x...] [level] message" for component-specific logs.
// Returns the level and the message with level stripped but component preserved.
func ParseLogLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "info", line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return "info", line
	}

	bracket := line[1:end]

	if isLogLevel(bracket) {
		return bracket, line[end+2:]
	}

	// Check for component prefix: [component @ 0x...] [level] message
	// Keep the component, strip only the [level]
	component := line[:end+2]
	rest := line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if nextEnd := strings.Index(rest, "] "); nextEnd != -1 {
			nextBracket := rest[1:nextEnd]
			if isLogLevel(nextBracket) {
				return nextBracket, component + rest[nextEnd+2:]
			}
		}
	}

	return "info", line
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}

// Progress is one parsed ffmpeg stats line.
type Progress struct {
	Frame   int64
	FPS     float64
	SizeKB  int64
	Time    string
	Bitrate float64 // kbit/s
	Speed   float64
}

var (
	progressFrame   = regexp.MustCompile(`frame=\s*(\d+)`)
	progressFPS     = regexp.MustCompile(`fps=\s*([\d.]+)`)
	progressSize    = regexp.MustCompile(`size=\s*(\d+)\s*(?:kB|KiB)`)
	progressTime    = regexp.MustCompile(`time=\s*(-?[\d:.]+)`)
	progressBitrate = regexp.MustCompile(`bitrate=\s*([\d.]+)\s*kbits/s`)
	progressSpeed   = regexp.MustCompile(`speed=\s*([\d.]+)x`)
)

// ParseProgress extracts encoder statistics from a stats line such as
// "frame=  120 fps= 30 q=28.0 size=  512kB time=00:00:04.00 bitrate=1048.6kbits/s speed=1x".
// Fields reported as N/A stay zero. ok is false for any other line.
func ParseProgress(line string) (p Progress, ok bool) {
	if !strings.Contains(line, "time=") || (!strings.Contains(line, "frame=") && !strings.Contains(line, "size=")) {
		return Progress{}, false
	}

	if m := progressFrame.FindStringSubmatch(line); m != nil {
		p.Frame, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if m := progressFPS.FindStringSubmatch(line); m != nil {
		p.FPS, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := progressSize.FindStringSubmatch(line); m != nil {
		p.SizeKB, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if m := progressTime.FindStringSubmatch(line); m != nil {
		p.Time = m[1]
	}
	if m := progressBitrate.FindStringSubmatch(line); m != nil {
		p.Bitrate, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := progressSpeed.FindStringSubmatch(line); m != nil {
		p.Speed, _ = strconv.ParseFloat(m[1], 64)
	}
	return p, true
}
