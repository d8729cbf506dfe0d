package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Capabilities describes what the local ffmpeg build supports.
type Capabilities struct {
	Binary          string
	Version         string
	InputProtocols  []string
	OutputProtocols []string
	RTMPS           bool
}

// Message renders the protocol check result for the control panel.
func (c *Capabilities) Message() string {
	if c.RTMPS {
		return "RTMPS is supported by this FFmpeg build."
	}
	return "RTMPS is not supported by this FFmpeg build."
}

// ProbeErrorMessage renders a failed protocol check for the control panel.
func ProbeErrorMessage(err error) string {
	return "An error occurred while checking FFmpeg protocols: " + err.Error()
}

// SupportsProtocol reports whether name is listed as an output protocol.
func (c *Capabilities) SupportsProtocol(name string) bool {
	return slices.Contains(c.OutputProtocols, name)
}

// Probe queries binary for its protocol list and version concurrently.
func Probe(ctx context.Context, binary string) (*Capabilities, error) {
	if binary == "" {
		binary = "ffmpeg"
	}
	caps := &Capabilities{Binary: binary}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := runProbe(gctx, binary, "-protocols")
		if err != nil {
			return err
		}
		caps.InputProtocols, caps.OutputProtocols = parseProtocols(out)
		return nil
	})
	g.Go(func() error {
		out, err := runProbe(gctx, binary, "-version")
		if err != nil {
			return err
		}
		caps.Version = parseVersion(out)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	caps.RTMPS = slices.Contains(caps.InputProtocols, "rtmps") || slices.Contains(caps.OutputProtocols, "rtmps")
	return caps, nil
}

func runProbe(ctx context.Context, binary, flag string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, "-hide_banner", flag)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s %s: %w: %s", binary, flag, err, msg)
		}
		return nil, fmt.Errorf("%s %s: %w", binary, flag, err)
	}
	return out, nil
}

// parseProtocols reads the Input: and Output: sections of -protocols output.
func parseProtocols(out []byte) (input, output []string) {
	var current *[]string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "Input:"):
			current = &input
		case strings.EqualFold(line, "Output:"):
			current = &output
		case strings.HasSuffix(line, ":"):
			current = nil
		case current != nil:
			*current = append(*current, line)
		}
	}
	return input, output
}

// parseVersion returns the first line of -version output.
func parseVersion(out []byte) string {
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line)
}
