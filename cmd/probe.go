package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/smazurov/restreamer/internal/ffmpeg"
)

// streamingProtocols are shown in the table even when the build lacks them.
var streamingProtocols = []string{"rtmp", "rtmps", "rtmpt", "srt", "hls", "https", "tcp", "udp"}

// CreateProbeCmd creates the probe subcommand.
func CreateProbeCmd() *cobra.Command {
	var binary string
	var all bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check which protocols the local ffmpeg supports",
		Long:  `Runs ffmpeg -protocols and -version and reports whether RTMPS output is available.`,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(c.Context(), timeout)
			defer cancel()

			started := time.Now()
			caps, err := ffmpeg.Probe(ctx, binary)
			if err != nil {
				return errors.New(ffmpeg.ProbeErrorMessage(err))
			}
			writeProbeReport(c.OutOrStdout(), caps, all, time.Since(started))
			return nil
		},
	}

	cmd.Flags().StringVar(&binary, "binary", "ffmpeg", "ffmpeg executable")
	cmd.Flags().BoolVar(&all, "all", false, "List every protocol, not just streaming ones")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Probe timeout")

	return cmd
}

func writeProbeReport(w io.Writer, caps *ffmpeg.Capabilities, all bool, took time.Duration) {
	names := streamingProtocols
	if all {
		names = slices.Concat(caps.InputProtocols, caps.OutputProtocols)
		slices.Sort(names)
		names = slices.Compact(names)
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{
			name,
			yesNo(slices.Contains(caps.InputProtocols, name)),
			yesNo(slices.Contains(caps.OutputProtocols, name)),
		})
	}

	fmt.Fprintf(w, "%s\n%s\n", caps.Binary, caps.Version)
	fmt.Fprintln(w, renderTable([]string{"Protocol", "Input", "Output"}, rows, nil))
	fmt.Fprintf(w, "%s (%s protocols, checked in %s)\n",
		caps.Message(), humanize.Comma(int64(len(names))), took.Round(time.Millisecond))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
