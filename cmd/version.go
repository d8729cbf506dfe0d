package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/restreamer/internal/version"
)

// CreateVersionCmd creates the version subcommand.
func CreateVersionCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, _ []string) {
			info := version.Get()
			out := c.OutOrStdout()
			if !verbose {
				fmt.Fprintln(out, info.String())
				return
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, [][]string{
				{"Version", info.Version},
				{"Commit", info.GitCommit},
				{"Built", info.BuildDate},
				{"Build ID", info.BuildID},
				{"Go", info.GoVersion},
				{"Compiler", info.Compiler},
				{"Platform", info.Platform},
			}, nil))
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every build field")

	return cmd
}
