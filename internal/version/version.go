// Package version holds build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	// Version is the application version, set via ldflags during build.
	Version = "dev"
	// GitCommit is the git commit hash, set via ldflags during build.
	GitCommit = "unknown"
	// BuildDate is the build timestamp, set via ldflags during build.
	BuildDate = "unknown"
	// BuildID is the build identifier, set via ldflags during build.
	BuildID = "unknown"
)

// buildDateLayouts are the accepted BuildDate formats, most specific first.
var buildDateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"}

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// Built parses BuildDate. ok is false for dev builds.
func (i Info) Built() (t time.Time, ok bool) {
	for _, layout := range buildDateLayouts {
		if parsed, err := time.Parse(layout, i.BuildDate); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// String renders a one-line summary, e.g.
// "restreamer v1.2.0 (abc1234, built 3 days ago, go1.24.11 linux/amd64)".
func (i Info) String() string {
	details := make([]string, 0, 3)
	if i.GitCommit != "" && i.GitCommit != "unknown" {
		details = append(details, i.GitCommit)
	}
	if built, ok := i.Built(); ok {
		details = append(details, "built "+humanize.Time(built))
	}
	details = append(details, strings.TrimSpace(i.GoVersion+" "+i.Platform))
	return fmt.Sprintf("restreamer %s (%s)", i.Version, strings.Join(details, ", "))
}

// String returns the application version string.
func String() string {
	return Version
}
