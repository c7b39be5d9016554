// Package version exposes the build identity stamped into the binary.
//
// Release builds overwrite the package variables through ldflags
// (-X .../internal/version.Version=v1.2.0 and friends); a plain `go build`
// reports the dev defaults.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag, or "0.0.0-dev" for local builds.
	Version = "0.0.0-dev"

	// Commit is the short git SHA of the build.
	Commit = "unknown"

	// Date is when the binary was built, RFC3339.
	Date = "unknown"

	// Dirty is "true" when the working tree had uncommitted changes.
	// A string because ldflags can only set strings.
	Dirty = "false"
)

// Info is the resolved build identity, suitable for logs and the
// healthcheck payload.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Dirty     bool   `json:"dirty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get resolves the stamped variables plus runtime facts into an Info.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		Dirty:     Dirty == "true",
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String formats the full identity for the startup log line.
func (i Info) String() string {
	commit := i.Commit
	if i.Dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s) built %s", i.Version, commit, i.Date)
}

// Short is just the version, with a dirty marker when applicable. Used
// where the commit and build date would be noise.
func (i Info) Short() string {
	if i.Dirty {
		return i.Version + "-dirty"
	}
	return i.Version
}
