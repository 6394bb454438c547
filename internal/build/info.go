// Package build exposes version metadata stamped in at release time.
package build

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/Masterminds/semver/v3"
)

// These variables are set at build time via -ldflags, e.g.
//
//	-X github.com/mmdesignweb/crm-notifier/internal/build.Version=v1.2.0
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// IsRelease reports whether Version is a semantic version, i.e. the binary
// was built from a release tag.
func IsRelease() bool {
	_, err := semver.NewVersion(Version)
	return err == nil
}

// Commit returns CommitSHA, falling back to the VCS revision recorded by the
// Go toolchain for plain "go build" binaries.
func Commit() string {
	if CommitSHA != "unknown" && CommitSHA != "" {
		return CommitSHA
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return CommitSHA
}

// String returns a single human-readable build info string.
func String() string {
	commit := Commit()
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("%s (commit %s, built %s, %s)", Version, commit, BuildDate, runtime.Version())
}
