// Package version reports the restreamer build, as served by GET /api/version
// and printed by `restreamer version`.
//
// Release builds stamp the variables below:
//
//	go build -ldflags "-X github.com/smazurov/restreamer/internal/version.Version=v1.2.0 \
//	  -X github.com/smazurov/restreamer/internal/version.GitCommit=$(git rev-parse --short HEAD) \
//	  -X github.com/smazurov/restreamer/internal/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Plain `go build` and `go install` leave them unset; the commit and date then
// come from the VCS stamp the Go toolchain embeds in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Name is the program name shown in banners and the version command.
const Name = "restreamer"

const unknown = "unknown"

var (
	// Version is the release tag.
	Version = "dev"
	// GitCommit is the commit the binary was built from.
	GitCommit = unknown
	// BuildDate is the UTC build time.
	BuildDate = unknown
	// BuildID identifies the CI run that produced the binary.
	BuildID = unknown
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
	Modified  bool   `json:"modified,omitempty"`
}

// Get returns version and build information.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromVCS(&info, bi.Settings)
	}
	return info
}

// fillFromVCS completes fields the linker flags did not set.
func fillFromVCS(info *Info, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == unknown && s.Value != "" {
				info.GitCommit = shortRevision(s.Value)
			}
		case "vcs.time":
			if info.BuildDate == unknown && s.Value != "" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String returns the release tag, used as the OpenAPI document version.
func String() string {
	return Version
}

// Banner is the one-line form logged at startup, e.g. "restreamer v1.2.0 (3f2a9c1d0b4e)".
func Banner() string {
	info := Get()
	if info.GitCommit == unknown {
		return fmt.Sprintf("%s %s", Name, info.Version)
	}
	commit := info.GitCommit
	if info.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s %s (%s)", Name, info.Version, commit)
}
