package app

import (
	"fmt"
	"runtime/debug"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = ""
	BuildTime = "unknown"
)

// VersionInfo contains version information for the application.
type VersionInfo struct {
	Version   string
	GitCommit string
	GitTag    string
	BuildTime string
}

// GetVersionInfo returns the current version information. Values not set via
// ldflags fall back to the VCS stamp of `go build`.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.applyBuildSettings(bi.Settings)
	}
	return info
}

func (v *VersionInfo) applyBuildSettings(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if v.GitCommit == "unknown" && len(s.Value) >= 7 {
				v.GitCommit = s.Value[:7]
			}
		case "vcs.time":
			if v.BuildTime == "unknown" {
				v.BuildTime = s.Value
			}
		}
	}
}

// String returns the short version, preferring the git tag.
func (v VersionInfo) String() string {
	if v.GitTag != "" {
		return v.GitTag
	}
	return v.Version
}

// FullString returns a detailed version string for logging.
func (v VersionInfo) FullString() string {
	return fmt.Sprintf("Signalscope %s (commit: %s, built: %s)", v.String(), v.GitCommit, v.BuildTime)
}
