package buildconfig

import "runtime/debug"

// Injected via ldflags; commit falls back to the VCS revision stamped
// by the Go toolchain when ldflags are absent.
var (
	version = "dev"
	commit  = "unknown"
)

func init() {
	if commit != "unknown" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			commit = s.Value
		}
	}
}

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// VersionInfo returns version and commit for status payloads.
func VersionInfo() map[string]string {
	return map[string]string{
		"version": version,
		"commit":  commit,
	}
}
