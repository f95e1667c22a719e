package version

import "runtime/debug"

var (
	Version = "0.1.0"
	Commit  = ""
)

// Resolve returns the version string, suffixed with the VCS revision when the
// binary carries one.
func Resolve() string {
	return resolveVersion(Version, Commit, readRevision)
}

func resolveVersion(base string, commit string, revision func() string) string {
	if base == "" {
		base = "0.0.0"
	}
	if commit == "" && revision != nil {
		commit = revision()
	}
	if commit == "" {
		return base
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return base + "+" + commit
}

func readRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return ""
}
