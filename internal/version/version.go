// Package version reports the build version of hardenplan.
package version

import (
	"runtime/debug"
)

// Swappable for testing
var readBuildInfo = debug.ReadBuildInfo

// shortRevisionLen of a VCS revision in dev versions
const shortRevisionLen = 12

// BuildVersion returns the module version. Development builds report
// "dev", followed by the VCS revision when the toolchain stamped one.
func BuildVersion() string {
	info, ok := readBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	if rev := vcsRevision(info); rev != "" {
		return "dev+" + rev
	}
	return "dev"
}

// GoVersion the binary was built with, empty if unknown.
func GoVersion() string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	return info.GoVersion
}

func vcsRevision(info *debug.BuildInfo) string {
	var rev string
	modified := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if rev == "" {
		return ""
	}
	if len(rev) > shortRevisionLen {
		rev = rev[:shortRevisionLen]
	}
	if modified {
		rev += "-dirty"
	}
	return rev
}
