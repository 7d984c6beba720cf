// Package version reports the build of the taxiin binary. Version, GitSHA and
// BuildTime are set at link time with -ldflags "-X ...". When they are left
// unset, the VCS stamp embedded by the Go toolchain is used instead.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// Info is the resolved build information.
type Info struct {
	Version   string
	GitSHA    string
	BuildTime string
	GoVersion string
	Modified  bool
}

// Get resolves the build information, preferring link-time values.
func Get() Info {
	info := Info{
		Version:   Version,
		GitSHA:    GitSHA,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitSHA == "unknown" {
				info.GitSHA = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// ShortSHA returns the first 8 characters of the commit.
func (i Info) ShortSHA() string {
	if len(i.GitSHA) > 8 {
		return i.GitSHA[:8]
	}
	return i.GitSHA
}

func (i Info) String() string {
	dirty := ""
	if i.Modified {
		dirty = "-dirty"
	}
	return fmt.Sprintf("taxiin %s (%s%s, built %s, %s)", i.Version, i.ShortSHA(), dirty, i.BuildTime, i.GoVersion)
}

// String formats the build information for -version output and logs.
func String() string {
	return Get().String()
}
