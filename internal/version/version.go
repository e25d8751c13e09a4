// Package version reports the build of the plate binary. The variables are
// set with -ldflags "-X"; when they are left at their defaults, Current
// falls back to the VCS stamp the Go toolchain embeds.
package version

import "runtime/debug"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// Info identifies a build in run reports and stored runs.
type Info struct {
	Version   string `json:"version"`
	GitSHA    string `json:"git_sha"`
	BuildTime string `json:"build_time"`
}

var readBuildInfo = debug.ReadBuildInfo

// Current returns the build identity.
func Current() Info {
	info := Info{Version: Version, GitSHA: GitSHA, BuildTime: BuildTime}
	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.GitSHA == "unknown":
			info.GitSHA = s.Value
		case s.Key == "vcs.time" && info.BuildTime == "unknown":
			info.BuildTime = s.Value
		}
	}
	return info
}

func (i Info) String() string {
	sha := i.GitSHA
	if len(sha) > 12 {
		sha = sha[:12]
	}
	return "plate " + i.Version + " (git " + sha + ", built " + i.BuildTime + ")"
}
