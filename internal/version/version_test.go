package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	orig := readBuildInfo
	t.Cleanup(func() { readBuildInfo = orig })
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
}

func TestCurrent_FallsBackToVCSStamp(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T09:00:00Z"},
		},
	})

	got := Current()
	assert.Equal(t, Info{Version: "dev", GitSHA: "0123456789abcdef0123", BuildTime: "2026-10-01T09:00:00Z"}, got)
	assert.Equal(t, "plate dev (git 0123456789ab, built 2026-10-01T09:00:00Z)", got.String())
}

func TestCurrent_LinkerValuesWin(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "v0.3.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	})
	origV, origSHA := Version, GitSHA
	t.Cleanup(func() { Version, GitSHA = origV, origSHA })
	Version, GitSHA = "1.2.0", "abc123"

	got := Current()
	assert.Equal(t, "1.2.0", got.Version)
	assert.Equal(t, "abc123", got.GitSHA)
}

func TestCurrent_ModuleVersion(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "v0.3.0"}})
	assert.Equal(t, "v0.3.0", Current().Version)
}

func TestCurrent_NoBuildInfo(t *testing.T) {
	stubBuildInfo(t, nil)
	assert.Equal(t, Info{Version: Version, GitSHA: GitSHA, BuildTime: BuildTime}, Current())
}
