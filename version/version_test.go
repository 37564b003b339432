package version

import (
	"runtime/debug"
	"testing"
	"time"
)

func withBuild(t *testing.T, version, commit, buildTime string, bi *debug.BuildInfo) {
	t.Helper()
	origV, origC, origB, origRead := Version, GitCommit, BuildTime, readBuildInfo
	t.Cleanup(func() {
		Version, GitCommit, BuildTime, readBuildInfo = origV, origC, origB, origRead
	})
	Version, GitCommit, BuildTime = version, commit, buildTime
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
}

func TestGet_LdflagsWin(t *testing.T) {
	withBuild(t, "1.4.0", "abc1234", "2026-01-15T10:30:00Z", &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "ffffffffffffffff"},
			{Key: "vcs.time", Value: "2020-01-01T00:00:00Z"},
		},
	})

	info := Get()
	if info.GitCommit != "abc1234" {
		t.Errorf("expected ldflags commit, got %q", info.GitCommit)
	}
	if !info.BuildDate.Equal(time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("expected ldflags build time, got %s", info.BuildDate)
	}
	if !info.IsRelease() {
		t.Error("1.4.0 should be a release")
	}
	if got := info.String(); got != "1.4.0-abc1234 (built 2026-01-15T10:30:00Z, go1.26.0)" {
		t.Errorf("unexpected String(): %q", got)
	}
}

func TestGet_VCSFallback(t *testing.T) {
	withBuild(t, "dev", "", "", &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := Get()
	if info.GitCommit != "0123456" {
		t.Errorf("expected truncated revision, got %q", info.GitCommit)
	}
	if info.IsRelease() {
		t.Error("dev build should not be a release")
	}
	if got := info.Short(); got != "dev-0123456-dirty" {
		t.Errorf("unexpected Short(): %q", got)
	}
	if got := info.String(); got != "dev-0123456-dirty (go1.26.0)" {
		t.Errorf("unexpected String(): %q", got)
	}
}

func TestGet_NoBuildInfo(t *testing.T) {
	withBuild(t, "dev", "", "not-a-time", nil)

	info := Get()
	if info.Short() != "dev" || !info.BuildDate.IsZero() {
		t.Errorf("unexpected info %+v", info)
	}
	if UserAgent() != "chunkscribe/dev" {
		t.Errorf("unexpected user agent %q", UserAgent())
	}
}
