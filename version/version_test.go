package version

import (
	"runtime/debug"
	"testing"
)

func TestFromBuild(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abcdef1234567890"},
			{Key: "vcs.time", Value: "2026-03-01T10:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	info := fromBuild(bi, true)
	if info.GitCommit != "abcdef1" || info.BuildTime != "2026-03-01T10:00:00Z" || !info.Dirty || info.GoVersion != "go1.26.0" {
		t.Errorf("unexpected info %+v", info)
	}
	if got, want := info.String(), "dev (abcdef1-dirty, built 2026-03-01T10:00:00Z)"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}

func TestFromBuild_LdflagsWin(t *testing.T) {
	old := GitCommit
	GitCommit = "1234567"
	defer func() { GitCommit = old }()

	bi := &debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffffff"}}}
	if got := fromBuild(bi, true).GitCommit; got != "1234567" {
		t.Errorf("ldflags commit should win, got %q", got)
	}
}

func TestString_Bare(t *testing.T) {
	if got := fromBuild(nil, false).String(); got != Version {
		t.Errorf("String = %q, want %q", got, Version)
	}
	if Get().Version == "" {
		t.Error("Get should always report a version")
	}
}
