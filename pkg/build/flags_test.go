// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   ldFlags
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	if buildFlags != nil {
		origFlags = *buildFlags
	}

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	if buildFlags != nil {
		*buildFlags = origFlags
	}

	os.Exit(exitCode)
}

func resetFlags() {
	buildFlags = &ldFlags{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        devValue,
		Commit:      devValue,
		Version:     devValue,
	}
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
		wantName    string
		wantVersion string
	}{
		{"Development Build", "", "", "", "", "", defaultName, devValue},
		{"Missing BuildName", "", "2026-10-17", "abcdef123", "v1.0.0", "BuildName is required", "", ""},
		{"Missing BuildTime", "specsynth", "", "abcdef123", "v1.0.0", "BuildTime is required", "", ""},
		{"Missing BuildCommit", "specsynth", "2026-10-17", "", "v1.0.0", "BuildCommit is required", "", ""},
		{"Missing BuildVersion", "specsynth", "2026-10-17", "abcdef123", "", "BuildVersion is required", "", ""},
		{"Release Build", "specsynth", "2026-10-17", "abcdef123", "v1.0.0", "", "specsynth", "v1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()

			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil {
					t.Fatalf("Initialize() expected error, got nil")
				}
				if err.Error() != tt.wantErrMsg {
					t.Errorf("Initialize() error = %v, want %v", err, tt.wantErrMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			if buildFlags.Name != tt.wantName {
				t.Errorf("buildFlags.Name = %v, want %v", buildFlags.Name, tt.wantName)
			}
			if buildFlags.Version != tt.wantVersion {
				t.Errorf("buildFlags.Version = %v, want %v", buildFlags.Version, tt.wantVersion)
			}
			if buildFlags.Description != defaultDescription {
				t.Errorf("buildFlags.Description = %v, want %v", buildFlags.Description, defaultDescription)
			}
		})
	}
}

func TestBuildFlagsString(t *testing.T) {
	f := &ldFlags{Name: "specsynth", Version: "v1.0.0", Commit: "abc", Time: "now"}
	want := "specsynth v1.0.0 (commit abc, built now)"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
