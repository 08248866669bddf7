// SPDX-License-Identifier: MIT
//
// Package build carries metadata embedded at link time:
//
//	go build -ldflags "-X specsynth/pkg/build.buildName=specsynth \
//	    -X specsynth/pkg/build.buildVersion=0.2.0 \
//	    -X specsynth/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	    -X specsynth/pkg/build.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// A plain `go build` leaves every flag empty and Initialize falls back to
// development values. A partial set is rejected so that release builds
// cannot ship with half their metadata.
package build

import "fmt"

const (
	defaultName        = "specsynth"
	defaultDescription = "Reconstruct audio from predicted STFT magnitudes with synthetic phase"
	devValue           = "dev"
)

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        devValue,
		Commit:      devValue,
		Version:     devValue,
	}
)

// Initialize copies the ldflags variables into the build information. With
// no flags set it keeps the development defaults; with some but not all set
// it returns an error naming the first missing one.
func Initialize() error {
	if buildName == "" && buildTime == "" && buildCommit == "" && buildVersion == "" {
		return nil
	}

	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the build information for --version output.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
