// SPDX-License-Identifier: MIT
//
// Package build exposes the build metadata embedded into the scope binary at
// link time. Values are injected with -ldflags, for example:
//
//	go build -ldflags "-X scope/pkg/build.buildName=scope \
//	  -X scope/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds without ldflags report "dev" for every field.
package build

import (
	"errors"
	"fmt"
)

// ErrMissingFlag is returned by Initialize when a required ldflag is unset.
var ErrMissingFlag = errors.New("build flag is required")

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultFlags()
)

func defaultFlags() *ldFlags {
	return &ldFlags{
		Name:        "scope",
		Description: "Real-time audio oscilloscope and spectrum analyzer",
		Time:        "dev",
		Commit:      "dev",
		Version:     "dev",
	}
}

// Initialize validates and copies build information from the ldflags
// variables. On error the development defaults stay in place, so callers
// may treat the error as a warning.
func Initialize() error {
	required := []struct {
		name  string
		value string
	}{
		{"BuildName", buildName},
		{"BuildTime", buildTime},
		{"BuildCommit", buildCommit},
		{"BuildVersion", buildVersion},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s: %w", r.name, ErrMissingFlag)
		}
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

// Summary renders the build information on one line for version output.
func (f *ldFlags) Summary() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
