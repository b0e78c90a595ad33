// Package version exposes build metadata. Values are set with -ldflags:
//
//	go build -ldflags "-X scenariowriter/internal/version.Version=1.2.0 -X scenariowriter/internal/version.Commit=abc123"
package version

import "fmt"

var (
	Version = "0.1.0-dev"
	Commit  = ""
)

// String returns the version, with the commit when known.
func String() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
