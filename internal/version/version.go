// Package version holds build metadata stamped in via -ldflags.
package version

import "fmt"

var (
	// Version is the current application version.
	Version = "dev"
	// GitSHA is the git commit SHA of the build.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String renders the build metadata on one line.
func String() string {
	return fmt.Sprintf("worldmap %s (%s, built %s)", Version, GitSHA, BuildTime)
}
