// Package version holds build metadata set by the linker.
package version

import "fmt"

var (
	// Version is the release version.
	Version = "0.1.0"

	// GitCommit is the commit the binary was built from.
	GitCommit string
)

// FullVersion returns the version with the commit appended when known.
func FullVersion() string {
	if GitCommit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, GitCommit)
}
