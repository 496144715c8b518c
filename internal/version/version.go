// Package version carries the build identity of the binary.
package version

import "fmt"

// These variables are set at build time via ldflags.
var (
	// Release is the release version (e.g., "v1.0.0-abc1234").
	Release = "dev"
	// GitCommit is the short git commit hash.
	GitCommit = "unknown"
)

// String renders the release and commit as shown by the version command.
func String() string {
	return fmt.Sprintf("t8n-repl %s (commit %s)", Release, GitCommit)
}
