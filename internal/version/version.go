// Package version carries build metadata injected at link time:
// go build -ldflags "-X git.home.luguber.info/inful/assembler/internal/version.Version=v1.0.0".
package version

import "fmt"

// Version contains the application version information.
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("assembler %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
