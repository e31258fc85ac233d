// FILE: logship/src/internal/version/version.go
package version

import "fmt"

var (
	// Version is set at compile time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Product name used in identifiers sent to remote services
const product = "logship"

// String returns the full version with build details
func String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", product, Version, GitCommit, BuildTime)
}

// Short returns just the version tag
func Short() string {
	return Version
}

// UserAgent identifies the agent in outgoing requests and server headers
func UserAgent() string {
	return product + "/" + Version
}
