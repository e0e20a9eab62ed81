// Package version holds build information injected at link time.
package version

import (
	"fmt"
	"runtime"

	"github.com/aatumaykin/tempo/internal/constants"
)

var (
	Version   = constants.DefaultVersion
	BuildTime = constants.DefaultBuildTime
	GitCommit = constants.DefaultGitCommit
	GoVersion = constants.DefaultGoVersion
)

// SetInfo overrides the build information. Empty values are ignored.
func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// Go returns the Go version the binary was built with, falling back to
// the running toolchain when none was injected.
func Go() string {
	if GoVersion == constants.DefaultGoVersion {
		return runtime.Version()
	}
	return GoVersion
}

// Format renders the build information for `tempo version`.
func Format() string {
	return fmt.Sprintf("tempo - periodic job scheduler\nVersion: %s\nBuild Time: %s\nGit Commit: %s\nGo Version: %s\n",
		Version, BuildTime, GitCommit, Go())
}
