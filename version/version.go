// Package version holds build information injected at link time.
package version

import (
	"fmt"
	"runtime"
)

// Set by the build via -ldflags.
var (
	// GitRelease is the release tag or branch the binary was built from.
	GitRelease = "dev"
	// GitCommit is the commit hash the binary was built from.
	GitCommit = "unknown"
	// GitCommitDate is the date of that commit.
	GitCommitDate = "unknown"
)

// GoInfo describes the Go toolchain and target platform.
var GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
