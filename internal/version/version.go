// Package version reports the build version of the callback server.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Overridden with -ldflags "-X github.com/memohai/frontline/internal/version.Version=..." at build time.
var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

var readVCS sync.Once

// GetInfo returns the version followed by the short commit hash when known,
// e.g. "v1.2.0 (3f2a9c1)".
func GetInfo() string {
	readVCS.Do(fillFromBuildInfo)
	if CommitHash == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, shortHash(CommitHash))
}

func fillFromBuildInfo() {
	if CommitHash != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			CommitHash = setting.Value
		case "vcs.time":
			BuildTime = setting.Value
		}
	}
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
