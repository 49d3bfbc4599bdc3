// Package misc keeps program identity helpers used all over the place.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "glslinc"

// set by the linker during official builds, otherwise derived from build info
var (
	version = ""
	gitHash = ""
)

var readBuildInfo = sync.OnceFunc(func() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if len(version) == 0 {
		version = bi.Main.Version
	}
	if len(gitHash) == 0 {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				gitHash = s.Value
				break
			}
		}
	}
})

// GetAppName returns the program name used in logs, file names and the CLI.
func GetAppName() string {
	return appName
}

// GetVersion returns the program version.
func GetVersion() string {
	readBuildInfo()
	if len(version) == 0 {
		return "unknown"
	}
	return version
}

// GetGitHash returns the VCS revision the program was built from.
func GetGitHash() string {
	readBuildInfo()
	if len(gitHash) == 0 {
		return "unknown"
	}
	return gitHash
}
