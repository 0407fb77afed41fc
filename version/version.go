// Package version provides the version information for gfxd.
package version

import "runtime"

var (
	// Package is filled at linking time
	Package = "github.com/gfxmux/gfxd"

	// Version holds the complete version number. Filled in at linking time.
	Version = "0.0.1+unknown"

	// Revision is filled with the VCS (e.g. git) revision being used to build
	// the program at linking time.
	Revision = ""

	// GoVersion is Go tree's version.
	GoVersion = runtime.Version()
)
