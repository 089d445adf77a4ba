package version

import (
	"github.com/Masterminds/semver"
)

// Version is the copylibs release version. It is overridden at build time
// via -ldflags.
var Version = "1.0.0"

// Semver returns the parsed release version. It panics on an invalid
// version string, which can only happen through a bad -ldflags value.
func Semver() *semver.Version {
	return semver.MustParse(Version)
}
