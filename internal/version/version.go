// Package version exposes the build version stamped in at link time.
package version

import "runtime/debug"

// value is set via -ldflags "-X .../internal/version.value=v1.2.3".
var value = ""

// Value returns the stamped version, falling back to module build info and
// then to a development placeholder.
func Value() string {
	if value != "" {
		return value
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "v0.0.0-dev"
}
