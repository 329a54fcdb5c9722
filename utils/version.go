package utils

import "runtime/debug"

const defaultVersion = "0.1.0"

// Version reports the module version stamped by the Go toolchain, or the
// release constant for local builds.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return defaultVersion
	}
	return info.Main.Version
}
