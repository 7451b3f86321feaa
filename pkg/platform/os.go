// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"fmt"
	"runtime"
)

// OS name constants for runtime.GOOS comparisons.
// Centralizes the string literals to avoid scattered magic strings.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// Architecture constants for runtime.GOARCH comparisons.
const (
	AMD64 = "amd64"
	ARM64 = "arm64"
)

// Target identifies an operating system and CPU architecture pair.
type Target struct {
	OS   string
	Arch string
}

// Current returns the Target of the running binary.
func Current() Target {
	return Target{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// Is reports whether the target matches os and arch exactly.
func (t Target) Is(os, arch string) bool {
	return t.OS == os && t.Arch == arch
}

// IsWindows reports whether the target operating system is Windows.
func (t Target) IsWindows() bool { return t.OS == Windows }

// ExeSuffix returns ".exe" on Windows and an empty string elsewhere.
func (t Target) ExeSuffix() string {
	if t.IsWindows() {
		return ".exe"
	}
	return ""
}

// String returns the target in "os/arch" form.
func (t Target) String() string {
	return fmt.Sprintf("%s/%s", t.OS, t.Arch)
}
