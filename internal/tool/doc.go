// SPDX-License-Identifier: MPL-2.0

// Package tool resolves and runs the external package tools.
//
// A Kind names one tool role. Its argument templates map each supported Op
// to an argv with {placeholder} substitution, so the rest of the program
// never builds command lines by hand. The Resolver keeps executables in the
// cache directory under platform-suffixed names, installing them from the
// embedded binaries or from a pinned upstream revision built with the
// in-process shell. A Handle runs one resolved tool through a Runner.
package tool
