// SPDX-License-Identifier: MPL-2.0

// Package shell runs POSIX shell snippets in-process with mvdan/sh.
//
// Build recipes for source-built tools are shell snippets. File utilities
// used by recipes (cp, mv, mkdir, rm) are served by u-root implementations
// so a recipe does not depend on the host's coreutils; every other command
// runs as an external process.
package shell
