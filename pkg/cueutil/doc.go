// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared helpers for reading CUE files: a size
// guard applied before compilation and an error formatter that prefixes
// each CUE error with the JSON-style path of the offending field
// (e.g. "config.cue: tools.build_jobs: invalid value -1").
package cueutil
