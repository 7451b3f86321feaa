// SPDX-License-Identifier: MPL-2.0

// Package pipeline sequences the external tools that unpack a base package
// and its update, merge their Program filesystems and repack the result.
//
// Every step that can use more than one reader tries them in fallback order
// and fails only when all of them do. Temporary directories belong to a
// Scope that removes them on every return path.
package pipeline
