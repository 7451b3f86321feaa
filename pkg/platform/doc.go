// SPDX-License-Identifier: MPL-2.0

// Package platform provides operating system and architecture identifiers.
//
// External tools are only shipped or buildable for some os/arch pairs, so
// callers describe the machine they run on as a Target and ask the tool
// table whether a given kind can be provided there.
package platform
