// SPDX-License-Identifier: MPL-2.0

// Package nca classifies content units by running a reader tool's info
// operation and parsing its report. The binary format itself is never read.
package nca
