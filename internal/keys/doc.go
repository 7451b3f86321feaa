// SPDX-License-Identifier: MPL-2.0

// Package keys extracts title key material from tickets and maintains the
// keys file the reader tools consult.
package keys
