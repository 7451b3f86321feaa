// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"
)

const (
	// TicketSize is large enough to hold both key fields of a ticket.
	TicketSize = 0x2c0

	ticketIDOffset     = 0x2a0
	ticketSecretOffset = 0x180
)

// MustSetenv sets the environment variable key to value.
// It returns a cleanup function that restores the original value (or unsets it).
// The test fails immediately if the operation fails.
func MustSetenv(t testing.TB, key, value string) func() {
	t.Helper()
	originalValue, hadValue := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	return func() {
		if hadValue {
			if err := os.Setenv(key, originalValue); err != nil {
				t.Errorf("failed to restore env %s: %v", key, err)
			}
		} else {
			if err := os.Unsetenv(key); err != nil {
				t.Errorf("failed to unset env %s: %v", key, err)
			}
		}
	}
}

// MustMkdirAll creates a directory along with any necessary parents.
// The test fails immediately if the operation fails.
func MustMkdirAll(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustWriteFile writes data to path, creating parent directories.
func MustWriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// MustWriteSized writes a file of exactly size bytes. Content units are
// ordered by size, so tests control ordering through this helper.
func MustWriteSized(t testing.TB, path string, size int) {
	t.Helper()
	MustWriteFile(t, path, make([]byte, size))
}

// MustReadFile returns the content of path as a string.
func MustReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// MustWriteTicket writes a ticket file whose key fields carry the given
// hex-encoded 16-byte id and secret.
func MustWriteTicket(t testing.TB, path, idHex, secretHex string) {
	t.Helper()
	id, err := hex.DecodeString(idHex)
	if err != nil || len(id) != 16 {
		t.Fatalf("bad ticket id %q", idHex)
	}
	secret, err := hex.DecodeString(secretHex)
	if err != nil || len(secret) != 16 {
		t.Fatalf("bad ticket secret %q", secretHex)
	}

	data := make([]byte, TicketSize)
	copy(data[ticketIDOffset:], id)
	copy(data[ticketSecretOffset:], secret)
	MustWriteFile(t, path, data)
}

// MustExist fails the test when path does not exist.
func MustExist(t testing.TB, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

// MustNotExist fails the test when path exists.
func MustNotExist(t testing.TB, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be absent, stat err = %v", path, err)
	}
}

// MustClose closes the given io.Closer.
// The test fails immediately if the close fails.
func MustClose(t testing.TB, c io.Closer) {
	t.Helper()
	if err := c.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
}
