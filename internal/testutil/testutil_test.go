// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestMustWriteTicket(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", "a.tik")
	MustWriteTicket(t, path, "0100000000010000000000000000000a", "00112233445566778899aabbccddeeff")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != TicketSize {
		t.Fatalf("ticket size = %d, want %d", len(data), TicketSize)
	}
	wantID, _ := hex.DecodeString("0100000000010000000000000000000a")
	if !bytes.Equal(data[0x2a0:0x2b0], wantID) {
		t.Errorf("id bytes = %x", data[0x2a0:0x2b0])
	}
	wantSecret, _ := hex.DecodeString("00112233445566778899aabbccddeeff")
	if !bytes.Equal(data[0x180:0x190], wantSecret) {
		t.Errorf("secret bytes = %x", data[0x180:0x190])
	}
}

func TestMustWriteSized(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "x.nca")
	MustWriteSized(t, path, 1000)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 1000 {
		t.Errorf("size = %d, want 1000", info.Size())
	}
	MustExist(t, path)
	MustNotExist(t, path+".missing")
}
