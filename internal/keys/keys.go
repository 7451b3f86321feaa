// SPDX-License-Identifier: MPL-2.0

package keys

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// FieldSize is the length in bytes of both the id and the secret.
	FieldSize = 16
	// IDOffset is the byte offset of the rights id in a ticket.
	IDOffset = 0x2a0
	// SecretOffset is the byte offset of the title key in a ticket.
	SecretOffset = 0x180
	// TicketExt is the extension of ticket files in an unpacked package.
	TicketExt = ".tik"
)

var (
	// ErrNoTicket is returned when an unpacked package carries no ticket.
	ErrNoTicket = errors.New("no ticket file found")
	// ErrMalformedKeys is the sentinel error wrapped by ParseError.
	ErrMalformedKeys = errors.New("malformed keys file")
)

type (
	// Record is the key material of one ticket.
	Record struct {
		ID     [FieldSize]byte
		Secret [FieldSize]byte
	}

	// ParseError reports a keys file line that is not hex(id)=hex(secret).
	ParseError struct {
		Path   string
		Line   int
		Reason string
	}
)

// String returns the keys file form of r.
func (r Record) String() string {
	return hex.EncodeToString(r.ID[:]) + "=" + hex.EncodeToString(r.Secret[:])
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
}

// Unwrap returns ErrMalformedKeys for errors.Is() compatibility.
func (e *ParseError) Unwrap() error { return ErrMalformedKeys }

// Extract reads the key record of the ticket at path. A ticket too short to
// hold both fields is an error; fields are never zero-padded.
func Extract(path string) (rec Record, err error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, fmt.Errorf("open ticket: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := readField(f, IDOffset, rec.ID[:]); err != nil {
		return Record{}, fmt.Errorf("read ticket id from %s: %w", path, err)
	}
	if err := readField(f, SecretOffset, rec.Secret[:]); err != nil {
		return Record{}, fmt.Errorf("read ticket secret from %s: %w", path, err)
	}
	return rec, nil
}

func readField(r io.ReaderAt, off int64, dst []byte) error {
	_, err := io.ReadFull(io.NewSectionReader(r, off, int64(len(dst))), dst)
	return err
}

// FindTicket returns the first ticket under dir in lexical walk order.
func FindTicket(dir string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), TicketExt) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%w in %s", ErrNoTicket, dir)
	}
	return found, nil
}

// Persist overwrites dest with one line per record, creating parent
// directories as needed.
func Persist(records []Record, dest string) error {
	var buf bytes.Buffer
	for _, r := range records {
		buf.WriteString(r.String())
		buf.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create keys directory: %w", err)
	}
	if err := os.WriteFile(dest, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write keys file: %w", err)
	}
	return nil
}

// Clear removes dest. An absent file is not an error.
func Clear(dest string) error {
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear keys file: %w", err)
	}
	return nil
}

// Read parses a keys file. Blank lines are skipped.
func Read(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var out []Record
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		rec, reason := parseLine(line)
		if reason != "" {
			return nil, &ParseError{Path: path, Line: n, Reason: reason}
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}

func parseLine(line string) (Record, string) {
	idHex, secretHex, ok := strings.Cut(line, "=")
	if !ok {
		return Record{}, "missing '='"
	}

	var rec Record
	if err := decodeField(rec.ID[:], strings.TrimSpace(idHex)); err != "" {
		return Record{}, "id " + err
	}
	if err := decodeField(rec.Secret[:], strings.TrimSpace(secretHex)); err != "" {
		return Record{}, "secret " + err
	}
	return rec, ""
}

func decodeField(dst []byte, s string) string {
	if len(s) != 2*FieldSize {
		return fmt.Sprintf("must be %d hex digits, got %d", 2*FieldSize, len(s))
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		return "is not hex"
	}
	return ""
}

// Merge returns records without duplicate ids. The first record for an id
// wins and input order is kept.
func Merge(records ...Record) []Record {
	seen := make(map[[FieldSize]byte]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
