// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue/errors"
)

// DefaultMaxFileSize bounds the CUE files nspatcher reads (5MB).
const DefaultMaxFileSize int64 = 5 << 20

// FormatError rewrites a CUE error as "<file>: <field path>: <message>".
// Several errors are listed one per line under "validation failed".
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	list := errors.Errors(err)
	if len(list) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	lines := make([]string, 0, len(list))
	for _, e := range list {
		lines = append(lines, describe(e))
	}
	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filePath, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filePath, strings.Join(lines, "\n  "))
}

func describe(e errors.Error) string {
	path := fieldPath(errors.Path(e))
	msg := e.Error()
	if path == "" {
		return msg
	}
	// CUE may already lead the message with the path.
	if rest, ok := strings.CutPrefix(msg, path); ok {
		msg = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	}
	return path + ": " + msg
}

// fieldPath renders ["tools", "reader_preference", "1"] as
// "tools.reader_preference[1]".
func fieldPath(elems []string) string {
	var b strings.Builder
	for i, el := range elems {
		switch _, err := strconv.ParseUint(el, 10, 64); {
		case i > 0 && err == nil:
			b.WriteString("[" + el + "]")
		case i > 0:
			b.WriteString("." + el)
		default:
			b.WriteString(el)
		}
	}
	return b.String()
}

// CheckFileSize rejects data larger than maxSize before it is compiled.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if n := int64(len(data)); n > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, n, maxSize)
	}
	return nil
}
