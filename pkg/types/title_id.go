// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// TitleIDLength is the number of hex digits in a packing title id.
const TitleIDLength = 16

// ErrInvalidTitleID is the sentinel error wrapped by InvalidTitleIDError.
var ErrInvalidTitleID = errors.New("invalid title id")

type (
	// TitleID is the hex identifier of a title as reported by the reader
	// tools. Values reported by tools may carry more than TitleIDLength
	// digits; Truncate produces the form used for packing.
	// The zero value ("") means "not reported".
	TitleID string

	// InvalidTitleIDError is returned when a TitleID is shorter than
	// TitleIDLength or holds a non-hex digit.
	InvalidTitleIDError struct {
		Value  TitleID
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidTitleIDError) Error() string {
	return fmt.Sprintf("invalid title id %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidTitleID so callers can use errors.Is for programmatic detection.
func (e *InvalidTitleIDError) Unwrap() error { return ErrInvalidTitleID }

// String returns the string representation of the TitleID.
func (id TitleID) String() string { return string(id) }

// IsZero reports whether no id was reported.
func (id TitleID) IsZero() bool { return id == "" }

// Lower returns the id in lowercase. All id comparisons go through this form.
func (id TitleID) Lower() TitleID {
	return TitleID(strings.ToLower(string(id)))
}

// Truncate lowercases the id and cuts it to TitleIDLength digits.
// Shorter ids are returned lowercased but otherwise unchanged.
func (id TitleID) Truncate() TitleID {
	lower := id.Lower()
	if len(lower) > TitleIDLength {
		return lower[:TitleIDLength]
	}
	return lower
}

// Validate returns an error unless the id is at least TitleIDLength hex
// digits. Longer ids, such as rights ids, are valid and Truncate cuts them.
func (id TitleID) Validate() error {
	if len(id) < TitleIDLength {
		return &InvalidTitleIDError{Value: id, Reason: fmt.Sprintf("must be at least %d hex digits, got %d", TitleIDLength, len(id))}
	}
	if strings.IndexFunc(string(id), func(r rune) bool { return !isHexDigit(r) }) >= 0 {
		return &InvalidTitleIDError{Value: id, Reason: "must contain only hex digits"}
	}
	return nil
}

func isHexDigit(r rune) bool {
	return ('0' <= r && r <= '9') || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}
