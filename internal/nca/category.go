// SPDX-License-Identifier: MPL-2.0

package nca

import (
	"errors"
	"fmt"
)

const (
	// CategoryProgram holds the executable and asset filesystems.
	CategoryProgram Category = iota + 1
	// CategoryMeta describes the title's content.
	CategoryMeta
	// CategoryControl holds the title's icon and properties.
	CategoryControl
	// CategoryManual holds the offline manual.
	CategoryManual
	// CategoryData is generic data content.
	CategoryData
	// CategoryPublicData is shared data content.
	CategoryPublicData
)

var (
	// ErrClassification is matched by every *ClassificationError.
	ErrClassification = errors.New("content unit classification failed")

	categoryNames = map[Category]string{
		CategoryProgram:    "Program",
		CategoryMeta:       "Meta",
		CategoryControl:    "Control",
		CategoryManual:     "Manual",
		CategoryData:       "Data",
		CategoryPublicData: "PublicData",
	}
)

type (
	// Category is the content type a reader reports for a content unit.
	Category int

	// ClassificationError reports a report field that is missing or holds
	// an unrecognized value. Err is the tool failure that accompanied the
	// report, if any.
	ClassificationError struct {
		Path  string
		Field string
		Value string
		Err   error
	}
)

// Categories returns every category in declaration order.
func Categories() []Category {
	return []Category{
		CategoryProgram, CategoryMeta, CategoryControl,
		CategoryManual, CategoryData, CategoryPublicData,
	}
}

// ParseCategory resolves the exact tag a reader prints ("Program").
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, &ClassificationError{Field: contentTypeLabel, Value: s}
}

// String returns the tag of c.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Error implements the error interface.
func (e *ClassificationError) Error() string {
	var msg string
	if e.Value == "" {
		msg = fmt.Sprintf("no %q in report", e.Field)
	} else {
		msg = fmt.Sprintf("unrecognized %q value %q", e.Field, e.Value)
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns ErrClassification and the accompanying tool failure.
func (e *ClassificationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrClassification}
	}
	return []error{ErrClassification, e.Err}
}
