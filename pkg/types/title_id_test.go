// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestTitleID_Truncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   TitleID
		want TitleID
	}{
		{"longer than 16 is cut", "0100ABCD00001000DEADBEEF", "0100abcd00001000"},
		{"exactly 16 is kept", "0100ABCD00001000", "0100abcd00001000"},
		{"shorter is kept", "0100abcd", "0100abcd"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.id.Truncate()
			if got != tt.want {
				t.Errorf("Truncate() = %q, want %q", got, tt.want)
			}
			if len(tt.id) > TitleIDLength && len(got) != TitleIDLength {
				t.Errorf("Truncate() length = %d, want %d", len(got), TitleIDLength)
			}
		})
	}
}

func TestTitleID_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id      TitleID
		wantErr bool
	}{
		{"0100abcd00001000", false},
		{"0100ABCD00001000", false},
		{"0100abcd0000100", true},
		{"0100abcd000010000", false},
		{"0100ABCD00010000DEADBEEF00000000", false},
		{"0100abcd0000100g", true},
		{"0100abcd00001000zz", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			t.Parallel()
			err := tt.id.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTitleID) {
				t.Errorf("error should wrap ErrInvalidTitleID, got %v", err)
			}
		})
	}
}
