// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestFilesystemPath_Validate(t *testing.T) {
	t.Parallel()

	for _, p := range []FilesystemPath{"/games/base.nsp", "update.nsp", `C:\Switch\title.keys`, "my dump.xci", "."} {
		if err := p.Validate(); err != nil {
			t.Errorf("FilesystemPath(%q).Validate() = %v, want nil", p, err)
		}
	}

	for _, p := range []FilesystemPath{"", "   ", "\t\n"} {
		err := p.Validate()
		var fpErr *InvalidFilesystemPathError
		if !errors.Is(err, ErrInvalidFilesystemPath) || !errors.As(err, &fpErr) || fpErr.Value != p {
			t.Errorf("FilesystemPath(%q).Validate() = %v, want *InvalidFilesystemPathError", p, err)
		}
	}
	if got := FilesystemPath("/bin/hactool").String(); got != "/bin/hactool" {
		t.Errorf("String() = %q", got)
	}
}

func TestFilesystemPath_HasExt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path FilesystemPath
		ext  string
		want bool
	}{
		{"game.nsp", ".nsp", true},
		{"GAME.NSP", ".nsp", true},
		{"/dir/unit.nca", ".nca", true},
		{"/dir/unit.nca.bak", ".nca", false},
		{"ticket", ".tik", false},
	}

	for _, tt := range tests {
		if got := tt.path.HasExt(tt.ext); got != tt.want {
			t.Errorf("FilesystemPath(%q).HasExt(%q) = %v, want %v", tt.path, tt.ext, got, tt.want)
		}
	}
}
