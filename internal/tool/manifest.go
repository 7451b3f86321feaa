// SPDX-License-Identifier: MPL-2.0

package tool

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	manifestName = "manifest.toml"

	// OriginBundled marks a tool written from the embedded binaries.
	OriginBundled = "bundled"
	// OriginSource marks a tool built from its upstream source.
	OriginSource = "source"
)

type (
	// ManifestEntry records where a cached tool came from.
	ManifestEntry struct {
		Origin   string `toml:"origin"`
		Revision string `toml:"revision,omitempty"`
		// Digest is the hex BLAKE3 digest of the cached executable.
		Digest string `toml:"blake3"`
	}

	manifest struct {
		Tools map[string]ManifestEntry `toml:"tools"`
	}
)

func loadManifest(cacheDir string) (manifest, error) {
	m := manifest{Tools: map[string]ManifestEntry{}}
	data, err := os.ReadFile(filepath.Join(cacheDir, manifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, err
	}
	if err := toml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse %s: %w", manifestName, err)
	}
	if m.Tools == nil {
		m.Tools = map[string]ManifestEntry{}
	}
	return m, nil
}

func (m manifest) save(cacheDir string) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cacheDir, manifestName), data, 0o644)
}
