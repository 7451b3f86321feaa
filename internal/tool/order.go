// SPDX-License-Identifier: MPL-2.0

package tool

import (
	"slices"

	"github.com/nspatcher/nspatcher/internal/config"
	"github.com/nspatcher/nspatcher/pkg/platform"
)

// defaultReaderOrder is the fallback priority of reader tools.
var defaultReaderOrder = []Kind{KindHactoolnet, KindHac2l, KindHactool}

// ReaderOrder returns the reader kinds available on target in fallback
// order. A preferred reader that is available moves to the front.
func ReaderOrder(pref config.ReaderPreference, target platform.Target) []Kind {
	order := make([]Kind, 0, len(defaultReaderOrder))
	for _, k := range defaultReaderOrder {
		if k.Available(target) {
			order = append(order, k)
		}
	}

	if pref == "" || pref == config.ReaderAuto {
		return order
	}
	preferred, err := ParseKind(string(pref))
	if err != nil {
		return order
	}
	if i := slices.Index(order, preferred); i > 0 {
		rest := slices.Delete(slices.Clone(order), i, i+1)
		order = append([]Kind{preferred}, rest...)
	}
	return order
}
