// SPDX-License-Identifier: MPL-2.0

// Package convert turns cartridge images into packages with the converter tool.
package convert
