// SPDX-License-Identifier: MPL-2.0

// Package nsp wraps a package file: unpacking it with an extractor tool and
// deriving its title key from the ticket it carries.
package nsp
