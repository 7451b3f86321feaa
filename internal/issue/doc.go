// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the package, unit or tool
// involved, and remediation hints. The Issue catalogue holds longer markdown
// guidance for recurring operator problems, rendered with glamour.
package issue
