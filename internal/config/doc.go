// SPDX-License-Identifier: MPL-2.0

// Package config loads the nspatcher configuration.
//
// The configuration file is CUE (config.cue in the platform config directory),
// validated against the embedded #Config schema and merged over built-in
// defaults through viper. The resulting Config is a plain value handed to
// components when they are constructed.
package config
