// SPDX-License-Identifier: MPL-2.0

// Package config loads modkit configuration using Viper with CUE as the file
// format.
//
// Values are layered: built-in defaults, then a modkit.cue file (the --config
// path, else ./modkit.cue, else modkit.cue in the user config directory),
// then MODKIT_* environment variables. The file is validated against the
// embedded config_schema.cue before it is merged.
package config
