// Package config loads oakley's TOML configuration.
//
// # Resolution
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/oakley/config.toml
//  3. If the file doesn't exist, use defaults
//  4. Keys missing from the file keep their defaults
//  5. OAKLEY_BRIDGE_URL, when set, replaces bridge.url
//
// # TOML Format
//
//	[bridge]
//	url = "http://127.0.0.1:1420"   # empty runs an inert shell
//	request_timeout_ms = 5000
//	generation_timeout_ms = 90000
//
//	[log]
//	file = "~/.local/state/oakley/oakley.log"
//	level = "info"                  # trace, debug, info, warn, error
//
//	[overlay]
//	style = "panel"                 # panel, minimal, compact
//
//	[list]
//	resync_seconds = 30             # 0 disables periodic refresh
//
// Strings are trimmed and the log path is tilde-expanded before the result
// is checked with go-playground/validator. Validation errors name the TOML
// key, e.g. `bridge.url: "localhost" is not a valid url`.
//
// Missing config files are NOT an error.
package config
