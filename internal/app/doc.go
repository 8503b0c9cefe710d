// Package app is the composition root for oakley.
//
// # Overview
//
// Setup loads configuration, opens the log file, reads preferences and
// probes the host bridge. The resulting Env carries the gateway, the shared
// card store and its Syncer. Run then starts the background resync poller
// and hands everything to the ui package, blocking until the user quits.
//
// ListCards and Generate reuse the same Env for the one-shot CLI commands.
//
// # Startup
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()     config.toml, env and flag overrides
//	       ├─────> logging.Open()    zerolog file logger
//	       ├─────> prefs.Load()      theme and overlay style
//	       ├─────> host.Detect()     health probe, inert on failure
//	       ├─────> gateway.New()     timeouts and breaker
//	       ├─────> StartPoller()     periodic list resync
//	       └─────> ui.Run()          overlay (blocks)
//
// # Host availability
//
// A missing or unhealthy host is not fatal. Setup logs the probe failure and
// continues with host.Inert: the overlay renders, reports the inert state
// and every command fails with gateway.ErrBackendUnavailable. Invalid
// configuration is the only startup error.
//
// # Resync
//
// The poller refreshes the card list every list.resync_seconds (0 disables
// it). Consecutive failures double the wait up to five minutes; the first
// success restores the configured interval. A failed refresh keeps the last
// good list in the store.
package app
