// Package gateway wraps every outbound host command.
//
// The gateway is the only place bridge errors are seen. Each one is
// classified into an *Error whose Kind is one of the package sentinels, so
// the session machine only ever deals with ErrBackendUnavailable,
// ErrGenerationFailed, ErrPersistFailed, ErrDiscardFailed,
// ErrListFetchFailed or ErrClipboardUnavailable. The original cause stays in
// the chain for logging.
//
// Duplicate calls are suppressed with singleflight: list_cards is coalesced
// globally and accept/discard per card id. Generation requests carry a
// monotonic token and a response whose token is no longer the newest comes
// back as ErrStale.
//
// A circuit breaker sits in front of the bridge. Transport failures trip it;
// host-side rejections do not, because they prove the host is alive.
package gateway
