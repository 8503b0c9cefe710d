// Package host is the bridge between oakley and the card-generation host
// process.
//
// # Overview
//
// The host owns capture, OCR/LLM generation and storage. oakley only ever
// sees it through two channels:
//
//   - Commands: POST {base}/invoke/{command} with a JSON argument object.
//     A 2xx response carries the JSON result; anything else carries
//     {"error": "..."} and surfaces as *CommandError.
//   - Events: a websocket at {base}/events delivering frames shaped
//     {"event": "card_created", "payload": {...}}.
//
// # Commands
//
//	generate_card {text}      -> Card
//	accept_card   {card}      -> null
//	discard_card  {cardId}    -> null
//	list_cards    {}          -> []Card
//
// # Events
//
//	hotkey, card_generating   no payload, generation started
//	card_created              Card payload
//
// # Event stream
//
// A Client keeps one websocket for all listeners. It is dialled by the first
// Listen call, which blocks until the connection is up, and closed when the
// last listener is removed. Frames are dispatched on a single goroutine in
// arrival order; handlers for the same name run in registration order. When
// the connection drops while listeners remain, it is redialled with capped
// exponential backoff.
//
// # Detection
//
// Detect probes GET {base}/health. An empty address or a failed probe yields
// Inert, which never subscribes and rejects every command with
// ErrUnavailable, so the rest of the application can run as an inert shell
// outside the host.
//
// # Errors
//
//   - *TransportError: the host could not be reached (network, dial).
//   - *CommandError: the host answered and rejected the command.
//   - ErrUnavailable: no bridge present.
package host
