package session

import (
	"github.com/oakley-srs/oakley/internal/host"
)

// Phase is the overlay lifecycle stage.
type Phase int

const (
	Idle Phase = iota
	Generating
	Reviewing
	// Closed is passed through on save or discard and collapses to Idle
	// inside the same transition. A Session never reports it.
	Closed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Generating:
		return "generating"
	case Reviewing:
		return "reviewing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Action is a terminal user action awaiting its command result.
type Action int

const (
	ActionNone Action = iota
	ActionSave
	ActionDiscard
)

func (a Action) String() string {
	switch a {
	case ActionSave:
		return "save"
	case ActionDiscard:
		return "discard"
	default:
		return "none"
	}
}

// Draft is the session-local edit copy of the card text.
type Draft struct {
	Front string
	Back  string
}

// Session is one overlay lifecycle, passed by value to renderers.
type Session struct {
	Phase   Phase
	Card    host.Card // zero unless Reviewing
	Draft   Draft
	Notice  string
	Pending Action
	Epoch   uint64
}

// Visible reports whether the overlay is shown.
func (s Session) Visible() bool {
	return s.Phase == Generating || s.Phase == Reviewing
}

// Edited returns the card with the draft applied. This is what gets saved.
func (s Session) Edited() host.Card {
	card := s.Card.Clone()
	card.Front = s.Draft.Front
	card.Back = s.Draft.Back
	return card
}

// Dirty reports whether the draft differs from the delivered card.
func (s Session) Dirty() bool {
	return s.Phase == Reviewing && (s.Draft.Front != s.Card.Front || s.Draft.Back != s.Card.Back)
}

func (s Session) clone() Session {
	dup := s
	dup.Card = s.Card.Clone()
	return dup
}

// Transition records the outcome of one input.
type Transition struct {
	From   Phase
	To     Phase
	Reason string
	// Epoch is the session epoch after the transition.
	Epoch uint64
	// Closed is set when the review passed through Closed.
	Closed bool
	// Persisted is set whenever an accept command succeeded, even if the
	// session has since moved on.
	Persisted bool
	// Ignored is set when the input changed nothing.
	Ignored bool
}
