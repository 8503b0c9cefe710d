package session

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/oakley-srs/oakley/internal/gateway"
	"github.com/oakley-srs/oakley/internal/host"
)

// Transition reasons.
const (
	ReasonHotkey           = host.EventHotkey
	ReasonCardGenerating   = host.EventCardGenerating
	ReasonCardCreated      = host.EventCardCreated
	ReasonUnknownEvent     = "unknown_event"
	ReasonBadPayload       = "bad_payload"
	ReasonGenerateRequest  = "generate_request"
	ReasonGenerateResult   = "generate_result"
	ReasonGenerateFailed   = "generate_failed"
	ReasonGenerateTimeout  = "generate_timeout"
	ReasonEdit             = "edit"
	ReasonSaveStarted      = "save_started"
	ReasonSaved            = "saved"
	ReasonSaveFailed       = "save_failed"
	ReasonDiscardStarted   = "discard_started"
	ReasonDiscarded        = "discarded"
	ReasonDismissed        = "dismissed"
	ReasonStaleResult      = "stale_result"
	ReasonNotApplicable    = "not_applicable"
	ReasonActionInProgress = "action_in_progress"
)

// Machine owns the Session. It is not safe for concurrent use; the UI
// drives it from a single goroutine.
type Machine struct {
	s   Session
	log zerolog.Logger
}

// NewMachine returns a Machine in Idle.
func NewMachine(log zerolog.Logger) *Machine {
	return &Machine{log: log.With().Str("component", "session").Logger()}
}

// Session returns a copy of the current session.
func (m *Machine) Session() Session {
	return m.s.clone()
}

// Phase is shorthand for Session().Phase.
func (m *Machine) Phase() Phase { return m.s.Phase }

// HandleEvent applies a host event. Unknown names and undecodable payloads
// are ignored.
func (m *Machine) HandleEvent(evt host.Event) Transition {
	switch evt.Name {
	case host.EventHotkey, host.EventCardGenerating:
		return m.Start(evt.Name)
	case host.EventCardCreated:
		card, err := evt.DecodeCard()
		if err != nil {
			m.log.Warn().Err(err).Msg("ignoring card_created with bad payload")
			return m.ignore(ReasonBadPayload)
		}
		return m.Ready(card, ReasonCardCreated)
	default:
		m.log.Debug().Str("event", evt.Name).Msg("ignoring unknown event")
		return m.ignore(ReasonUnknownEvent)
	}
}

// Start enters Generating from any phase. A pending review and its pending
// action are abandoned; their late results no longer match the epoch.
// A hotkey or card_generating event while already Generating is a duplicate
// and leaves the in-flight generation alone. Only an explicit request
// restarts it.
func (m *Machine) Start(reason string) Transition {
	from := m.s.Phase
	if from == Generating && (reason == ReasonHotkey || reason == ReasonCardGenerating) {
		m.log.Debug().Str("reason", reason).Uint64("epoch", m.s.Epoch).Msg("ignoring duplicate generation event")
		return m.ignore(reason)
	}
	if from == Reviewing && m.s.Pending != ActionNone {
		m.log.Info().Str("pending", m.s.Pending.String()).Int64("card_id", m.s.Card.ID).Msg("abandoning pending action for new capture")
	}
	m.s = Session{Phase: Generating, Epoch: m.s.Epoch + 1}
	return m.record(from, reason)
}

// Ready enters Reviewing with card from any phase. A card arriving while
// already Reviewing replaces the previous one and resets the draft.
func (m *Machine) Ready(card host.Card, reason string) Transition {
	from := m.s.Phase
	card = card.Clone()
	m.s = Session{
		Phase: Reviewing,
		Card:  card,
		Draft: Draft{Front: card.Front, Back: card.Back},
		Epoch: m.s.Epoch + 1,
	}
	return m.record(from, reason)
}

// Edit replaces the draft. Only valid while Reviewing.
func (m *Machine) Edit(d Draft) Transition {
	if m.s.Phase != Reviewing {
		return m.ignore(ReasonNotApplicable)
	}
	m.s.Draft = d
	return Transition{From: Reviewing, To: Reviewing, Reason: ReasonEdit, Epoch: m.s.Epoch}
}

// ClearNotice drops the current notice.
func (m *Machine) ClearNotice() {
	m.s.Notice = ""
}

// BeginSave marks a save as pending and returns the edited card to send.
// ok is false when not Reviewing or another action is pending.
func (m *Machine) BeginSave() (card host.Card, epoch uint64, ok bool) {
	if m.s.Phase != Reviewing || m.s.Pending != ActionNone {
		return host.Card{}, 0, false
	}
	m.s.Pending = ActionSave
	m.s.Notice = ""
	m.log.Debug().Int64("card_id", m.s.Card.ID).Uint64("epoch", m.s.Epoch).Msg(ReasonSaveStarted)
	return m.s.Edited(), m.s.Epoch, true
}

// SaveResult applies the outcome of the accept command started at epoch.
// Success closes the review; failure keeps it open with the draft intact.
func (m *Machine) SaveResult(epoch uint64, err error) Transition {
	persisted := err == nil
	if !m.current(epoch, ActionSave) {
		m.log.Debug().Err(err).Uint64("epoch", epoch).Msg("ignoring stale save result")
		t := m.ignore(ReasonStaleResult)
		t.Persisted = persisted
		return t
	}
	m.s.Pending = ActionNone
	if err != nil {
		m.s.Notice = gateway.Message(err)
		m.log.Warn().Err(err).Int64("card_id", m.s.Card.ID).Msg("save failed, review kept open")
		return Transition{From: Reviewing, To: Reviewing, Reason: ReasonSaveFailed, Epoch: m.s.Epoch}
	}
	id := m.s.Card.ID
	t := m.close(ReasonSaved)
	t.Persisted = true
	m.log.Info().Int64("card_id", id).Msg("card saved")
	return t
}

// BeginDiscard marks a discard as pending and returns the card id to send.
func (m *Machine) BeginDiscard() (id int64, epoch uint64, ok bool) {
	if m.s.Phase != Reviewing || m.s.Pending != ActionNone {
		return 0, 0, false
	}
	m.s.Pending = ActionDiscard
	m.s.Notice = ""
	m.log.Debug().Int64("card_id", m.s.Card.ID).Uint64("epoch", m.s.Epoch).Msg(ReasonDiscardStarted)
	return m.s.Card.ID, m.s.Epoch, true
}

// DiscardResult closes the review whatever the outcome. Failures are only
// logged.
func (m *Machine) DiscardResult(epoch uint64, err error) Transition {
	if err != nil {
		m.log.Warn().Err(err).Uint64("epoch", epoch).Msg("discard failed")
	}
	if !m.current(epoch, ActionDiscard) {
		return m.ignore(ReasonStaleResult)
	}
	return m.close(ReasonDiscarded)
}

// GenerationResult applies the outcome of a direct generation request
// started at epoch. Stale results and results arriving after the host event
// already delivered a card are ignored.
func (m *Machine) GenerationResult(epoch uint64, card host.Card, err error) Transition {
	if errors.Is(err, gateway.ErrStale) || epoch != m.s.Epoch || m.s.Phase != Generating {
		return m.ignore(ReasonStaleResult)
	}
	if err != nil {
		from := m.s.Phase
		m.s = Session{Phase: Idle, Epoch: m.s.Epoch + 1, Notice: gateway.Message(err)}
		m.log.Warn().Err(err).Msg("generation failed")
		return m.record(from, ReasonGenerateFailed)
	}
	return m.Ready(card, ReasonGenerateResult)
}

// Expire is the generation watchdog: it returns to Idle if the session is
// still Generating at epoch.
func (m *Machine) Expire(epoch uint64) Transition {
	if m.s.Phase != Generating || epoch != m.s.Epoch {
		return m.ignore(ReasonStaleResult)
	}
	m.s = Session{Phase: Idle, Epoch: m.s.Epoch + 1, Notice: "Card generation timed out"}
	m.log.Warn().Msg("generation timed out waiting for card")
	return m.record(Generating, ReasonGenerateTimeout)
}

// Dismiss hides a Generating overlay. A card delivered later still opens a
// review.
func (m *Machine) Dismiss() Transition {
	if m.s.Phase != Generating {
		return m.ignore(ReasonNotApplicable)
	}
	m.s = Session{Phase: Idle, Epoch: m.s.Epoch + 1}
	return m.record(Generating, ReasonDismissed)
}

func (m *Machine) current(epoch uint64, pending Action) bool {
	return m.s.Phase == Reviewing && m.s.Epoch == epoch && m.s.Pending == pending
}

func (m *Machine) close(reason string) Transition {
	notice := ""
	if reason == ReasonSaved {
		notice = "Card saved"
	}
	m.s = Session{Phase: Idle, Epoch: m.s.Epoch + 1, Notice: notice}
	m.log.Debug().Str("from", Reviewing.String()).Str("via", Closed.String()).Str("to", Idle.String()).Str("reason", reason).Msg("session transition")
	return Transition{From: Reviewing, To: Idle, Reason: reason, Epoch: m.s.Epoch, Closed: true}
}

func (m *Machine) record(from Phase, reason string) Transition {
	m.log.Debug().Str("from", from.String()).Str("to", m.s.Phase.String()).Str("reason", reason).Uint64("epoch", m.s.Epoch).Msg("session transition")
	return Transition{From: from, To: m.s.Phase, Reason: reason, Epoch: m.s.Epoch}
}

func (m *Machine) ignore(reason string) Transition {
	return Transition{From: m.s.Phase, To: m.s.Phase, Reason: reason, Epoch: m.s.Epoch, Ignored: true}
}
