package host

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event names emitted by the host process.
const (
	EventHotkey         = "hotkey"
	EventCardGenerating = "card_generating"
	EventCardCreated    = "card_created"
)

// Command names understood by the host process.
const (
	CommandGenerateCard = "generate_card"
	CommandAcceptCard   = "accept_card"
	CommandDiscardCard  = "discard_card"
	CommandListCards    = "list_cards"
)

// Card mirrors the card payload exchanged with the host.
type Card struct {
	ID    int64    `json:"id"`
	Front string   `json:"front"`
	Back  string   `json:"back"`
	Tags  []string `json:"tags"`
}

// Clone returns a copy that shares no memory with c.
func (c Card) Clone() Card {
	dup := c
	dup.Tags = make([]string, len(c.Tags))
	copy(dup.Tags, c.Tags)
	return dup
}

// CloneCards deep-copies a card slice. Nil and empty inputs return nil.
func CloneCards(cards []Card) []Card {
	if len(cards) == 0 {
		return nil
	}
	dup := make([]Card, len(cards))
	for i, c := range cards {
		dup[i] = c.Clone()
	}
	return dup
}

// Event is a single frame from the host event stream.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeCard decodes the payload of a card_created event.
func (e Event) DecodeCard() (Card, error) {
	if len(e.Payload) == 0 || strings.TrimSpace(string(e.Payload)) == "null" {
		return Card{}, fmt.Errorf("%s: empty payload", e.Name)
	}
	var card Card
	if err := json.Unmarshal(e.Payload, &card); err != nil {
		return Card{}, fmt.Errorf("%s: decode payload: %w", e.Name, err)
	}
	if card.Tags == nil {
		card.Tags = []string{}
	}
	return card, nil
}

// NewCardEvent builds a card_created event; used by tests and fakes.
func NewCardEvent(card Card) Event {
	raw, _ := json.Marshal(card)
	return Event{Name: EventCardCreated, Payload: raw}
}

// GenerateArgs is the argument object of generate_card.
type GenerateArgs struct {
	Text string `json:"text"`
}

// AcceptArgs is the argument object of accept_card.
type AcceptArgs struct {
	Card Card `json:"card"`
}

// DiscardArgs is the argument object of discard_card.
type DiscardArgs struct {
	CardID int64 `json:"cardId"`
}

type errorResponse struct {
	Error string `json:"error"`
}
