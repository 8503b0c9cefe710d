package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/oakley-srs/oakley/internal/host"
)

const (
	defaultRequestTimeout    = 5 * time.Second
	defaultGenerationTimeout = 90 * time.Second
	defaultBreakerThreshold  = 3
	defaultBreakerCooldown   = 10 * time.Second
)

// Options tune a Gateway. Zero values use defaults.
type Options struct {
	RequestTimeout    time.Duration
	GenerationTimeout time.Duration
	BreakerThreshold  uint32
	BreakerCooldown   time.Duration
	Logger            zerolog.Logger
}

// Gateway issues host commands and classifies their failures.
type Gateway struct {
	bridge     host.Bridge
	breaker    *gobreaker.CircuitBreaker
	timeout    time.Duration
	genTimeout time.Duration
	lists      singleflight.Group
	actions    singleflight.Group
	token      atomic.Uint64
	log        zerolog.Logger
}

// New wraps bridge.
func New(bridge host.Bridge, opts Options) *Gateway {
	if bridge == nil {
		bridge = host.Inert{}
	}
	g := &Gateway{
		bridge:     bridge,
		timeout:    opts.RequestTimeout,
		genTimeout: opts.GenerationTimeout,
		log:        opts.Logger.With().Str("component", "gateway").Logger(),
	}
	if g.timeout <= 0 {
		g.timeout = defaultRequestTimeout
	}
	if g.genTimeout <= 0 {
		g.genTimeout = defaultGenerationTimeout
	}
	threshold := opts.BreakerThreshold
	if threshold == 0 {
		threshold = defaultBreakerThreshold
	}
	cooldown := opts.BreakerCooldown
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "host",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: reachedHost,
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return g
}

// reachedHost reports whether err still proves the host answered. Only
// transport failures count against the breaker.
func reachedHost(err error) bool {
	if err == nil {
		return true
	}
	var rejected *host.CommandError
	if errors.As(err, &rejected) {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// Available reports whether commands can reach a host at all.
func (g *Gateway) Available() bool {
	return g.bridge.Available()
}

// BreakerState exposes the transport breaker state for the status bar.
func (g *Gateway) BreakerState() string {
	return g.breaker.State().String()
}

func (g *Gateway) invoke(ctx context.Context, timeout time.Duration, command string, args, dest any) error {
	if !g.bridge.Available() {
		return host.ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, g.bridge.Invoke(ctx, command, args, dest)
	})
	return err
}

// RequestGeneration asks the host to build a card from text. Each call
// supersedes the previous ones: a response that arrives after a newer request
// was issued returns ErrStale.
func (g *Gateway) RequestGeneration(ctx context.Context, text string) (host.Card, error) {
	token := g.token.Add(1)
	if strings.TrimSpace(text) == "" {
		return host.Card{}, &Error{Op: host.CommandGenerateCard, Kind: ErrGenerationFailed, Err: errors.New("empty text")}
	}

	var card host.Card
	err := g.invoke(ctx, g.genTimeout, host.CommandGenerateCard, host.GenerateArgs{Text: text}, &card)
	if latest := g.token.Load(); latest != token {
		g.log.Debug().Uint64("token", token).Uint64("latest", latest).Msg("dropping superseded generation response")
		return host.Card{}, &Error{Op: host.CommandGenerateCard, Kind: ErrStale, Err: err}
	}
	if err != nil {
		g.log.Warn().Err(err).Msg("generate_card failed")
		return host.Card{}, classify(host.CommandGenerateCard, ErrGenerationFailed, err)
	}
	if card.Tags == nil {
		card.Tags = []string{}
	}
	return card, nil
}

// GenerateFromClipboard reads the clipboard and requests a card from its
// text. A clipboard failure aborts before any command is issued.
func (g *Gateway) GenerateFromClipboard(ctx context.Context, clip Clipboard) (host.Card, error) {
	text, err := ReadClipboard(clip)
	if err != nil {
		g.log.Info().Err(err).Msg("clipboard read failed")
		return host.Card{}, err
	}
	return g.RequestGeneration(ctx, text)
}

// AcceptCard persists card, which must be the edited copy. Concurrent calls
// for the same card id and content share one command; a different edit of
// the same id is sent on its own.
func (g *Gateway) AcceptCard(ctx context.Context, card host.Card) error {
	key := acceptKey(card)
	_, err, shared := g.actions.Do(key, func() (interface{}, error) {
		return nil, g.invoke(ctx, g.timeout, host.CommandAcceptCard, host.AcceptArgs{Card: card.Clone()}, nil)
	})
	if shared {
		g.log.Debug().Int64("card_id", card.ID).Msg("accept coalesced with in-flight call")
	}
	if err != nil {
		g.log.Warn().Err(err).Int64("card_id", card.ID).Msg("accept_card failed")
		return classify(host.CommandAcceptCard, ErrPersistFailed, err)
	}
	return nil
}

// DiscardCard abandons the pending card. Callers treat failure as
// non-fatal. Id 0 marks a card the host could not store, so distinct id 0
// cards are never coalesced.
func (g *Gateway) DiscardCard(ctx context.Context, id int64) error {
	discard := func() (interface{}, error) {
		return nil, g.invoke(ctx, g.timeout, host.CommandDiscardCard, host.DiscardArgs{CardID: id}, nil)
	}
	var err error
	shared := false
	if id == unsavedCardID {
		_, err = discard()
	} else {
		_, err, shared = g.actions.Do(fmt.Sprintf("discard:%d", id), discard)
	}
	if shared {
		g.log.Debug().Int64("card_id", id).Msg("discard coalesced with in-flight call")
	}
	if err != nil {
		g.log.Warn().Err(err).Int64("card_id", id).Msg("discard_card failed")
		return classify(host.CommandDiscardCard, ErrDiscardFailed, err)
	}
	return nil
}

// unsavedCardID is the id the host assigns when its own storage failed.
const unsavedCardID = 0

// acceptKey identifies one logical save: the id plus the edited content.
func acceptKey(card host.Card) string {
	return fmt.Sprintf("accept:%d:%q:%q:%q", card.ID, card.Front, card.Back, card.Tags)
}

// ListCards fetches every stored card. At most one fetch is in flight;
// concurrent callers receive copies of its result.
func (g *Gateway) ListCards(ctx context.Context) ([]host.Card, error) {
	v, err, shared := g.lists.Do(host.CommandListCards, func() (interface{}, error) {
		var cards []host.Card
		if err := g.invoke(ctx, g.timeout, host.CommandListCards, nil, &cards); err != nil {
			return nil, err
		}
		return cards, nil
	})
	if shared {
		g.log.Debug().Msg("list_cards coalesced with in-flight call")
	}
	if err != nil {
		g.log.Warn().Err(err).Msg("list_cards failed")
		return nil, classify(host.CommandListCards, ErrListFetchFailed, err)
	}
	cards, _ := v.([]host.Card)
	return host.CloneCards(cards), nil
}
