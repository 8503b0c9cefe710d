package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/oakley-srs/oakley/internal/gateway"
	"github.com/oakley-srs/oakley/internal/host"
	"github.com/oakley-srs/oakley/internal/ui"
)

// ListCards prints the host's cards, optionally narrowed by a fuzzy filter.
func ListCards(ctx context.Context, opts Options, w io.Writer, filter string) error {
	env, err := Setup(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	if err := env.Syncer.Refresh(ctx); err != nil {
		return err
	}
	cards := ui.FilterCards(env.Store.Snapshot().Cards, filter)
	return writeCards(w, cards)
}

func writeCards(w io.Writer, cards []host.Card) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFRONT\tBACK\tTAGS")
	for _, c := range cards {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, flatten(c.Front), flatten(c.Back), strings.Join(c.Tags, ","))
	}
	return tw.Flush()
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// GenerateOptions control a one-shot generation.
type GenerateOptions struct {
	// Text is the source material; empty reads the system clipboard.
	Text string
	// Accept saves the card instead of discarding it after printing.
	Accept bool
}

// Generate asks the host for a card, prints it and then accepts or discards
// it.
func Generate(ctx context.Context, opts Options, gen GenerateOptions, w io.Writer) error {
	env, err := Setup(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	var card host.Card
	if strings.TrimSpace(gen.Text) != "" {
		card, err = env.Gateway.RequestGeneration(ctx, gen.Text)
	} else {
		card, err = env.Gateway.GenerateFromClipboard(ctx, gateway.SystemClipboard{})
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Card #%d\nFront: %s\nBack:  %s\n", card.ID, card.Front, card.Back)
	if len(card.Tags) > 0 {
		fmt.Fprintf(w, "Tags:  %s\n", strings.Join(card.Tags, ", "))
	}

	if gen.Accept {
		if err := env.Gateway.AcceptCard(ctx, card); err != nil {
			return err
		}
		fmt.Fprintln(w, "saved")
		return nil
	}
	if err := env.Gateway.DiscardCard(ctx, card.ID); err != nil {
		return err
	}
	fmt.Fprintln(w, "discarded")
	return nil
}
