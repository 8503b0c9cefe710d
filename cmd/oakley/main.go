package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/oakley-srs/oakley/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCommand(os.Stdout, stdoutIsTerminal)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "oakley: %v\n", err)
		return 1
	}
	return 0
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// newRootCommand builds the oakley CLI. The bare command opens the overlay;
// list and generate talk to the host without it.
func newRootCommand(out io.Writer, isTerminal func() bool) *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:   "oakley",
		Short: "Flashcard capture overlay",
		Long: `oakley turns copied text into flashcards.

Press ctrl+g in the overlay to generate a card from the clipboard, review
and edit it, then save or discard it. The host process does the generation
and storage; without one oakley starts inert.

Examples:
  oakley                              # Open the overlay
  oakley --bridge 127.0.0.1:1420      # Use a specific host
  oakley list --filter mito           # Print stored cards
  oakley generate --text "ATP" --accept`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal() {
				return fmt.Errorf("the overlay needs a terminal; use 'oakley list' or 'oakley generate' instead")
			}
			return app.Run(cmd.Context(), opts)
		},
	}
	root.SetOut(out)
	bindGlobalFlags(root.PersistentFlags(), &opts)

	root.AddCommand(newListCommand(&opts), newGenerateCommand(&opts))
	return root
}

func bindGlobalFlags(fs *pflag.FlagSet, opts *app.Options) {
	fs.StringVar(&opts.ConfigPath, "config", "", "config file (default is ~/.config/oakley/config.toml)")
	fs.StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default is ~/.config/oakley/prefs.toml)")
	fs.StringVar(&opts.BridgeURL, "bridge", "", "host bridge URL, overrides bridge.url")
	fs.StringVar(&opts.LogLevel, "log-level", "", "log level: trace, debug, info, warn or error")
}

func newListCommand(opts *app.Options) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the stored cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.ListCards(cmd.Context(), *opts, cmd.OutOrStdout(), filter)
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "fuzzy filter over front, back and tags")
	return cmd
}

func newGenerateCommand(opts *app.Options) *cobra.Command {
	var gen app.GenerateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one card from text or the clipboard",
		Long: `Generate asks the host for a card and prints it. The card is discarded
unless --accept is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Generate(cmd.Context(), *opts, gen, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&gen.Text, "text", "t", "", "source text (default is the clipboard)")
	cmd.Flags().BoolVar(&gen.Accept, "accept", false, "save the generated card")
	return cmd
}
