package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/oakley-srs/oakley/internal/config"
	"github.com/oakley-srs/oakley/internal/gateway"
	"github.com/oakley-srs/oakley/internal/host"
	"github.com/oakley-srs/oakley/internal/logging"
	"github.com/oakley-srs/oakley/internal/prefs"
	"github.com/oakley-srs/oakley/internal/session"
	"github.com/oakley-srs/oakley/internal/state"
	"github.com/oakley-srs/oakley/internal/subscribe"
	"github.com/oakley-srs/oakley/internal/ui"
)

// Options configure an oakley run. Empty fields fall back to the config
// file, then to defaults.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/oakley/prefs.toml
	BridgeURL  string // overrides bridge.url and OAKLEY_BRIDGE_URL
	LogLevel   string // overrides log.level
}

// Env holds the components shared by the overlay and the one-shot
// commands.
type Env struct {
	Config  config.Config
	Prefs   prefs.Prefs
	Log     zerolog.Logger
	Bridge  host.Bridge
	Gateway *gateway.Gateway
	Store   *state.Store
	Syncer  *state.Syncer

	logFile io.Closer
}

// Setup loads configuration, opens the log and detects the host. A missing
// host is not an error: the Env then carries an inert bridge.
func Setup(ctx context.Context, opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if url := strings.TrimSpace(opts.BridgeURL); url != "" {
		cfg.Bridge.URL = url
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, logFile, err := logging.Open(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	log = log.With().Str("component", "app").Logger()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.Warn().Err(err).Msg("preferences unreadable, using defaults")
		userPrefs = prefs.Prefs{Theme: prefs.DefaultTheme()}
	}

	// The HTTP client timeout is only an upper bound; the gateway applies
	// the shorter request timeout to every command except generation.
	bridge, err := host.Detect(ctx, cfg.Bridge.URL, host.ClientOptions{
		Timeout: cfg.GenerationTimeout(),
		Logger:  log,
	})
	if err != nil {
		log.Warn().Err(err).Str("url", cfg.Bridge.URL).Msg("host not detected, running inert")
	} else {
		log.Info().Str("url", cfg.Bridge.URL).Msg("host detected")
	}

	gw := gateway.New(bridge, gateway.Options{
		RequestTimeout:    cfg.RequestTimeout(),
		GenerationTimeout: cfg.GenerationTimeout(),
		Logger:            log,
	})
	store := &state.Store{}

	return &Env{
		Config:  cfg,
		Prefs:   userPrefs,
		Log:     log,
		Bridge:  bridge,
		Gateway: gw,
		Store:   store,
		Syncer:  state.NewSyncer(store, gw, log),
		logFile: logFile,
	}, nil
}

// Close releases the bridge and the log file.
func (e *Env) Close() error {
	return errors.Join(e.Bridge.Close(), e.logFile.Close())
}

// OverlayStyle is the prefs override when set, else the configured style.
func (e *Env) OverlayStyle() string {
	if e.Prefs.OverlayStyle != "" {
		return e.Prefs.OverlayStyle
	}
	return e.Config.Overlay.Style
}

// Run boots the oakley overlay until the user quits or the context is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	env, err := Setup(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	if env.Bridge.Available() {
		StartPoller(ctx, env.Syncer, env.Config.ResyncInterval(), env.Log)
	}

	label := env.Config.Bridge.URL
	if !env.Bridge.Available() {
		label = "no host"
	}

	err = ui.Run(ui.Options{
		Context:           ctx,
		Machine:           session.NewMachine(env.Log),
		Gateway:           env.Gateway,
		Syncer:            env.Syncer,
		Manager:           subscribe.NewManager(env.Bridge, env.Log),
		Clipboard:         gateway.SystemClipboard{},
		ThemeName:         env.Prefs.Theme,
		OverlayStyle:      env.OverlayStyle(),
		PrefsPath:         opts.PrefsPath,
		GenerationTimeout: env.Config.GenerationTimeout(),
		LogPath:           env.Config.Log.File,
		BridgeLabel:       label,
		Logger:            env.Log,
	})
	env.Log.Info().Err(err).Msg("overlay exited")
	return err
}
