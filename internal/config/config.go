package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is oakley's runtime configuration.
type Config struct {
	Bridge  BridgeConfig  `toml:"bridge"`
	Log     LogConfig     `toml:"log"`
	Overlay OverlayConfig `toml:"overlay"`
	List    ListConfig    `toml:"list"`

	// Path is the resolved config file location, whether or not it exists.
	Path string `toml:"-"`
}

// BridgeConfig locates the host process.
type BridgeConfig struct {
	// URL of the host bridge. Empty runs oakley as an inert shell.
	URL                 string `toml:"url" validate:"omitempty,url"`
	RequestTimeoutMS    int    `toml:"request_timeout_ms" validate:"gte=100,lte=60000"`
	GenerationTimeoutMS int    `toml:"generation_timeout_ms" validate:"gte=1000,lte=600000"`
}

// LogConfig controls the oakley log file.
type LogConfig struct {
	File  string `toml:"file" validate:"required"`
	Level string `toml:"level" validate:"oneof=trace debug info warn error"`
}

// OverlayConfig selects the review overlay look.
type OverlayConfig struct {
	Style string `toml:"style" validate:"oneof=panel minimal compact"`
}

// ListConfig controls the card list resync.
type ListConfig struct {
	// ResyncSeconds is the periodic refresh interval; 0 disables it.
	ResyncSeconds int `toml:"resync_seconds" validate:"gte=0,lte=3600"`
}

const (
	defaultConfigPath        = "~/.config/oakley/config.toml"
	defaultBridgeURL         = "http://127.0.0.1:1420"
	defaultRequestTimeoutMS  = 5000
	defaultGenerationTimeout = 90000
	defaultLogFile           = "~/.local/state/oakley/oakley.log"
	defaultLogLevel          = "info"
	defaultOverlayStyle      = "panel"
	defaultResyncSeconds     = 30

	// EnvBridgeURL overrides bridge.url when set.
	EnvBridgeURL = "OAKLEY_BRIDGE_URL"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Bridge: BridgeConfig{
			URL:                 defaultBridgeURL,
			RequestTimeoutMS:    defaultRequestTimeoutMS,
			GenerationTimeoutMS: defaultGenerationTimeout,
		},
		Log:     LogConfig{File: defaultLogFile, Level: defaultLogLevel},
		Overlay: OverlayConfig{Style: defaultOverlayStyle},
		List:    ListConfig{ResyncSeconds: defaultResyncSeconds},
	}
}

// Load reads the config at path (or the default location), falling back to
// defaults when the file is missing. Keys absent from the file keep their
// defaults.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.Path = resolved

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if env, ok := os.LookupEnv(EnvBridgeURL); ok {
		cfg.Bridge.URL = env
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Bridge.URL = strings.TrimSpace(c.Bridge.URL)

	c.Log.File = strings.TrimSpace(c.Log.File)
	if c.Log.File == "" {
		c.Log.File = defaultLogFile
	}
	c.Log.File = mustExpand(c.Log.File)

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}

	c.Overlay.Style = strings.ToLower(strings.TrimSpace(c.Overlay.Style))
	if c.Overlay.Style == "" {
		c.Overlay.Style = defaultOverlayStyle
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "url":
		return fmt.Sprintf("%s: %q is not a valid url", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s: %q must be one of [%s]", field, fe.Value(), fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s: %v is out of range (%s %s)", field, fe.Value(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s", field, fe.Tag())
	}
}

// RequestTimeout is the per-command timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Bridge.RequestTimeoutMS) * time.Millisecond
}

// GenerationTimeout bounds both the generate_card command and how long the
// overlay waits in Generating for a card.
func (c Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Bridge.GenerationTimeoutMS) * time.Millisecond
}

// ResyncInterval is the periodic list refresh interval; zero disables it.
func (c Config) ResyncInterval() time.Duration {
	return time.Duration(c.List.ResyncSeconds) * time.Second
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
