package host

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const probeTimeout = 2 * time.Second

// Detect decides whether a host is present at rawURL. It always returns a
// usable Bridge: a connected Client when the health probe succeeds,
// otherwise Inert together with the reason.
func Detect(ctx context.Context, rawURL string, opts ClientOptions) (Bridge, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Inert{}, fmt.Errorf("no bridge url configured: %w", ErrUnavailable)
	}
	client, err := NewClient(rawURL, opts)
	if err != nil {
		return Inert{}, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := client.Ping(probeCtx); err != nil {
		_ = client.Close()
		return Inert{}, fmt.Errorf("probe %s: %v: %w", client.BaseURL(), err, ErrUnavailable)
	}
	return client, nil
}
