package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultBridgeURL = "http://127.0.0.1:1420"
	defaultUserAgent = "oakley/0.1"
	requestTimeout   = 5 * time.Second
	maxErrorBody     = 64 << 10
)

// ClientOptions tune a Client. Zero values use defaults.
type ClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	Logger    zerolog.Logger
}

// Client talks to the host over HTTP (commands) and a websocket (events).
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	dialer    *websocket.Dialer
	userAgent string
	log       zerolog.Logger

	mu        sync.Mutex
	listeners map[string]map[uint64]Handler
	nextID    uint64
	stream    *stream
	closed    bool
}

var _ Bridge = (*Client)(nil)

// NewClient builds a Client for the host listening at rawURL.
func NewClient(rawURL string, opts ClientOptions) (*Client, error) {
	base, err := parseBaseURL(rawURL)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = requestTimeout
	}
	agent := strings.TrimSpace(opts.UserAgent)
	if agent == "" {
		agent = defaultUserAgent
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: timeout},
		dialer:    &websocket.Dialer{HandshakeTimeout: timeout},
		userAgent: agent,
		log:       opts.Logger.With().Str("component", "host").Logger(),
		listeners: make(map[string]map[uint64]Handler),
	}, nil
}

// BaseURL returns the normalized host address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Available always reports true; Detect only returns a Client after a
// successful probe.
func (c *Client) Available() bool { return c != nil }

// Ping probes the host health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	req, err := c.newRequest(ctx, http.MethodGet, &url.URL{Path: "/health"}, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "ping", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("health returned status %d", resp.StatusCode)
	}
	return nil
}

// Invoke posts args to /invoke/{command} and decodes the JSON result.
func (c *Client) Invoke(ctx context.Context, command string, args, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("command name required")
	}
	body := []byte("{}")
	if args != nil {
		encoded, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encode %s args: %w", command, err)
		}
		body = encoded
	}

	req, err := c.newRequest(ctx, http.MethodPost, &url.URL{Path: "/invoke/" + command}, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "invoke " + command, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var payload errorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&payload)
		return &CommandError{Command: command, Status: resp.StatusCode, Message: strings.TrimSpace(payload.Error)}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", command, err)
	}
	return nil
}

// Close stops the event stream and rejects further listeners.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	s := c.stream
	c.stream = nil
	c.listeners = make(map[string]map[uint64]Handler)
	c.mu.Unlock()
	if s != nil {
		s.cancel()
		<-s.done
	}
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, rel *url.URL, body io.Reader) (*http.Request, error) {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) eventsURL() string {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/events"
	return u.String()
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBridgeURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse bridge url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse bridge url %q: unsupported scheme %q", raw, u.Scheme)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
