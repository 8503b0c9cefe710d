package host

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	reconnectBase = 500 * time.Millisecond
	reconnectMax  = 15 * time.Second
)

// stream is the single websocket shared by every listener of a Client.
type stream struct {
	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{}
	err    error // first dial error; read after ready is closed
	done   chan struct{}
}

// Listen registers h for name. The first listener opens the event stream and
// Listen returns once the stream is connected, so events emitted after
// Listen returns are not missed.
func (c *Client) Listen(ctx context.Context, name string, h Handler) (Unlisten, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if h == nil {
		return nil, fmt.Errorf("listen %s: nil handler", name)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrUnavailable
	}
	c.nextID++
	id := c.nextID
	set, ok := c.listeners[name]
	if !ok {
		set = make(map[uint64]Handler)
		c.listeners[name] = set
	}
	set[id] = h
	s := c.stream
	if s == nil {
		s = c.startStream()
	}
	c.mu.Unlock()

	var once sync.Once
	unlisten := func() {
		once.Do(func() { c.removeListener(name, id) })
	}

	select {
	case <-s.ready:
		if s.err != nil {
			unlisten()
			return nil, &TransportError{Op: "listen " + name, Err: s.err}
		}
	case <-ctx.Done():
		unlisten()
		return nil, ctx.Err()
	}
	return unlisten, nil
}

// ListenerCount reports how many listeners are registered for name.
func (c *Client) ListenerCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners[name])
}

// startStream must be called with c.mu held.
func (c *Client) startStream() *stream {
	ctx, cancel := context.WithCancel(context.Background())
	s := &stream{
		ctx:    ctx,
		cancel: cancel,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.stream = s
	go c.runStream(s)
	return s
}

func (c *Client) removeListener(name string, id uint64) {
	c.mu.Lock()
	if set, ok := c.listeners[name]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(c.listeners, name)
		}
	}
	var idle *stream
	if len(c.listeners) == 0 && c.stream != nil {
		idle = c.stream
		c.stream = nil
	}
	c.mu.Unlock()
	if idle != nil {
		idle.cancel()
	}
}

func (c *Client) runStream(s *stream) {
	defer close(s.done)

	conn, err := c.dial(s.ctx)
	if err != nil {
		s.err = err
		c.mu.Lock()
		if c.stream == s {
			c.stream = nil
		}
		c.mu.Unlock()
		close(s.ready)
		return
	}
	close(s.ready)
	c.log.Debug().Str("url", c.eventsURL()).Msg("event stream connected")

	failures := 0
	for {
		err := c.readEvents(s.ctx, conn)
		_ = conn.Close()
		if s.ctx.Err() != nil {
			return
		}
		c.log.Warn().Err(err).Msg("event stream dropped")

		for {
			failures++
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(reconnectDelay(failures)):
			}
			conn, err = c.dial(s.ctx)
			if err == nil {
				c.log.Info().Int("attempts", failures).Msg("event stream reconnected")
				failures = 0
				break
			}
			c.log.Debug().Err(err).Int("attempt", failures).Msg("event stream redial failed")
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("User-Agent", c.userAgent)
	conn, resp, err := c.dialer.DialContext(ctx, c.eventsURL(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial events: %w", err)
	}
	return conn, nil
}

// readEvents dispatches frames until the connection breaks or ctx ends. A
// frame that does not decode is dropped; the connection stays up.
func (c *Client) readEvents(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			c.log.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed event frame")
			continue
		}
		if evt.Name == "" {
			c.log.Debug().Msg("dropping unnamed event frame")
			continue
		}
		c.dispatch(evt)
	}
}

func (c *Client) dispatch(evt Event) {
	c.mu.Lock()
	set := c.listeners[evt.Name]
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, set[id])
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
}

func reconnectDelay(failures int) time.Duration {
	if failures <= 0 {
		return reconnectBase
	}
	delay := reconnectBase
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= reconnectMax {
			return reconnectMax
		}
	}
	return delay
}
