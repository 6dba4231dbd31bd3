package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
	handshakeTimeout  = 10 * time.Second
	writeTimeout      = 5 * time.Second
)

var (
	ErrServerDisconnect = errors.New("server disconnected the socket")
	ErrEngineClosed     = errors.New("engine closed by server")
)

// Status is the state of the push channel.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	}
	return "disconnected"
}

// Handler receives the arguments of an event, still JSON-encoded.
type Handler func(args []json.RawMessage)

// StatusFunc is notified on every status change. err is the reason for a
// disconnect, nil otherwise.
type StatusFunc func(s Status, err error)

// Client subscribes to named events on a Socket.IO server and keeps the
// connection alive until its context ends.
type Client struct {
	endpoint   string
	dialer     *websocket.Dialer
	header     http.Header
	log        *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration

	mu       sync.RWMutex
	handlers map[string][]Handler
	watchers []StatusFunc
	status   Status

	writeMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithBackoff bounds the delay between reconnect attempts.
func WithBackoff(lo, hi time.Duration) Option {
	return func(c *Client) {
		c.minBackoff = lo
		c.maxBackoff = hi
	}
}

// WithHeader adds HTTP headers to the websocket handshake.
func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h }
}

// New creates a client for the Socket.IO server at serverURL (http, https,
// ws or wss origin; an optional path is kept as the mount prefix).
func New(serverURL string, opts ...Option) (*Client, error) {
	endpoint, err := Endpoint(serverURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoint:   endpoint,
		dialer:     &websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment},
		log:        zap.NewNop(),
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		handlers:   make(map[string][]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.minBackoff <= 0 {
		c.minBackoff = defaultMinBackoff
	}
	if c.maxBackoff < c.minBackoff {
		c.maxBackoff = c.minBackoff
	}
	return c, nil
}

// Endpoint converts a server URL into the websocket transport URL.
func Endpoint(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parsing socket url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("socket url %q: unsupported scheme", serverURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("socket url %q: missing host", serverURL)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// On registers h for the named event. Handlers run on the read loop and
// must not block.
func (c *Client) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// OnStatus registers fn for status changes.
func (c *Client) OnStatus(fn StatusFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers = append(c.watchers, fn)
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Client) setStatus(s Status, err error) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	watchers := append([]StatusFunc(nil), c.watchers...)
	c.mu.Unlock()

	if !changed && err == nil {
		return
	}
	for _, fn := range watchers {
		fn(s, err)
	}
}

// Run connects and reconnects with capped exponential backoff until ctx is
// done. It always returns ctx's error.
func (c *Client) Run(ctx context.Context) error {
	b := c.newBackOff()
	for {
		c.setStatus(StatusConnecting, nil)
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			c.setStatus(StatusDisconnected, nil)
			return ctx.Err()
		}
		c.setStatus(StatusDisconnected, err)

		if connected {
			b.Reset()
		}
		wait := b.NextBackOff()
		c.log.Warn("push channel lost, reconnecting",
			zap.String("endpoint", c.endpoint),
			zap.Duration("backoff", wait),
			zap.Error(err))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			c.setStatus(StatusDisconnected, nil)
			return ctx.Err()
		case <-t.C:
		}
	}
}

// newBackOff doubles from minBackoff up to maxBackoff and never gives up.
func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.minBackoff
	b.MaxInterval = c.maxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// session runs one connection to completion. connected reports whether the
// namespace handshake succeeded.
func (c *Client) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, c.header)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	hs, err := c.readHandshake(conn)
	if err != nil {
		return false, err
	}
	idle := time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
	if idle <= 0 {
		idle = 45 * time.Second
	}

	if err := c.write(conn, Packet{Type: PacketConnect, Namespace: DefaultNamespace, ID: -1}.Encode()); err != nil {
		return false, err
	}

	for {
		conn.SetReadDeadline(time.Now().Add(idle))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return connected, fmt.Errorf("read: %w", err)
		}

		t, payload, err := SplitEngine(string(data))
		if err != nil {
			c.log.Debug("dropping frame", zap.Error(err))
			continue
		}

		switch t {
		case EnginePing:
			if err := c.write(conn, string(EnginePong)+payload); err != nil {
				return connected, err
			}
		case EngineClose:
			return connected, ErrEngineClosed
		case EngineMessage:
			p, err := DecodePacket(payload)
			if err != nil {
				c.log.Debug("dropping packet", zap.Error(err))
				continue
			}
			if p.Namespace != DefaultNamespace {
				continue
			}
			switch p.Type {
			case PacketConnect:
				if !connected {
					connected = true
					c.log.Info("push channel connected", zap.String("sid", hs.SID))
					c.setStatus(StatusConnected, nil)
				}
			case PacketConnectError:
				return false, connectError(p)
			case PacketDisconnect:
				return connected, ErrServerDisconnect
			case PacketEvent:
				c.dispatch(p)
			}
		}
	}
}

func (c *Client) readHandshake(conn *websocket.Conn) (handshake, error) {
	var hs handshake
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return hs, fmt.Errorf("handshake: %w", err)
	}
	t, payload, err := SplitEngine(string(data))
	if err != nil {
		return hs, fmt.Errorf("handshake: %w", err)
	}
	if t != EngineOpen {
		return hs, fmt.Errorf("handshake: expected open packet, got %q", byte(t))
	}
	if err := json.Unmarshal([]byte(payload), &hs); err != nil {
		return hs, fmt.Errorf("handshake: %w", err)
	}
	return hs, nil
}

func (c *Client) write(conn *websocket.Conn, frame string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *Client) dispatch(p Packet) {
	name, args, err := p.Event()
	if err != nil {
		c.log.Debug("dropping event", zap.Error(err))
		return
	}

	c.mu.RLock()
	handlers := c.handlers[name]
	c.mu.RUnlock()

	c.log.Debug("event", zap.String("name", name), zap.Int("handlers", len(handlers)))
	for _, h := range handlers {
		h(args)
	}
}
