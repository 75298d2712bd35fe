// Package wsconn provides a WebSocket client with reconnection, built on
// github.com/coder/websocket.
package wsconn

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/arbitrage-engine/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// MessageHandler receives every data frame read from the connection.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler is notified on every state transition. err is set when the
// transition was caused by a failure.
type StateHandler func(state State, err error)

// Client is a WebSocket client that reconnects with exponential backoff
// after the read loop fails.
type Client struct {
	config Config

	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	stateMu sync.RWMutex
	state   State

	handlerMu     sync.RWMutex
	onMessage     MessageHandler
	onStateChange StateHandler
	onReconnect   func(ctx context.Context) error

	ctx        context.Context
	cancel     context.CancelFunc
	closed     atomic.Bool
	closeOnce  sync.Once
	wg         sync.WaitGroup
	reconnects atomic.Int64
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("websocket url is empty"))
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		config: config,
		state:  StateDisconnected,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// OnMessage sets the handler for incoming messages.
func (c *Client) OnMessage(h MessageHandler) {
	c.handlerMu.Lock()
	c.onMessage = h
	c.handlerMu.Unlock()
}

// OnStateChange sets the handler for state transitions.
func (c *Client) OnStateChange(h StateHandler) {
	c.handlerMu.Lock()
	c.onStateChange = h
	c.handlerMu.Unlock()
}

// OnReconnect sets a hook run after every successful reconnect, typically
// to resubscribe to streams.
func (c *Client) OnReconnect(fn func(ctx context.Context) error) {
	c.handlerMu.Lock()
	c.onReconnect = fn
	c.handlerMu.Unlock()
}

// Connect dials once and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}
	c.setState(StateConnecting, nil)
	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected, err)
		return err
	}
	c.setState(StateConnected, nil)
	c.startLoops()
	return nil
}

// ConnectWithRetry dials until it succeeds, MaxReconnects is exhausted or
// ctx is done.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.config.InitialBackoff
	var lastErr error
	for attempt := 0; c.config.MaxReconnects <= 0 || attempt <= c.config.MaxReconnects; attempt++ {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if c.closed.Load() {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, c.config.MaxBackoff)
	}
	return lastErr
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		return apperror.External(apperror.CodeWebSocketConnectionError, c.config.Name, err)
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

func (c *Client) startLoops() {
	conn := c.currentConn()
	c.wg.Add(1)
	go c.readLoop(conn)
	if c.config.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop(conn)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}
		c.handlerMu.RLock()
		h := c.onMessage
		c.handlerMu.RUnlock()
		if h != nil {
			h(c.ctx, data)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if c.currentConn() != conn {
				return
			}
			pingCtx, cancel := context.WithTimeout(c.ctx, c.config.PongTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				conn.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}

// handleDisconnect runs once per failed connection and starts the reconnect
// loop unless the client was closed.
func (c *Client) handleDisconnect(conn *websocket.Conn, cause error) {
	c.connMu.Lock()
	if c.conn != conn {
		c.connMu.Unlock()
		return
	}
	c.conn = nil
	c.connMu.Unlock()
	conn.CloseNow()

	if c.closed.Load() {
		return
	}
	c.setState(StateReconnecting, cause)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.reconnect()
	}()
}

func (c *Client) reconnect() {
	backoff := c.config.InitialBackoff
	for attempt := 1; c.config.MaxReconnects <= 0 || attempt <= c.config.MaxReconnects; attempt++ {
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(backoff):
		}
		if err := c.dial(c.ctx); err != nil {
			c.setState(StateReconnecting, err)
			backoff = nextBackoff(backoff, c.config.MaxBackoff)
			continue
		}
		c.reconnects.Add(1)
		c.setState(StateConnected, nil)
		c.startLoops()

		c.handlerMu.RLock()
		hook := c.onReconnect
		c.handlerMu.RUnlock()
		if hook != nil {
			if err := hook(c.ctx); err != nil {
				c.setState(StateConnected, err)
			}
		}
		return
	}
	c.setState(StateDisconnected, apperror.New(apperror.CodeWebSocketConnectionError,
		apperror.WithContextf("%s: reconnect attempts exhausted", c.config.Name)))
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	next := cur * 2
	if next > limit {
		return limit
	}
	return next
}

// Send writes a text frame.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	conn := c.currentConn()
	if conn == nil {
		return apperror.New(apperror.CodeWebSocketNotConnected, apperror.WithContext(c.config.Name))
	}
	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return apperror.External(apperror.CodeWebSocketSendError, c.config.Name, err)
	}
	return nil
}

// SendJSON encodes v and writes it as a text frame.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeWebSocketSendError, c.config.Name)
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the client holds a live connection.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Reconnects returns how many times the client has reconnected.
func (c *Client) Reconnects() int64 {
	return c.reconnects.Load()
}

// Close gracefully closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.connMu.Lock()
		conn := c.conn
		c.conn = nil
		c.connMu.Unlock()
		if conn != nil {
			// The peer may already be gone; the handshake result is not actionable.
			_ = conn.Close(websocket.StatusNormalClosure, "closing")
		}
		c.cancel()
		c.wg.Wait()
		c.setState(StateClosed, nil)
	})
	return nil
}

func (c *Client) currentConn() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Client) setState(state State, err error) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()

	c.handlerMu.RLock()
	h := c.onStateChange
	c.handlerMu.RUnlock()
	if h != nil {
		h(state, err)
	}
}
