package tracking

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scenecast/director/internal/monitoring"
	"github.com/scenecast/director/internal/timeutil"
)

// ConnState is the stream client's connection state. Transitions are
// Disconnected -> Connecting -> Connected -> Disconnected, with
// RetryExhausted as a terminal state once the retry budget is spent.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateRetryExhausted
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRetryExhausted:
		return "retry-exhausted"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// ErrRetryExhausted is returned by Run once every reconnect attempt has
// failed. Callers observing it should fall back to the poll client or the
// synthetic feed rather than expecting further live data.
var ErrRetryExhausted = fmt.Errorf("tracking stream: retry budget exhausted")

// StreamConfig controls reconnect behaviour.
type StreamConfig struct {
	RetryBase  time.Duration // first backoff delay
	RetryGrow  float64       // backoff multiplier per attempt
	MaxRetries int           // reconnect attempts before giving up
}

// DefaultStreamConfig matches the production tracking feed.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		RetryBase:  500 * time.Millisecond,
		RetryGrow:  1.5,
		MaxRetries: 8,
	}
}

// dialer abstracts websocket dialing for tests.
type dialer interface {
	DialContext(ctx context.Context, urlStr string) (wsConn, error)
}

// wsConn is the subset of *websocket.Conn the client uses.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type gorillaDialer struct{}

func (gorillaDialer) DialContext(ctx context.Context, urlStr string) (wsConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, urlStr, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// StreamClient receives push-style tracking updates over a persistent
// websocket connection. Updates are delivered on Updates(); connection state
// changes are observable via State() and an optional OnStateChange callback.
type StreamClient struct {
	url     string
	cfg     StreamConfig
	clock   timeutil.Clock
	dial    dialer
	updates chan Update

	// OnStateChange, when set before Run, is invoked synchronously on every
	// state transition.
	OnStateChange func(ConnState)

	mu    sync.Mutex
	state ConnState
}

// NewStreamClient creates a stream client for the given websocket URL.
func NewStreamClient(url string, cfg StreamConfig, clock timeutil.Clock) *StreamClient {
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = DefaultStreamConfig().RetryBase
	}
	if cfg.RetryGrow < 1 {
		cfg.RetryGrow = DefaultStreamConfig().RetryGrow
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultStreamConfig().MaxRetries
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &StreamClient{
		url:     url,
		cfg:     cfg,
		clock:   clock,
		dial:    gorillaDialer{},
		updates: make(chan Update, 16),
	}
}

// Updates returns the channel on which decoded ticks are delivered. The
// channel is closed when Run returns.
func (c *StreamClient) Updates() <-chan Update { return c.updates }

// State returns the current connection state.
func (c *StreamClient) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *StreamClient) setState(s ConnState) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	cb := c.OnStateChange
	c.mu.Unlock()
	if changed && cb != nil {
		cb(s)
	}
}

// Run connects and pumps updates until ctx is cancelled or the retry budget
// is exhausted. It returns ctx.Err() on cancellation and ErrRetryExhausted
// when reconnecting has failed MaxRetries times in a row.
func (c *StreamClient) Run(ctx context.Context) error {
	defer close(c.updates)

	attempt := 0
	for {
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return ctx.Err()
		}

		c.setState(StateConnecting)
		conn, err := c.dial.DialContext(ctx, c.url)
		if err != nil {
			monitoring.Logf("tracking stream: connect attempt %d failed: %v", attempt+1, err)
			attempt++
			if attempt > c.cfg.MaxRetries {
				c.setState(StateRetryExhausted)
				return ErrRetryExhausted
			}
			c.setState(StateDisconnected)
			if err := c.backoff(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		c.setState(StateConnected)
		attempt = 0
		err = c.pump(ctx, conn)
		conn.Close()
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		monitoring.Logf("tracking stream: connection lost: %v", err)
		attempt++
		if attempt > c.cfg.MaxRetries {
			c.setState(StateRetryExhausted)
			return ErrRetryExhausted
		}
		if err := c.backoff(ctx, attempt); err != nil {
			return err
		}
	}
}

// pump reads messages until the connection errors or ctx is cancelled.
// Malformed messages are logged and skipped; they are transport noise, not
// a reason to tear the connection down.
func (c *StreamClient) pump(ctx context.Context, conn wsConn) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		update, err := ParseUpdate(data)
		if err != nil {
			monitoring.Logf("tracking stream: dropping malformed message: %v", err)
			continue
		}
		select {
		case c.updates <- update:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Consumer is behind; drop the oldest tick in favour of the new
			// one so the view tracks the present.
			select {
			case <-c.updates:
			default:
			}
			c.updates <- update
		}
	}
}

// backoff waits base × grow^(attempt-1), bounded by ctx.
func (c *StreamClient) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(float64(c.cfg.RetryBase) * math.Pow(c.cfg.RetryGrow, float64(attempt-1)))
	select {
	case <-c.clock.After(delay):
		return nil
	case <-ctx.Done():
		c.setState(StateDisconnected)
		return ctx.Err()
	}
}
