package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenecast/director/internal/timeutil"
)

// fakeConn replays a fixed message script, then fails.
type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return 0, nil, errors.New("connection reset")
	}
	msg := c.messages[0]
	c.messages = c.messages[1:]
	return 1, msg, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// fakeDialer returns each scripted result in turn, then repeats the last.
type fakeDialer struct {
	mu    sync.Mutex
	conns []wsConn
	errs  []error
	dials int
}

func (d *fakeDialer) DialContext(ctx context.Context, url string) (wsConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.dials
	if i >= len(d.conns) {
		i = len(d.conns) - 1
	}
	d.dials++
	if d.errs[i] != nil {
		return nil, d.errs[i]
	}
	return d.conns[i], nil
}

func newTestClient(d dialer) (*StreamClient, *[]ConnState) {
	c := NewStreamClient("ws://tracker.local/ws", StreamConfig{
		RetryBase:  time.Millisecond,
		RetryGrow:  1.5,
		MaxRetries: 3,
	}, timeutil.RealClock{})
	c.dial = d

	var mu sync.Mutex
	states := &[]ConnState{}
	c.OnStateChange = func(s ConnState) {
		mu.Lock()
		*states = append(*states, s)
		mu.Unlock()
	}
	return c, states
}

func TestStreamClient_DeliversUpdates(t *testing.T) {
	conn := &fakeConn{messages: [][]byte{
		[]byte(`{"timestamp": 1, "subjects": [{"id": "p1", "position": [0,0,0], "direction": [0,0,1]}]}`),
		[]byte(`not json`),
		[]byte(`{"timestamp": 2, "subjects": [{"id": "p1", "position": [1,0,0], "direction": [0,0,1]}]}`),
	}}
	dialErr := errors.New("refused")
	d := &fakeDialer{conns: []wsConn{conn, nil}, errs: []error{nil, dialErr}}
	c, _ := newTestClient(d)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Two well-formed messages arrive; the malformed one is skipped.
	u1 := <-c.Updates()
	require.Len(t, u1.Subjects, 1)
	assert.Equal(t, int64(time.Second), u1.TimestampNanos)
	u2 := <-c.Updates()
	assert.Equal(t, 2*int64(time.Second), u2.TimestampNanos)

	// After the connection dies and every reconnect fails, Run exits with
	// the retry budget spent.
	err := <-done
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, StateRetryExhausted, c.State())
	assert.True(t, conn.closed)
}

func TestStreamClient_RetryExhaustedWithoutEverConnecting(t *testing.T) {
	dialErr := errors.New("refused")
	d := &fakeDialer{conns: []wsConn{nil}, errs: []error{dialErr}}
	c, states := newTestClient(d)

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrRetryExhausted)

	// MaxRetries=3 allows the initial attempt plus three retries.
	assert.Equal(t, 4, d.dials)
	assert.Equal(t, StateRetryExhausted, (*states)[len(*states)-1])
	for _, s := range *states {
		assert.NotEqual(t, StateConnected, s, "client never connected")
	}
}

func TestStreamClient_ContextCancellation(t *testing.T) {
	// A connection that never produces data: ReadMessage blocks forever.
	blockingConn := &blockedConn{release: make(chan struct{})}
	d := &fakeDialer{conns: []wsConn{blockingConn}, errs: []error{nil}}
	c, _ := newTestClient(d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Wait for the connect, then cancel.
	waitForState(t, c, StateConnected)
	cancel()
	close(blockingConn.release)

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateDisconnected, c.State())
}

type blockedConn struct {
	release chan struct{}
}

func (c *blockedConn) ReadMessage() (int, []byte, error) {
	<-c.release
	return 0, nil, errors.New("closed")
}

func (c *blockedConn) Close() error { return nil }

func waitForState(t *testing.T, c *StreamClient, want ConnState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("client never reached state %v (currently %v)", want, c.State())
}

func TestConnState_String(t *testing.T) {
	cases := map[ConnState]string{
		StateDisconnected:   "disconnected",
		StateConnecting:     "connecting",
		StateConnected:      "connected",
		StateRetryExhausted: "retry-exhausted",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}
