package tracking

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/scenecast/director/internal/httputil"
	"github.com/scenecast/director/internal/monitoring"
	"github.com/scenecast/director/internal/timeutil"
)

// PollClient fetches tracking updates over plain request/response at a fixed
// interval. It is the non-live fallback path when the stream is unavailable.
type PollClient struct {
	url      string
	interval time.Duration
	client   httputil.HTTPClient
	clock    timeutil.Clock
	updates  chan Update
}

// NewPollClient creates a poll client against the given updates URL.
func NewPollClient(url string, interval time.Duration, client httputil.HTTPClient, clock timeutil.Clock) *PollClient {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &PollClient{
		url:      url,
		interval: interval,
		client:   client,
		clock:    clock,
		updates:  make(chan Update, 4),
	}
}

// Updates returns the channel on which polled ticks are delivered. The
// channel is closed when Run returns.
func (p *PollClient) Updates() <-chan Update { return p.updates }

// Poll fetches and decodes a single update.
func (p *PollClient) Poll(ctx context.Context) (Update, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Update{}, fmt.Errorf("building poll request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Update{}, fmt.Errorf("polling tracking endpoint: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Update{}, fmt.Errorf("tracking endpoint returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Update{}, fmt.Errorf("reading poll response: %w", err)
	}
	return ParseUpdate(data)
}

// Run polls at the configured interval until ctx is cancelled. Failed polls
// are logged and skipped; the ticker keeps running so a transient server
// error costs one tick, not the session.
func (p *PollClient) Run(ctx context.Context) error {
	defer close(p.updates)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			update, err := p.Poll(ctx)
			if err != nil {
				monitoring.Logf("tracking poll: %v", err)
				continue
			}
			select {
			case p.updates <- update:
			case <-ctx.Done():
				return ctx.Err()
			default:
				select {
				case <-p.updates:
				default:
				}
				p.updates <- update
			}
		}
	}
}
