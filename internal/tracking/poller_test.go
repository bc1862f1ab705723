package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scenecast/director/internal/httputil"
	"github.com/scenecast/director/internal/timeutil"
)

func TestPollClient_Poll(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, `{"timestamp": 3, "subjects": [{"id": "p1", "position": [1,2,3], "direction": [0,0,1]}]}`)

	p := NewPollClient("http://tracker.local/api/subjects", 0, mock, timeutil.RealClock{})
	u, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(u.Subjects) != 1 || u.Subjects[0].ID != "p1" {
		t.Errorf("update = %+v", u)
	}
	if got := mock.GetRequest(0).URL.String(); got != "http://tracker.local/api/subjects" {
		t.Errorf("polled %s", got)
	}
}

func TestPollClient_PollErrors(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*httputil.MockHTTPClient)
	}{
		{"transport error", func(m *httputil.MockHTTPClient) {
			m.AddErrorResponse(errors.New("connection refused"))
		}},
		{"server error", func(m *httputil.MockHTTPClient) {
			m.AddResponse(500, "boom")
		}},
		{"malformed body", func(m *httputil.MockHTTPClient) {
			m.AddResponse(200, "{")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := httputil.NewMockHTTPClient()
			tc.setup(mock)
			p := NewPollClient("http://tracker.local/api/subjects", 0, mock, timeutil.RealClock{})
			if _, err := p.Poll(context.Background()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPollClient_RunDeliversTicks(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	for i := 0; i < 3; i++ {
		mock.AddResponse(200, `{"timestamp": 1, "subjects": []}`)
	}

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	p := NewPollClient("http://tracker.local/api/subjects", 100*time.Millisecond, mock, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Let the ticker register, then advance past one interval.
	deadline := time.Now().Add(2 * time.Second)
	var got bool
	for time.Now().Before(deadline) {
		clock.Advance(100 * time.Millisecond)
		select {
		case <-p.Updates():
			got = true
		case <-time.After(10 * time.Millisecond):
		}
		if got {
			break
		}
	}
	if !got {
		t.Fatal("no update delivered")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
