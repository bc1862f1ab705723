package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scenecast/director/internal/director"
	"github.com/scenecast/director/internal/engine"
	"github.com/scenecast/director/internal/monitoring"
	"github.com/scenecast/director/internal/timeutil"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans snapshot messages out to all connected websocket clients. Slow
// clients are dropped rather than allowed to stall the broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWebsocket upgrades the request and serves the client until it
// disconnects.
func (h *Hub) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("ws: upgrade: %v", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 8)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(client)

	// Read until the client closes; incoming payloads are ignored but the
	// read is what notices the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(client)
}

func (h *Hub) writeLoop(c *wsClient) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// Broadcast queues a message for every client, dropping clients whose send
// buffer is full.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	stalled := []*wsClient{}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.Unlock()
	for _, c := range stalled {
		monitoring.Logf("ws: dropping stalled client")
		h.drop(c)
	}
}

// snapshotMessage is the websocket wire form of an engine snapshot. The
// point cloud is deliberately excluded: it only changes on scene or
// parameter updates and clients fetch it from /api/points.
type snapshotMessage struct {
	Type           string                  `json:"type"`
	TimestampNs    int64                   `json:"timestamp_ns"`
	Recommendation director.Recommendation `json:"recommendation"`
	Relations      any                     `json:"relations"`
}

// BroadcastSnapshots pushes a message whenever the engine publishes a new
// tick, polling at the given interval. Runs until ctx is cancelled.
func (h *Hub) BroadcastSnapshots(ctx context.Context, e *engine.Engine, clock timeutil.Clock, interval time.Duration) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	var lastTS int64 = -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}
		snap := e.Snapshot()
		if snap.TimestampNanos == lastTS {
			continue
		}
		lastTS = snap.TimestampNanos
		msg, err := json.Marshal(snapshotMessage{
			Type:           "snapshot",
			TimestampNs:    snap.TimestampNanos,
			Recommendation: snap.Recommendation,
			Relations:      relationsJSON(snap)["relations"],
		})
		if err != nil {
			monitoring.Logf("ws: encoding snapshot: %v", err)
			continue
		}
		h.Broadcast(msg)
	}
}
