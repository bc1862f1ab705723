// Package api exposes the director's live state over HTTP: the relation
// table, the current recommendation, the reduced point cloud, and a
// websocket feed of snapshots.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/scenecast/director/internal/config"
	"github.com/scenecast/director/internal/engine"
	"github.com/scenecast/director/internal/geom"
	"github.com/scenecast/director/internal/httputil"
	"github.com/scenecast/director/internal/monitoring"
	"github.com/scenecast/director/internal/store"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	engine *engine.Engine
	cuts   *store.CutLog // nil when cut logging is disabled
	hub    *Hub
}

func NewServer(e *engine.Engine, cuts *store.CutLog) *Server {
	return &Server{
		engine: e,
		cuts:   cuts,
		hub:    NewHub(),
	}
}

// Hub returns the websocket hub so the caller can run its broadcast loop.
func (s *Server) Hub() *Hub { return s.hub }

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.homeHandler)
	mux.HandleFunc("/api/health", s.showHealth)
	mux.HandleFunc("/api/cameras", s.listCameras)
	mux.HandleFunc("/api/relations", s.showRelations)
	mux.HandleFunc("/api/recommendation", s.showRecommendation)
	mux.HandleFunc("/api/points", s.showPoints)
	mux.HandleFunc("/api/outline", s.showOutline)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/cuts", s.listCuts)
	mux.HandleFunc("/ws", s.hub.HandleWebsocket)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "scenecast director\n")
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return false
	}
	return true
}

func (s *Server) showHealth(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	snap := s.engine.Snapshot()
	httputil.WriteJSONOK(w, map[string]any{
		"status":       "ok",
		"run_id":       snap.RunID,
		"timestamp_ns": snap.TimestampNanos,
	})
}

// cameraJSON is the wire form of a scene camera.
type cameraJSON struct {
	ID       geom.CameraID `json:"id"`
	Position [3]float64    `json:"position"`
	Facing   [3]float64    `json:"direction"`
	FOVDeg   float64       `json:"fov_deg"`
	Aspect   float64       `json:"aspect"`
	Near     float64       `json:"near"`
	Far      float64       `json:"far"`
}

func (s *Server) listCameras(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	cams := s.engine.Cameras()
	out := make([]cameraJSON, 0, len(cams))
	for _, c := range cams {
		out = append(out, cameraJSON{
			ID:       c.ID,
			Position: [3]float64{c.Position.X(), c.Position.Y(), c.Position.Z()},
			Facing:   [3]float64{c.Direction.X(), c.Direction.Y(), c.Direction.Z()},
			FOVDeg:   c.FOVDeg,
			Aspect:   c.Aspect,
			Near:     c.Near,
			Far:      c.Far,
		})
	}
	httputil.WriteJSONOK(w, map[string]any{"cameras": out})
}

func (s *Server) showRelations(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	snap := s.engine.Snapshot()
	httputil.WriteJSONOK(w, relationsJSON(snap))
}

func (s *Server) showRecommendation(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	snap := s.engine.Snapshot()
	httputil.WriteJSONOK(w, map[string]any{
		"timestamp_ns":   snap.TimestampNanos,
		"recommendation": snap.Recommendation,
	})
}

func (s *Server) showPoints(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	snap := s.engine.Snapshot()
	httputil.WriteJSONOK(w, map[string]any{
		"count":  snap.SampledPoints.Len(),
		"points": snap.SampledPoints.Points,
		"colors": snap.SampledPoints.Colors,
	})
}

func (s *Server) showOutline(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	snap := s.engine.Snapshot()
	httputil.WriteJSONOK(w, map[string]any{
		"count":    len(snap.Outline),
		"segments": snap.Outline,
	})
}

// handleParams serves the active tuning parameters on GET and applies a
// validated replacement on POST. The POST body uses the same schema as the
// config file, so a saved config can be replayed against a running director.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.engine.Config())
	case http.MethodPost:
		cfg := config.Empty()
		if err := json.NewDecoder(r.Body).Decode(cfg); err != nil {
			httputil.BadRequest(w, "invalid params JSON: "+err.Error())
			return
		}
		if err := cfg.Validate(); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		s.engine.SetConfig(cfg)
		httputil.WriteJSONOK(w, cfg)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) listCuts(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	if s.cuts == nil {
		httputil.NotFound(w, "cut log not enabled")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	cuts, err := s.cuts.RecentCuts(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to retrieve cuts: "+err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"cuts": cuts})
}

// relationsJSON flattens the relation table into a row list, which is easier
// for clients than the keyed map.
func relationsJSON(snap *engine.Snapshot) map[string]any {
	t := snap.Relations
	rows := make([]any, 0, len(t.Relations))
	for _, subject := range t.Subjects() {
		for _, rel := range t.ForSubject(subject) {
			rows = append(rows, rel)
		}
	}
	counts := make(map[geom.CameraID]int, len(t.Cameras()))
	for _, cam := range t.Cameras() {
		counts[cam] = t.VisibleSubjectCount(cam)
	}
	return map[string]any{
		"timestamp_ns":   snap.TimestampNanos,
		"subjects":       t.Subjects(),
		"cameras":        t.Cameras(),
		"relations":      rows,
		"visible_counts": counts,
	}
}
