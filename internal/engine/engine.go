// Package engine drives recomputation of the relation table, the sampled
// point set, and the outline on every input change, and publishes the
// results as immutable snapshots.
package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/scenecast/director/internal/config"
	"github.com/scenecast/director/internal/director"
	"github.com/scenecast/director/internal/geom"
	"github.com/scenecast/director/internal/monitoring"
	"github.com/scenecast/director/internal/pointcloud"
	"github.com/scenecast/director/internal/tracking"
)

// Snapshot is one consistent view of every derived output. Snapshots are
// wholesale-replaced, never mutated, so readers need no locking: whatever
// reference they hold stays internally consistent.
type Snapshot struct {
	RunID          string
	TimestampNanos int64

	Relations      *director.Table
	Recommendation director.Recommendation

	SampledPoints pointcloud.Cloud
	Outline       []pointcloud.Segment
}

// CutRecorder persists recommendation changes. The engine only knows this
// interface; storage lives with the caller.
type CutRecorder interface {
	RecordCut(timestampNanos int64, subject director.SubjectID, from, to geom.CameraID, score float64) error
}

// Recompute is the pure core: one call maps the full input set to a full
// snapshot. The live engine caches the point-cloud outputs between scene
// changes; tests and offline tools can call this directly.
func Recompute(cameras []geom.Camera, subjects []director.Subject, cloud pointcloud.Cloud, cfg *config.Config, timestampNanos int64) Snapshot {
	if cfg == nil {
		cfg = config.Empty()
	}
	snap := Snapshot{
		TimestampNanos: timestampNanos,
		SampledPoints:  pointcloud.Sample(cloud, sampleParams(cfg)),
		Outline:        pointcloud.Outline(cloud, outlineParams(cfg)),
	}
	snap.Relations = director.Build(timestampNanos, cameras, subjects, scoreConfig(cfg))
	if primary, ok := snap.Relations.PrimarySubject(); ok {
		snap.Recommendation = snap.Relations.Recommend(primary)
	}
	return snap
}

func scoreConfig(cfg *config.Config) director.ScoreConfig {
	wd, wc, wa := cfg.GetWeights()
	return director.ScoreConfig{
		OptimalDistance: cfg.GetOptimalDistance(),
		Weights:         director.ScoreWeights{Distance: wd, Center: wc, Angle: wa},
		CloseUpMax:      cfg.GetCloseUpMax(),
		MediumMax:       cfg.GetMediumMax(),
	}
}

func sampleParams(cfg *config.Config) pointcloud.SampleParams {
	return pointcloud.SampleParams{
		Density:           cfg.GetSamplingDensity(),
		MaxPoints:         cfg.GetMaxPoints(),
		PositionThreshold: cfg.GetPositionThreshold(),
		ColorThreshold:    cfg.GetColorThreshold(),
	}
}

func outlineParams(cfg *config.Config) pointcloud.OutlineParams {
	return pointcloud.OutlineParams{
		CellSize:      cfg.GetVoxelCellSize(),
		MaxEdgeVoxels: cfg.GetMaxEdgeVoxels(),
	}
}

// Engine owns the live state: the current scene, the scoring configuration,
// and the latest snapshot. Tracking ticks rebuild only the relation table;
// the sampled points and outline are rederived only on scene load or
// parameter change, since the source cloud is static per scene.
type Engine struct {
	runID string

	mu      sync.Mutex
	cfg     *config.Config
	cameras []geom.Camera
	cloud   pointcloud.Cloud
	sampled pointcloud.Cloud
	outline []pointcloud.Segment
	cuts    CutRecorder
	lastRec director.Recommendation

	snapshot atomic.Pointer[Snapshot]
}

// New creates an engine with the given configuration.
func New(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Empty()
	}
	e := &Engine{runID: uuid.NewString(), cfg: cfg}
	e.snapshot.Store(&Snapshot{RunID: e.runID, Relations: director.Build(0, nil, nil, scoreConfig(cfg))})
	return e
}

// RunID identifies this engine session, e.g. in the cut log.
func (e *Engine) RunID() string { return e.runID }

// SetCutRecorder attaches a recorder for recommendation changes.
func (e *Engine) SetCutRecorder(r CutRecorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cuts = r
}

// SetScene installs a new camera set and point cloud, rederiving the
// sampled points and outline once.
func (e *Engine) SetScene(cameras []geom.Camera, cloud pointcloud.Cloud) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cameras = cameras
	e.cloud = cloud
	e.rederiveLocked()
}

// SetConfig replaces the tuning parameters and rederives the point-cloud
// outputs under the new sampling settings.
func (e *Engine) SetConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.rederiveLocked()
}

func (e *Engine) rederiveLocked() {
	e.sampled = pointcloud.Sample(e.cloud, sampleParams(e.cfg))
	e.outline = pointcloud.Outline(e.cloud, outlineParams(e.cfg))

	prev := e.snapshot.Load()
	next := &Snapshot{
		RunID:          e.runID,
		TimestampNanos: prev.TimestampNanos,
		Relations:      prev.Relations,
		Recommendation: prev.Recommendation,
		SampledPoints:  e.sampled,
		Outline:        e.outline,
	}
	e.snapshot.Store(next)
}

// OnTick rebuilds the relation table for one tracking update and publishes
// a new snapshot. The point-cloud outputs are reused untouched.
func (e *Engine) OnTick(u tracking.Update) {
	e.mu.Lock()
	defer e.mu.Unlock()

	table := director.Build(u.TimestampNanos, e.cameras, u.Subjects, scoreConfig(e.cfg))
	var rec director.Recommendation
	if primary, ok := table.PrimarySubject(); ok {
		rec = table.Recommend(primary)
	}

	if e.cuts != nil && recChanged(e.lastRec, rec) {
		if err := e.cuts.RecordCut(u.TimestampNanos, rec.Subject, e.lastRec.Camera, rec.Camera, rec.Score); err != nil {
			monitoring.Logf("engine: recording cut: %v", err)
		}
	}
	e.lastRec = rec

	e.snapshot.Store(&Snapshot{
		RunID:          e.runID,
		TimestampNanos: u.TimestampNanos,
		Relations:      table,
		Recommendation: rec,
		SampledPoints:  e.sampled,
		Outline:        e.outline,
	})
}

func recChanged(prev, next director.Recommendation) bool {
	return prev.OK != next.OK || prev.Camera != next.Camera
}

// Cameras returns a copy of the current camera set.
func (e *Engine) Cameras() []geom.Camera {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]geom.Camera, len(e.cameras))
	copy(out, e.cameras)
	return out
}

// Config returns the active tuning parameters.
func (e *Engine) Config() *config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Snapshot returns the latest published snapshot.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Run consumes tracking updates until the channel closes or ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context, updates <-chan tracking.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			e.OnTick(u)
		}
	}
}
