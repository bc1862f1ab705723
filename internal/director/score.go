// Package director builds the per-tick camera/subject relation table and the
// best-camera recommendation that drives the operator UI.
package director

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/scenecast/director/internal/geom"
)

// SubjectID identifies a tracked subject.
type SubjectID string

// Subject is one tracked target for a single tick. The tracking collaborator
// owns and rewrites these; the director only reads them.
type Subject struct {
	ID        SubjectID
	Position  mgl64.Vec3
	Direction mgl64.Vec3 // facing direction, need not be unit length
	Velocity  mgl64.Vec3 // optional, zero when the tracker does not report it
	Height    float64    // optional bounding size, 0 when unknown
}

// ShotType is a coarse framing classification derived from distance.
type ShotType string

const (
	ShotCloseUp ShotType = "close-up"
	ShotMedium  ShotType = "medium"
	ShotWide    ShotType = "wide"
)

// ScoreWeights are the composite-score weights. They must sum to 1.
type ScoreWeights struct {
	Distance float64
	Center   float64
	Angle    float64
}

// DefaultScoreWeights mirror the tuned production values: distance dominates,
// framing and facing split the remainder.
var DefaultScoreWeights = ScoreWeights{Distance: 0.4, Center: 0.3, Angle: 0.3}

// ScoreConfig carries every scoring tunable. Zero-valued fields are replaced
// by defaults in normalize, so an empty ScoreConfig is usable in tests.
type ScoreConfig struct {
	OptimalDistance float64
	Weights         ScoreWeights
	CloseUpMax      float64 // distances below this are close-ups
	MediumMax       float64 // distances below this (and above CloseUpMax) are medium
}

// Scoring defaults.
const (
	DefaultOptimalDistance = 5.0
	DefaultCloseUpMax      = 3.0
	DefaultMediumMax       = 7.0
)

func (c ScoreConfig) normalize() ScoreConfig {
	if c.OptimalDistance <= 0 {
		c.OptimalDistance = DefaultOptimalDistance
	}
	if c.Weights == (ScoreWeights{}) {
		c.Weights = DefaultScoreWeights
	}
	if c.CloseUpMax <= 0 {
		c.CloseUpMax = DefaultCloseUpMax
	}
	if c.MediumMax <= c.CloseUpMax {
		c.MediumMax = DefaultMediumMax
	}
	return c
}

// Relation is the scored pairing of one camera and one subject for the
// current tick. All scores are on a 0-1 scale. An invisible pair still
// carries distance and sub-scores for diagnostics but is excluded from
// recommendation.
type Relation struct {
	Subject SubjectID     `json:"subject_id"`
	Camera  geom.CameraID `json:"camera_id"`

	Visible      bool     `json:"is_visible"`
	Distance     float64  `json:"distance"`
	CenterOffset float64  `json:"center_offset"`
	Shot         ShotType `json:"shot_type"`

	DistanceScore float64 `json:"distance_score"`
	CenterScore   float64 `json:"center_score"`
	AngleScore    float64 `json:"angle_score"`
	Score         float64 `json:"score"`
}

// Score evaluates one camera/subject pair. It is total over well-formed
// input and degrades to an invisible zero-score relation on malformed input
// (NaN positions, zero facing vectors) so one bad tracking frame cannot take
// the pipeline down.
func Score(cam geom.Camera, subj Subject, cfg ScoreConfig) Relation {
	cfg = cfg.normalize()
	rel := Relation{Subject: subj.ID, Camera: cam.ID}

	if !geom.VecFinite(subj.Position) || !geom.VecFinite(subj.Direction) {
		return rel
	}

	toSubject := subj.Position.Sub(cam.Position)
	rel.Distance = toSubject.Len()
	rel.Shot = classifyShot(rel.Distance, cfg)
	rel.DistanceScore = distanceScore(rel.Distance, cfg.OptimalDistance)
	rel.AngleScore = angleScore(subj.Direction, toSubject)

	vp := cam.ViewProjection()
	rel.Visible = geom.Contains(vp, subj.Position)
	if offset, ok := geom.CenterOffset(vp, subj.Position); ok {
		rel.CenterOffset = offset
		rel.CenterScore = 1 - math.Min(1, offset)
	}

	w := cfg.Weights
	rel.Score = w.Distance*rel.DistanceScore + w.Center*rel.CenterScore + w.Angle*rel.AngleScore
	return rel
}

// distanceScore peaks at the optimal distance and decays linearly to zero as
// the distance diverges by a full optimal-distance span.
func distanceScore(distance, optimal float64) float64 {
	return 1 - math.Min(1, math.Abs(distance-optimal)/optimal)
}

// angleScore is the cosine between the subject's facing direction and the
// camera-to-subject ray, remapped from [-1,1] to [0,1]. A camera looking at
// the subject's front scores 1; a camera behind the subject scores 0.
func angleScore(facing, camToSubject mgl64.Vec3) float64 {
	fl := facing.Len()
	cl := camToSubject.Len()
	if fl < 1e-9 || cl < 1e-9 {
		return 0.5 // no usable facing information: neutral
	}
	dot := facing.Mul(1 / fl).Dot(camToSubject.Mul(-1 / cl))
	return dot*0.5 + 0.5
}

func classifyShot(distance float64, cfg ScoreConfig) ShotType {
	switch {
	case distance < cfg.CloseUpMax:
		return ShotCloseUp
	case distance < cfg.MediumMax:
		return ShotMedium
	default:
		return ShotWide
	}
}
