// Package geom provides the shared camera and frustum model used by the
// scoring and sampling engines. All coordinates are in the reconstruction's
// world frame, metres, right-handed with Y up.
package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CameraID identifies a camera within a scene.
type CameraID string

// Default clip distances applied when the reconstruction export omits them.
const (
	DefaultFOVDeg = 60.0
	DefaultAspect = 16.0 / 9.0
	DefaultNear   = 0.1
	DefaultFar    = 100.0
)

// nearVerticalDot is the |dot(direction, +Y)| threshold beyond which the
// view basis switches to a +Z up vector to avoid a degenerate cross product.
const nearVerticalDot = 0.999

// Camera is a pinhole camera placed in the scene. Direction is always unit
// length; construct cameras through NewCamera so degenerate directions are
// rejected at ingestion rather than surfacing as NaN matrices later.
type Camera struct {
	ID        CameraID
	Position  mgl64.Vec3
	Direction mgl64.Vec3
	FOVDeg    float64
	Aspect    float64
	Near      float64
	Far       float64
}

// NewCamera validates and normalizes the camera parameters. A zero or
// non-finite direction is an error: a camera that points nowhere cannot
// score anything, and silently defaulting the axis would hide bad input.
func NewCamera(id CameraID, position, direction mgl64.Vec3, fovDeg, aspect, near, far float64) (Camera, error) {
	if !VecFinite(position) {
		return Camera{}, fmt.Errorf("camera %s: non-finite position %v", id, position)
	}
	if !VecFinite(direction) {
		return Camera{}, fmt.Errorf("camera %s: non-finite direction %v", id, direction)
	}
	if direction.Len() < 1e-9 {
		return Camera{}, fmt.Errorf("camera %s: zero-length direction", id)
	}
	if fovDeg <= 0 || fovDeg >= 180 {
		fovDeg = DefaultFOVDeg
	}
	if aspect <= 0 {
		aspect = DefaultAspect
	}
	if near <= 0 {
		near = DefaultNear
	}
	if far <= near {
		far = DefaultFar
	}
	return Camera{
		ID:        id,
		Position:  position,
		Direction: direction.Normalize(),
		FOVDeg:    fovDeg,
		Aspect:    aspect,
		Near:      near,
		Far:       far,
	}, nil
}

// Up returns the up vector for the camera's view basis. The world up axis is
// +Y; when the camera looks almost straight up or down the basis falls back
// to +Z so LookAt keeps a valid orthonormal frame.
func (c Camera) Up() mgl64.Vec3 {
	if math.Abs(c.Direction.Y()) > nearVerticalDot {
		return mgl64.Vec3{0, 0, 1}
	}
	return mgl64.Vec3{0, 1, 0}
}

// ViewProjection builds the combined perspective view-projection matrix for
// the camera. Callers that test many points against one camera should build
// this once per tick and reuse it.
func (c Camera) ViewProjection() mgl64.Mat4 {
	proj := mgl64.Perspective(mgl64.DegToRad(c.FOVDeg), c.Aspect, c.Near, c.Far)
	view := mgl64.LookAtV(c.Position, c.Position.Add(c.Direction), c.Up())
	return proj.Mul4(view)
}

// VecFinite reports whether every component of v is a finite number.
func VecFinite(v mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}
