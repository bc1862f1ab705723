package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Contains reports whether the world-space point lies inside the camera's
// view frustum. The test is performed in clip space: after multiplying by
// the view-projection matrix the point is inside when -w <= x,y,z <= w with
// w > 0, which covers all six planes at once. Non-finite input is never
// inside; the function is side-effect free and never panics.
func Contains(vp mgl64.Mat4, p mgl64.Vec3) bool {
	if !VecFinite(p) {
		return false
	}
	clip := vp.Mul4x1(mgl64.Vec4{p.X(), p.Y(), p.Z(), 1})
	w := clip.W()
	if math.IsNaN(w) || w <= 0 {
		return false
	}
	for i := 0; i < 3; i++ {
		if math.IsNaN(clip[i]) || clip[i] < -w || clip[i] > w {
			return false
		}
	}
	return true
}

// ProjectNDC projects a world-space point to normalized device coordinates.
// The returned x and y are in [-1,1] when the point is on screen. ok is
// false when the point is behind the camera or the input is degenerate; the
// coordinates are meaningless in that case.
func ProjectNDC(vp mgl64.Mat4, p mgl64.Vec3) (x, y float64, ok bool) {
	if !VecFinite(p) {
		return 0, 0, false
	}
	clip := vp.Mul4x1(mgl64.Vec4{p.X(), p.Y(), p.Z(), 1})
	w := clip.W()
	if math.IsNaN(w) || w <= 1e-12 {
		return 0, 0, false
	}
	x = clip.X() / w
	y = clip.Y() / w
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, false
	}
	return x, y, true
}

// CenterOffset returns the distance of the projected point from the frame
// centre in NDC units, or ok=false when the point does not project.
func CenterOffset(vp mgl64.Mat4, p mgl64.Vec3) (offset float64, ok bool) {
	x, y, ok := ProjectNDC(vp, p)
	if !ok {
		return 0, false
	}
	return math.Hypot(x, y), true
}
