package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func testCamera(t *testing.T, pos, dir mgl64.Vec3) Camera {
	t.Helper()
	cam, err := NewCamera("cam-1", pos, dir, 60, 16.0/9.0, 0.1, 100)
	if err != nil {
		t.Fatalf("NewCamera: %v", err)
	}
	return cam
}

func TestNewCamera_RejectsDegenerateDirection(t *testing.T) {
	if _, err := NewCamera("z", mgl64.Vec3{}, mgl64.Vec3{}, 60, 1.7, 0.1, 100); err == nil {
		t.Fatal("expected error for zero direction")
	}
	if _, err := NewCamera("n", mgl64.Vec3{}, mgl64.Vec3{math.NaN(), 0, 0}, 60, 1.7, 0.1, 100); err == nil {
		t.Fatal("expected error for NaN direction")
	}
}

func TestNewCamera_NormalizesDirection(t *testing.T) {
	cam := testCamera(t, mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -3})
	if got := cam.Direction.Len(); math.Abs(got-1) > 1e-12 {
		t.Errorf("direction length = %v, want 1", got)
	}
}

func TestNewCamera_DefaultsBadIntrinsics(t *testing.T) {
	cam, err := NewCamera("d", mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, -5, 0, -1, 0)
	if err != nil {
		t.Fatalf("NewCamera: %v", err)
	}
	if cam.FOVDeg != DefaultFOVDeg || cam.Aspect != DefaultAspect {
		t.Errorf("got fov=%v aspect=%v, want defaults", cam.FOVDeg, cam.Aspect)
	}
	if cam.Near != DefaultNear || cam.Far != DefaultFar {
		t.Errorf("got near=%v far=%v, want defaults", cam.Near, cam.Far)
	}
}

func TestUp_NearVerticalFallback(t *testing.T) {
	horizontal := testCamera(t, mgl64.Vec3{}, mgl64.Vec3{0, 0, -1})
	if horizontal.Up() != (mgl64.Vec3{0, 1, 0}) {
		t.Errorf("horizontal camera up = %v, want +Y", horizontal.Up())
	}
	down := testCamera(t, mgl64.Vec3{0, 10, 0}, mgl64.Vec3{0, -1, 0})
	if down.Up() != (mgl64.Vec3{0, 0, 1}) {
		t.Errorf("downward camera up = %v, want +Z", down.Up())
	}
}

func TestContains(t *testing.T) {
	cam := testCamera(t, mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})
	vp := cam.ViewProjection()

	cases := []struct {
		name string
		p    mgl64.Vec3
		want bool
	}{
		{"centre of view", mgl64.Vec3{0, 0, 0}, true},
		{"behind camera", mgl64.Vec3{0, 0, 10}, false},
		{"beyond far plane", mgl64.Vec3{0, 0, -200}, false},
		{"inside near band", mgl64.Vec3{0, 0, 4.95}, false},
		{"far left of view", mgl64.Vec3{-50, 0, 0}, false},
		{"far above view", mgl64.Vec3{0, 50, 0}, false},
		{"slightly off-centre", mgl64.Vec3{0.5, 0.5, 0}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Contains(vp, tc.p); got != tc.want {
				t.Errorf("Contains(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestContains_NonFiniteInput(t *testing.T) {
	cam := testCamera(t, mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})
	vp := cam.ViewProjection()
	bad := []mgl64.Vec3{
		{math.NaN(), 0, 0},
		{0, math.Inf(1), 0},
		{0, 0, math.Inf(-1)},
	}
	for _, p := range bad {
		if Contains(vp, p) {
			t.Errorf("Contains(%v) = true, want false", p)
		}
	}
}

func TestProjectNDC_CentredSubject(t *testing.T) {
	cam := testCamera(t, mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})
	vp := cam.ViewProjection()

	x, y, ok := ProjectNDC(vp, mgl64.Vec3{0, 0, 0})
	if !ok {
		t.Fatal("expected projection to succeed")
	}
	if math.Abs(x) > 1e-9 || math.Abs(y) > 1e-9 {
		t.Errorf("centred subject projected to (%v, %v), want origin", x, y)
	}

	offset, ok := CenterOffset(vp, mgl64.Vec3{0, 0, 0})
	if !ok || offset > 1e-9 {
		t.Errorf("CenterOffset = %v ok=%v, want 0 true", offset, ok)
	}
}

func TestProjectNDC_BehindCamera(t *testing.T) {
	cam := testCamera(t, mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})
	vp := cam.ViewProjection()
	if _, _, ok := ProjectNDC(vp, mgl64.Vec3{0, 0, 20}); ok {
		t.Error("expected ok=false for point behind camera")
	}
}

func TestProjectNDC_OffCentreHasLargerOffset(t *testing.T) {
	cam := testCamera(t, mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})
	vp := cam.ViewProjection()

	centre, ok := CenterOffset(vp, mgl64.Vec3{0, 0, 0})
	if !ok {
		t.Fatal("centre projection failed")
	}
	edge, ok := CenterOffset(vp, mgl64.Vec3{1.5, 0, 0})
	if !ok {
		t.Fatal("edge projection failed")
	}
	if edge <= centre {
		t.Errorf("edge offset %v not greater than centre offset %v", edge, centre)
	}
}
