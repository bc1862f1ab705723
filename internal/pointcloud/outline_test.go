package pointcloud

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
)

// filledBox builds a solid grid of points, one per 0.1-unit voxel cell, with
// n cells per axis.
func filledBox(n int) Cloud {
	c := Cloud{}
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				c.Points = append(c.Points, mgl64.Vec3{
					float64(x)*0.1 + 0.05,
					float64(y)*0.1 + 0.05,
					float64(z)*0.1 + 0.05,
				})
			}
		}
	}
	return c
}

func TestOutline_EmptyCloud(t *testing.T) {
	if segs := Outline(Cloud{}, OutlineParams{}); segs != nil {
		t.Errorf("expected nil for empty cloud, got %d segments", len(segs))
	}
}

func TestOutline_InteriorVoxelsExcluded(t *testing.T) {
	// A 4x4x4 solid box has 64 voxels, 8 interior. Every segment endpoint
	// must come from a boundary voxel.
	c := filledBox(4)
	segs := Outline(c, OutlineParams{CellSize: 0.1})
	if len(segs) == 0 {
		t.Fatal("expected segments for a solid box")
	}
	interior := mgl64.Vec3{0.15, 0.15, 0.15} // representative of voxel (1,1,1)
	for _, s := range segs {
		if s.A == interior || s.B == interior {
			t.Fatalf("segment touches interior voxel: %+v", s)
		}
	}
}

func TestOutline_SegmentsWithinThreshold(t *testing.T) {
	cell := 0.1
	maxDistSq := 4 * cell * cell
	segs := Outline(filledBox(5), OutlineParams{CellSize: cell})
	for _, s := range segs {
		d := s.B.Sub(s.A)
		if got := d.Dot(d); got > maxDistSq+1e-12 {
			t.Fatalf("segment length² %v exceeds threshold %v", got, maxDistSq)
		}
	}
}

func TestOutline_IsolatedVoxelsEmitNothing(t *testing.T) {
	// Two points far apart: both are edge voxels but out of connect range.
	c := Cloud{Points: []mgl64.Vec3{{0, 0, 0}, {10, 10, 10}}}
	if segs := Outline(c, OutlineParams{CellSize: 0.1}); len(segs) != 0 {
		t.Errorf("got %d segments for unconnectable voxels, want 0", len(segs))
	}
}

func TestOutline_AdjacentVoxelsConnected(t *testing.T) {
	c := Cloud{Points: []mgl64.Vec3{{0.05, 0.05, 0.05}, {0.15, 0.05, 0.05}}}
	segs := Outline(c, OutlineParams{CellSize: 0.1})
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	want := Segment{A: mgl64.Vec3{0.05, 0.05, 0.05}, B: mgl64.Vec3{0.15, 0.05, 0.05}}
	if segs[0] != want {
		t.Errorf("segment = %+v, want %+v", segs[0], want)
	}
}

func TestOutline_EdgeVoxelCap(t *testing.T) {
	// Cap the edge voxels hard; segment count is bounded by cap/2.
	segs := Outline(filledBox(10), OutlineParams{CellSize: 0.1, MaxEdgeVoxels: 20})
	if len(segs) > 10 {
		t.Errorf("got %d segments with a 20-voxel cap, want <= 10", len(segs))
	}
}

func TestOutline_Deterministic(t *testing.T) {
	c := filledBox(6)
	params := OutlineParams{CellSize: 0.1, MaxEdgeVoxels: 100}
	a := Outline(c, params)
	b := Outline(c, params)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two runs differ (-first +second):\n%s", diff)
	}
}

func TestOutline_SkipsNonFinitePoints(t *testing.T) {
	c := Cloud{Points: []mgl64.Vec3{
		{0.05, 0.05, 0.05},
		{math.NaN(), 0, 0},
		{0.15, 0.05, 0.05},
	}}
	segs := Outline(c, OutlineParams{CellSize: 0.1})
	if len(segs) != 1 {
		t.Errorf("got %d segments, want 1 (NaN point ignored)", len(segs))
	}
}
