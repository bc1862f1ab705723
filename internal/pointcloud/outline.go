package pointcloud

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Outline defaults.
const (
	DefaultVoxelCellSize = 0.1
	DefaultMaxEdgeVoxels = 5000
)

// OutlineParams control voxel outline extraction. The connect radius is
// fixed at 2×cellSize (squared threshold 4×cellSize²) so segments never span
// more than two cells diagonally.
type OutlineParams struct {
	CellSize      float64 // voxel edge length
	MaxEdgeVoxels int     // edge voxels retained after uniform subsampling
}

func (p OutlineParams) normalize() OutlineParams {
	if p.CellSize <= 0 {
		p.CellSize = DefaultVoxelCellSize
	}
	if p.MaxEdgeVoxels <= 0 {
		p.MaxEdgeVoxels = DefaultMaxEdgeVoxels
	}
	return p
}

// Segment is one outline line segment, consumed directly by the renderer.
type Segment struct {
	A mgl64.Vec3 `json:"a"`
	B mgl64.Vec3 `json:"b"`
}

// voxelKey is an integer grid coordinate at a fixed cell size.
type voxelKey struct {
	X, Y, Z int32
}

// voxel holds one representative point (the first point quantized into the
// cell) and the cell's occupancy count. Voxels exist only during extraction.
type voxel struct {
	rep   mgl64.Vec3
	count int
}

// Outline derives a sparse wireframe skeleton of the cloud:
// quantize points into a voxel grid, keep voxels with at least one empty
// 6-neighbor (the cloud's boundary), uniformly subsample those to
// MaxEdgeVoxels, then greedily stitch each unconnected voxel to its nearest
// unconnected neighbor within the connect radius. Voxels with no neighbor in
// range stay unconnected and emit nothing.
func Outline(cloud Cloud, params OutlineParams) []Segment {
	params = params.normalize()
	if cloud.Len() == 0 {
		return nil
	}

	grid := make(map[voxelKey]*voxel, cloud.Len()/4)
	for _, p := range cloud.Points {
		if !finite(p) {
			continue
		}
		k := quantize(p, params.CellSize)
		if v, ok := grid[k]; ok {
			v.count++
		} else {
			grid[k] = &voxel{rep: p, count: 1}
		}
	}

	edges := edgeVoxels(grid)
	edges = subsampleKeys(edges, params.MaxEdgeVoxels)
	return stitch(edges, grid, params.CellSize)
}

func finite(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(p[i]) || math.IsInf(p[i], 0) {
			return false
		}
	}
	return true
}

func quantize(p mgl64.Vec3, cell float64) voxelKey {
	return voxelKey{
		X: int32(math.Floor(p.X() / cell)),
		Y: int32(math.Floor(p.Y() / cell)),
		Z: int32(math.Floor(p.Z() / cell)),
	}
}

// edgeVoxels returns, in deterministic grid order, every voxel with at least
// one unoccupied axis-aligned neighbor.
func edgeVoxels(grid map[voxelKey]*voxel) []voxelKey {
	neighbors := [6]voxelKey{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
	}
	edges := make([]voxelKey, 0, len(grid))
	for k := range grid {
		for _, d := range neighbors {
			nk := voxelKey{X: k.X + d.X, Y: k.Y + d.Y, Z: k.Z + d.Z}
			if _, ok := grid[nk]; !ok {
				edges = append(edges, k)
				break
			}
		}
	}
	// Map iteration is randomized; sort so extraction is deterministic.
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return edges
}

func subsampleKeys(keys []voxelKey, max int) []voxelKey {
	if len(keys) <= max {
		return keys
	}
	stride := (len(keys) + max - 1) / max
	out := make([]voxelKey, 0, max)
	for i := 0; i < len(keys); i += stride {
		out = append(out, keys[i])
	}
	return out
}

// stitch pairs each not-yet-connected voxel with its nearest not-yet-
// connected neighbor within the squared threshold 4×cellSize². This is a
// greedy nearest-neighbor pass, not a spanning tree: isolated voxels simply
// emit no segment.
func stitch(edges []voxelKey, grid map[voxelKey]*voxel, cell float64) []Segment {
	maxDistSq := 4 * cell * cell
	connected := make([]bool, len(edges))
	segments := make([]Segment, 0, len(edges)/2)

	for i := range edges {
		if connected[i] {
			continue
		}
		a := grid[edges[i]].rep
		best := -1
		bestDistSq := 0.0
		for j := i + 1; j < len(edges); j++ {
			if connected[j] {
				continue
			}
			d := grid[edges[j]].rep.Sub(a)
			distSq := d.Dot(d)
			if distSq > maxDistSq {
				continue
			}
			if best == -1 || distSq < bestDistSq {
				best = j
				bestDistSq = distSq
			}
		}
		if best >= 0 {
			segments = append(segments, Segment{A: a, B: grid[edges[best]].rep})
			connected[i] = true
			connected[best] = true
		}
	}
	return segments
}
