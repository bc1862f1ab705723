// Package pointcloud reduces dense reconstructed point clouds to bounded,
// detail-preserving sets for real-time display, and extracts a sparse voxel
// outline of the cloud's silhouette.
package pointcloud

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Cloud is an ordered point set with optional parallel RGB colors in [0,1].
// A Cloud is immutable once loaded; sampling produces a new Cloud.
type Cloud struct {
	Points []mgl64.Vec3
	Colors []mgl64.Vec3
}

// HasColors reports whether the cloud carries a color channel.
func (c Cloud) HasColors() bool { return len(c.Colors) > 0 }

// Len returns the number of points.
func (c Cloud) Len() int { return len(c.Points) }

// Validate checks the parallel-array invariant: colors are either absent or
// exactly one per point.
func (c Cloud) Validate() error {
	if len(c.Colors) != 0 && len(c.Colors) != len(c.Points) {
		return fmt.Errorf("color count %d does not match point count %d", len(c.Colors), len(c.Points))
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of the cloud. ok is false for
// an empty cloud.
func (c Cloud) Bounds() (min, max mgl64.Vec3, ok bool) {
	if len(c.Points) == 0 {
		return min, max, false
	}
	axis := make([]float64, len(c.Points))
	for i := 0; i < 3; i++ {
		for j, p := range c.Points {
			axis[j] = p[i]
		}
		min[i] = floats.Min(axis)
		max[i] = floats.Max(axis)
	}
	return min, max, true
}

// Centroid returns the mean position of the cloud. ok is false for an empty
// cloud.
func (c Cloud) Centroid() (mgl64.Vec3, bool) {
	if len(c.Points) == 0 {
		return mgl64.Vec3{}, false
	}
	var centroid mgl64.Vec3
	axis := make([]float64, len(c.Points))
	for i := 0; i < 3; i++ {
		for j, p := range c.Points {
			axis[j] = p[i]
		}
		centroid[i] = stat.Mean(axis, nil)
	}
	return centroid, true
}
