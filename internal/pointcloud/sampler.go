package pointcloud

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Sampler defaults. The thresholds define what counts as an "important"
// point: one that moved or changed color sharply relative to the last kept
// point. Uniform subsampling erases exactly that fine structure, so such
// points are kept regardless of stride.
const (
	DefaultSampleDensity     = 0.5
	DefaultMaxPoints         = 100000
	DefaultPositionThreshold = 0.05
	DefaultColorThreshold    = 0.15
)

// SampleParams control the importance sampler. Zero values fall back to the
// defaults above; MaxPoints must be positive (validated at config load, and
// defensively clamped here so the sampler itself stays total).
type SampleParams struct {
	Density           float64 // target fraction of the input to keep, (0,1]
	MaxPoints         int     // hard cap on output length
	PositionThreshold float64 // metres of displacement that marks a point important
	ColorThreshold    float64 // color-space distance that marks a point important
}

func (p SampleParams) normalize() SampleParams {
	if p.Density <= 0 || p.Density > 1 {
		p.Density = DefaultSampleDensity
	}
	if p.MaxPoints <= 0 {
		p.MaxPoints = DefaultMaxPoints
	}
	if p.PositionThreshold <= 0 {
		p.PositionThreshold = DefaultPositionThreshold
	}
	if p.ColorThreshold <= 0 {
		p.ColorThreshold = DefaultColorThreshold
	}
	return p
}

// Sample reduces the cloud to at most MaxPoints points in a single ordered
// pass, keeping every stride-th point plus any point whose position or color
// differs sharply from the last kept one. A second uniform pass enforces the
// cap when the importance keeps overshoot it; the cap always wins over
// density. Sampling is deterministic: identical input and parameters yield
// the identical output sequence.
func Sample(cloud Cloud, params SampleParams) Cloud {
	params = params.normalize()
	n := cloud.Len()
	if n == 0 {
		return Cloud{}
	}

	stride := int(math.Max(1, math.Floor(1/params.Density)))
	// Cap enforcement takes priority over density.
	if n/stride > params.MaxPoints {
		stride = (n + params.MaxPoints - 1) / params.MaxPoints
	}

	hasColors := cloud.HasColors()
	out := Cloud{Points: make([]mgl64.Vec3, 0, n/stride+1)}
	if hasColors {
		out.Colors = make([]mgl64.Vec3, 0, n/stride+1)
	}

	var lastKept mgl64.Vec3
	var lastColor mgl64.Vec3
	kept := false
	for i := 0; i < n; i++ {
		keep := i%stride == 0
		if !keep && kept {
			if cloud.Points[i].Sub(lastKept).Len() > params.PositionThreshold {
				keep = true
			} else if hasColors && cloud.Colors[i].Sub(lastColor).Len() > params.ColorThreshold {
				keep = true
			}
		}
		if !keep {
			continue
		}
		out.Points = append(out.Points, cloud.Points[i])
		lastKept = cloud.Points[i]
		if hasColors {
			out.Colors = append(out.Colors, cloud.Colors[i])
			lastColor = cloud.Colors[i]
		}
		kept = true
	}

	// Importance keeps can overshoot the cap; resample uniformly over the
	// reduced set. This biases nothing toward the start of the array, unlike
	// truncation.
	if len(out.Points) > params.MaxPoints {
		out = resampleUniform(out, params.MaxPoints)
	}
	return out
}

func resampleUniform(cloud Cloud, maxPoints int) Cloud {
	n := cloud.Len()
	stride := (n + maxPoints - 1) / maxPoints
	out := Cloud{Points: make([]mgl64.Vec3, 0, maxPoints)}
	hasColors := cloud.HasColors()
	if hasColors {
		out.Colors = make([]mgl64.Vec3, 0, maxPoints)
	}
	for i := 0; i < n; i += stride {
		out.Points = append(out.Points, cloud.Points[i])
		if hasColors {
			out.Colors = append(out.Colors, cloud.Colors[i])
		}
	}
	return out
}
