// Package config loads the director's tuning parameters. The schema matches
// the /api/params endpoint so the same JSON works for startup configuration
// and runtime updates.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Config holds every externally overridable tunable. Fields are pointers so
// a partial JSON file only overrides what it names; the Get* accessors
// supply defaults for the rest.
type Config struct {
	// Point-cloud sampling params
	SamplingDensity   *float64 `json:"sampling_density,omitempty"`
	MaxPoints         *int     `json:"max_points,omitempty"`
	PositionThreshold *float64 `json:"position_threshold,omitempty"`
	ColorThreshold    *float64 `json:"color_threshold,omitempty"`

	// Outline params
	VoxelCellSize *float64 `json:"voxel_cell_size,omitempty"`
	MaxEdgeVoxels *int     `json:"max_edge_voxels,omitempty"`

	// Scoring params
	OptimalDistance *float64 `json:"optimal_distance,omitempty"`
	WeightDistance  *float64 `json:"weight_distance,omitempty"`
	WeightCenter    *float64 `json:"weight_center,omitempty"`
	WeightAngle     *float64 `json:"weight_angle,omitempty"`
	CloseUpMax      *float64 `json:"close_up_max_distance,omitempty"`
	MediumMax       *float64 `json:"medium_max_distance,omitempty"`

	// Tracking feed params
	PollInterval    *string  `json:"poll_interval,omitempty"`     // duration string like "200ms"
	StreamRetryBase *string  `json:"stream_retry_base,omitempty"` // duration string like "500ms"
	StreamRetryGrow *float64 `json:"stream_retry_growth,omitempty"`
	StreamMaxRetry  *int     `json:"stream_max_retries,omitempty"`
}

// Defaults for every tunable.
const (
	DefaultSamplingDensity   = 0.5
	DefaultMaxPoints         = 100000
	DefaultPositionThreshold = 0.05
	DefaultColorThreshold    = 0.15
	DefaultVoxelCellSize     = 0.1
	DefaultMaxEdgeVoxels     = 5000
	DefaultOptimalDistance   = 5.0
	DefaultWeightDistance    = 0.4
	DefaultWeightCenter      = 0.3
	DefaultWeightAngle       = 0.3
	DefaultCloseUpMax        = 3.0
	DefaultMediumMax         = 7.0
	DefaultPollInterval      = 200 * time.Millisecond
	DefaultStreamRetryBase   = 500 * time.Millisecond
	DefaultStreamRetryGrow   = 1.5
	DefaultStreamMaxRetry    = 8
)

// Empty returns a Config with all fields unset.
func Empty() *Config { return &Config{} }

// Load reads and validates a Config from a JSON file. Fields omitted from
// the file keep their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects unrecoverable values at configuration time. Everything
// downstream of here is expected to degrade, not crash, so this is the only
// place that refuses input outright.
func (c *Config) Validate() error {
	if c.SamplingDensity != nil {
		if *c.SamplingDensity <= 0 || *c.SamplingDensity > 1 {
			return fmt.Errorf("sampling_density must be in (0, 1], got %f", *c.SamplingDensity)
		}
	}
	if c.MaxPoints != nil && *c.MaxPoints <= 0 {
		return fmt.Errorf("max_points must be positive, got %d", *c.MaxPoints)
	}
	if c.VoxelCellSize != nil && *c.VoxelCellSize <= 0 {
		return fmt.Errorf("voxel_cell_size must be positive, got %f", *c.VoxelCellSize)
	}
	if c.MaxEdgeVoxels != nil && *c.MaxEdgeVoxels <= 0 {
		return fmt.Errorf("max_edge_voxels must be positive, got %d", *c.MaxEdgeVoxels)
	}
	if c.OptimalDistance != nil && *c.OptimalDistance <= 0 {
		return fmt.Errorf("optimal_distance must be positive, got %f", *c.OptimalDistance)
	}
	if c.WeightDistance != nil || c.WeightCenter != nil || c.WeightAngle != nil {
		if c.WeightDistance == nil || c.WeightCenter == nil || c.WeightAngle == nil {
			return fmt.Errorf("scoring weights must be overridden together")
		}
		sum := *c.WeightDistance + *c.WeightCenter + *c.WeightAngle
		if math.Abs(sum-1) > 1e-6 {
			return fmt.Errorf("scoring weights must sum to 1, got %f", sum)
		}
		if *c.WeightDistance < 0 || *c.WeightCenter < 0 || *c.WeightAngle < 0 {
			return fmt.Errorf("scoring weights must be non-negative")
		}
	}
	if c.CloseUpMax != nil && *c.CloseUpMax <= 0 {
		return fmt.Errorf("close_up_max_distance must be positive, got %f", *c.CloseUpMax)
	}
	if c.MediumMax != nil && c.CloseUpMax != nil && *c.MediumMax <= *c.CloseUpMax {
		return fmt.Errorf("medium_max_distance %f must exceed close_up_max_distance %f", *c.MediumMax, *c.CloseUpMax)
	}
	if c.PollInterval != nil && *c.PollInterval != "" {
		if _, err := time.ParseDuration(*c.PollInterval); err != nil {
			return fmt.Errorf("invalid poll_interval '%s': %w", *c.PollInterval, err)
		}
	}
	if c.StreamRetryBase != nil && *c.StreamRetryBase != "" {
		if _, err := time.ParseDuration(*c.StreamRetryBase); err != nil {
			return fmt.Errorf("invalid stream_retry_base '%s': %w", *c.StreamRetryBase, err)
		}
	}
	if c.StreamRetryGrow != nil && *c.StreamRetryGrow < 1 {
		return fmt.Errorf("stream_retry_growth must be >= 1, got %f", *c.StreamRetryGrow)
	}
	if c.StreamMaxRetry != nil && *c.StreamMaxRetry < 0 {
		return fmt.Errorf("stream_max_retries must be non-negative, got %d", *c.StreamMaxRetry)
	}
	return nil
}

// GetSamplingDensity returns the sampling_density value or the default.
func (c *Config) GetSamplingDensity() float64 {
	if c.SamplingDensity == nil {
		return DefaultSamplingDensity
	}
	return *c.SamplingDensity
}

// GetMaxPoints returns the max_points value or the default.
func (c *Config) GetMaxPoints() int {
	if c.MaxPoints == nil {
		return DefaultMaxPoints
	}
	return *c.MaxPoints
}

// GetPositionThreshold returns the position_threshold value or the default.
func (c *Config) GetPositionThreshold() float64 {
	if c.PositionThreshold == nil {
		return DefaultPositionThreshold
	}
	return *c.PositionThreshold
}

// GetColorThreshold returns the color_threshold value or the default.
func (c *Config) GetColorThreshold() float64 {
	if c.ColorThreshold == nil {
		return DefaultColorThreshold
	}
	return *c.ColorThreshold
}

// GetVoxelCellSize returns the voxel_cell_size value or the default.
func (c *Config) GetVoxelCellSize() float64 {
	if c.VoxelCellSize == nil {
		return DefaultVoxelCellSize
	}
	return *c.VoxelCellSize
}

// GetMaxEdgeVoxels returns the max_edge_voxels value or the default.
func (c *Config) GetMaxEdgeVoxels() int {
	if c.MaxEdgeVoxels == nil {
		return DefaultMaxEdgeVoxels
	}
	return *c.MaxEdgeVoxels
}

// GetOptimalDistance returns the optimal_distance value or the default.
func (c *Config) GetOptimalDistance() float64 {
	if c.OptimalDistance == nil {
		return DefaultOptimalDistance
	}
	return *c.OptimalDistance
}

// GetWeights returns the three scoring weights or the defaults.
func (c *Config) GetWeights() (distance, center, angle float64) {
	if c.WeightDistance == nil || c.WeightCenter == nil || c.WeightAngle == nil {
		return DefaultWeightDistance, DefaultWeightCenter, DefaultWeightAngle
	}
	return *c.WeightDistance, *c.WeightCenter, *c.WeightAngle
}

// GetCloseUpMax returns the close_up_max_distance value or the default.
func (c *Config) GetCloseUpMax() float64 {
	if c.CloseUpMax == nil {
		return DefaultCloseUpMax
	}
	return *c.CloseUpMax
}

// GetMediumMax returns the medium_max_distance value or the default.
func (c *Config) GetMediumMax() float64 {
	if c.MediumMax == nil {
		return DefaultMediumMax
	}
	return *c.MediumMax
}

// GetPollInterval parses and returns the poll_interval as a time.Duration.
func (c *Config) GetPollInterval() time.Duration {
	if c.PollInterval == nil || *c.PollInterval == "" {
		return DefaultPollInterval
	}
	d, err := time.ParseDuration(*c.PollInterval)
	if err != nil {
		return DefaultPollInterval
	}
	return d
}

// GetStreamRetryBase parses and returns the stream_retry_base as a time.Duration.
func (c *Config) GetStreamRetryBase() time.Duration {
	if c.StreamRetryBase == nil || *c.StreamRetryBase == "" {
		return DefaultStreamRetryBase
	}
	d, err := time.ParseDuration(*c.StreamRetryBase)
	if err != nil {
		return DefaultStreamRetryBase
	}
	return d
}

// GetStreamRetryGrow returns the stream_retry_growth value or the default.
func (c *Config) GetStreamRetryGrow() float64 {
	if c.StreamRetryGrow == nil {
		return DefaultStreamRetryGrow
	}
	return *c.StreamRetryGrow
}

// GetStreamMaxRetry returns the stream_max_retries value or the default.
func (c *Config) GetStreamMaxRetry() int {
	if c.StreamMaxRetry == nil {
		return DefaultStreamMaxRetry
	}
	return *c.StreamMaxRetry
}
