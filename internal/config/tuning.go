package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for anchor engine tuning.
// The schema matches the /api/params endpoint so the same JSON can be used
// for both startup configuration and runtime inspection.
type TuningConfig struct {
	// Scanning strategy params
	MinSurfaces          *int     `json:"min_surfaces,omitempty"`
	RequiredCoverage     *float64 `json:"required_coverage,omitempty"`
	MinConfidentSurfaces *int     `json:"min_confident_surfaces,omitempty"`
	SurfaceQualityFloor  *float64 `json:"surface_quality_floor,omitempty"`
	PrecisionMode        *bool    `json:"precision_mode,omitempty"`

	// Placement params
	MaxPlacementDistance *float64 `json:"max_placement_distance,omitempty"`
	MaxVerticalDelta     *float64 `json:"max_vertical_delta,omitempty"`
	AcceptanceThreshold  *float64 `json:"acceptance_threshold,omitempty"`
	HeightKeepTolerance  *float64 `json:"height_keep_tolerance,omitempty"`

	// Retry queue params
	RetryInterval   *string `json:"retry_interval,omitempty"` // duration string like "2s"
	RetryBatch      *int    `json:"retry_batch,omitempty"`
	MaxAttempts     *int    `json:"max_attempts,omitempty"`
	SlowRetryFactor *int    `json:"slow_retry_factor,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath. It searches for the file in the current directory and
// common parent directories. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/relocate/monitor/
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.AcceptanceThreshold != nil {
		if *c.AcceptanceThreshold < 0 || *c.AcceptanceThreshold > 1 {
			return fmt.Errorf("acceptance_threshold must be between 0 and 1, got %f", *c.AcceptanceThreshold)
		}
	}
	if c.SurfaceQualityFloor != nil {
		if *c.SurfaceQualityFloor < 0 || *c.SurfaceQualityFloor > 1 {
			return fmt.Errorf("surface_quality_floor must be between 0 and 1, got %f", *c.SurfaceQualityFloor)
		}
	}
	if c.RetryInterval != nil && *c.RetryInterval != "" {
		if _, err := time.ParseDuration(*c.RetryInterval); err != nil {
			return fmt.Errorf("invalid retry_interval '%s': %w", *c.RetryInterval, err)
		}
	}
	if c.RetryBatch != nil {
		if *c.RetryBatch < 1 {
			return fmt.Errorf("retry_batch must be >= 1, got %d", *c.RetryBatch)
		}
	}
	if c.MinSurfaces != nil {
		if *c.MinSurfaces < 1 {
			return fmt.Errorf("min_surfaces must be >= 1, got %d", *c.MinSurfaces)
		}
	}
	if c.RequiredCoverage != nil {
		if *c.RequiredCoverage <= 0 {
			return fmt.Errorf("required_coverage must be positive, got %f", *c.RequiredCoverage)
		}
	}
	if c.MaxPlacementDistance != nil {
		if *c.MaxPlacementDistance <= 0 {
			return fmt.Errorf("max_placement_distance must be positive, got %f", *c.MaxPlacementDistance)
		}
	}
	return nil
}

// GetMinSurfaces returns the min_surfaces value or the default.
func (c *TuningConfig) GetMinSurfaces() int {
	if c.MinSurfaces == nil {
		return 3
	}
	return *c.MinSurfaces
}

// GetRequiredCoverage returns the required_coverage value (m²) or the default.
func (c *TuningConfig) GetRequiredCoverage() float64 {
	if c.RequiredCoverage == nil {
		return 1.5
	}
	return *c.RequiredCoverage
}

// GetMinConfidentSurfaces returns the min_confident_surfaces value or the default.
func (c *TuningConfig) GetMinConfidentSurfaces() int {
	if c.MinConfidentSurfaces == nil {
		return 2
	}
	return *c.MinConfidentSurfaces
}

// GetSurfaceQualityFloor returns the surface_quality_floor value or the default.
func (c *TuningConfig) GetSurfaceQualityFloor() float64 {
	if c.SurfaceQualityFloor == nil {
		return 0.5
	}
	return *c.SurfaceQualityFloor
}

// GetPrecisionMode returns the precision_mode value or the default.
func (c *TuningConfig) GetPrecisionMode() bool {
	if c.PrecisionMode == nil {
		return false
	}
	return *c.PrecisionMode
}

// GetMaxPlacementDistance returns the max_placement_distance value (meters) or the default.
func (c *TuningConfig) GetMaxPlacementDistance() float64 {
	if c.MaxPlacementDistance == nil {
		return 3.0
	}
	return *c.MaxPlacementDistance
}

// GetMaxVerticalDelta returns the max_vertical_delta value (meters) or the default.
func (c *TuningConfig) GetMaxVerticalDelta() float64 {
	if c.MaxVerticalDelta == nil {
		return 0.5
	}
	return *c.MaxVerticalDelta
}

// GetAcceptanceThreshold returns the acceptance_threshold value or the default.
func (c *TuningConfig) GetAcceptanceThreshold() float64 {
	if c.AcceptanceThreshold == nil {
		return 0.7
	}
	return *c.AcceptanceThreshold
}

// GetHeightKeepTolerance returns the height_keep_tolerance value (meters) or the default.
func (c *TuningConfig) GetHeightKeepTolerance() float64 {
	if c.HeightKeepTolerance == nil {
		return 0.3
	}
	return *c.HeightKeepTolerance
}

// GetRetryInterval parses and returns the RetryInterval as a time.Duration.
func (c *TuningConfig) GetRetryInterval() time.Duration {
	if c.RetryInterval == nil || *c.RetryInterval == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(*c.RetryInterval)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetRetryBatch returns the retry_batch value or the default.
func (c *TuningConfig) GetRetryBatch() int {
	if c.RetryBatch == nil {
		return 3
	}
	return *c.RetryBatch
}

// GetMaxAttempts returns the max_attempts value or the default.
func (c *TuningConfig) GetMaxAttempts() int {
	if c.MaxAttempts == nil {
		return 30
	}
	return *c.MaxAttempts
}

// GetSlowRetryFactor returns the slow_retry_factor value or the default.
// Entries past max_attempts are retried every interval×factor instead of
// being dropped.
func (c *TuningConfig) GetSlowRetryFactor() int {
	if c.SlowRetryFactor == nil {
		return 10
	}
	return *c.SlowRetryFactor
}
