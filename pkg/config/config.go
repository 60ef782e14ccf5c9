// Package config provides configuration loading and management for cprslicer.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"cprslicer/pkg/reformat"
	"cprslicer/pkg/reslice"
	"cprslicer/pkg/sampler"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel reslicing
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Slicer parameters, one per reformation option
	Slicer struct {
		// Extent is the half-width and half-height of each slice in pixels
		Extent [2]int `yaml:"extent"`

		// Spacing is the pixel size along the frame normal and binormal in mm
		Spacing [2]float64 `yaml:"spacing"`

		// Thickness is the slab thickness along the path in mm (0 = single plane)
		Thickness float64 `yaml:"thickness"`

		// ThicknessMode combines slab samples: "mean" or "max"
		ThicknessMode string `yaml:"thicknessMode"`

		// ThicknessSamples is the number of sub-planes across the slab
		ThicknessSamples int `yaml:"thicknessSamples"`

		// OffsetPoint skips this many leading path points
		OffsetPoint int `yaml:"offsetPoint"`

		// OffsetLine selects the polyline of the path file
		OffsetLine int `yaml:"offsetLine"`

		// ProbeInput enables the 1×1×m probe output
		ProbeInput bool `yaml:"probeInput"`

		// Incidence rotates the initial normal about the first tangent, in degrees
		Incidence float64 `yaml:"incidence"`

		// Interpolation is "nearest", "linear" or "cubic"
		Interpolation string `yaml:"interpolation"`

		// Background is the value of samples outside the input volume
		Background float64 `yaml:"background"`
	} `yaml:"slicer"`

	// Input parameters
	Input struct {
		// VolumeDir is the directory holding the input slice images
		VolumeDir string `yaml:"volumeDir"`

		// Spacing is the voxel size of the input volume in mm
		Spacing [3]float64 `yaml:"spacing"`

		// Origin is the world position of voxel (0,0,0)
		Origin [3]float64 `yaml:"origin"`

		// PathFile is the YAML file holding the path polylines
		PathFile string `yaml:"pathFile"`
	} `yaml:"input"`

	// Output parameters
	Output struct {
		// Dir is the directory receiving all outputs
		Dir string `yaml:"dir"`

		// Format is "tiff" for a slice stack or "raw" for a float64 dump
		Format string `yaml:"format"`

		// SaveCPRImages writes the two straightened CPR images next to the volume
		SaveCPRImages bool `yaml:"saveCPRImages"`

		// ExtractSlices saves every plane of the output volume along x, y and z
		ExtractSlices bool `yaml:"extractSlices"`

		// SlicesDir is the directory, below Dir, receiving the extracted planes
		SlicesDir string `yaml:"slicesDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	opts := reformat.DefaultOptions()

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	// Set default slicer parameters
	cfg.Slicer.Extent = opts.SliceExtent
	cfg.Slicer.Spacing = opts.SliceSpacing
	cfg.Slicer.ThicknessMode = reslice.Mean.String()
	cfg.Slicer.ThicknessSamples = opts.ThicknessSamples
	cfg.Slicer.Interpolation = opts.InterpolationMode.String()

	// Set default input parameters
	cfg.Input.Spacing = [3]float64{1, 1, 1}
	cfg.Input.PathFile = "path.yaml"

	// Set default output parameters
	cfg.Output.Dir = "cpr_output"
	cfg.Output.Format = "tiff"
	cfg.Output.SaveCPRImages = true
	cfg.Output.ExtractSlices = false
	cfg.Output.SlicesDir = "slices"
	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks the values that cannot be clamped or defaulted.
func (c *Config) Validate() error {
	var errs []error
	if c.Processing.NumCores < 0 {
		errs = append(errs, fmt.Errorf("processing.numCores must not be negative, got %d", c.Processing.NumCores))
	}
	if c.Slicer.Extent[0] < 0 || c.Slicer.Extent[1] < 0 {
		errs = append(errs, fmt.Errorf("slicer.extent must not be negative, got %v", c.Slicer.Extent))
	}
	if c.Slicer.Spacing[0] <= 0 || c.Slicer.Spacing[1] <= 0 {
		errs = append(errs, fmt.Errorf("slicer.spacing must be positive, got %v", c.Slicer.Spacing))
	}
	if c.Slicer.Thickness < 0 {
		errs = append(errs, fmt.Errorf("slicer.thickness must not be negative, got %g", c.Slicer.Thickness))
	}
	if _, err := reslice.ParseThicknessMode(c.Slicer.ThicknessMode); err != nil {
		errs = append(errs, fmt.Errorf("slicer.thicknessMode: %w", err))
	}
	if _, err := sampler.ParseMode(c.Slicer.Interpolation); err != nil {
		errs = append(errs, fmt.Errorf("slicer.interpolation: %w", err))
	}
	for i, s := range c.Input.Spacing {
		if s <= 0 {
			errs = append(errs, fmt.Errorf("input.spacing[%d] must be positive, got %g", i, s))
		}
	}
	switch c.Output.Format {
	case "tiff", "raw":
	default:
		errs = append(errs, fmt.Errorf("output.format must be tiff or raw, got %q", c.Output.Format))
	}
	return errors.Join(errs...)
}

// Options converts the slicer and processing sections into reformation
// options. Incidence is converted from degrees to radians.
func (c *Config) Options() (reformat.Options, error) {
	if err := c.Validate(); err != nil {
		return reformat.Options{}, err
	}
	mode, _ := sampler.ParseMode(c.Slicer.Interpolation)
	thick, _ := reslice.ParseThicknessMode(c.Slicer.ThicknessMode)

	opts := reformat.DefaultOptions()
	opts.SliceExtent = c.Slicer.Extent
	opts.SliceSpacing = c.Slicer.Spacing
	opts.SliceThickness = c.Slicer.Thickness
	opts.ThicknessMode = thick
	opts.ThicknessSamples = c.Slicer.ThicknessSamples
	opts.OffsetPoint = c.Slicer.OffsetPoint
	opts.OffsetLine = c.Slicer.OffsetLine
	opts.ProbeInput = c.Slicer.ProbeInput
	opts.Incidence = c.Slicer.Incidence * math.Pi / 180
	opts.InterpolationMode = mode
	opts.Background = c.Slicer.Background
	opts.Workers = c.Processing.NumCores
	return opts, nil
}
