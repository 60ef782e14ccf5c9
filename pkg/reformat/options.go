package reformat

import (
	"errors"
	"fmt"
	"runtime"

	"cprslicer/pkg/reslice"
	"cprslicer/pkg/sampler"
)

// ErrInvalidOptions reports a configuration that cannot describe a slice grid.
var ErrInvalidOptions = errors.New("invalid reformat options")

// Options is the immutable parameter set of one run. It is passed by value
// and never modified by the engine.
type Options struct {
	// SliceExtent is the half-width and half-height of each slice in pixels.
	SliceExtent [2]int

	// SliceSpacing is the pixel size along the frame normal and binormal.
	SliceSpacing [2]float64

	// SliceThickness is the slab thickness along the tangent; 0 samples
	// the plane only.
	SliceThickness float64

	// ThicknessMode combines slab samples by mean or maximum.
	ThicknessMode reslice.ThicknessMode

	// ThicknessSamples is the number of sub-planes across the slab.
	ThicknessSamples int

	// OffsetPoint is the number of leading path points to skip.
	OffsetPoint int

	// OffsetLine selects the polyline when the path input holds several.
	OffsetLine int

	// ProbeInput enables the secondary output that samples the input
	// volume directly at each path point.
	ProbeInput bool

	// Incidence rotates the initial normal about the first tangent (radians).
	Incidence float64

	// InterpolationMode is clamped to [sampler.Nearest, sampler.Cubic].
	InterpolationMode sampler.Mode

	// Background is returned for samples outside the input volume.
	Background float64

	// Workers bounds the number of goroutines resampling slices. Zero or
	// less means runtime.NumCPU().
	Workers int
}

// DefaultOptions returns a 65×65 nearest-neighbour reslice at unit spacing.
func DefaultOptions() Options {
	return Options{
		SliceExtent:       [2]int{32, 32},
		SliceSpacing:      [2]float64{1, 1},
		ThicknessSamples:  reslice.DefaultThicknessSamples,
		InterpolationMode: sampler.Nearest,
		Workers:           runtime.NumCPU(),
	}
}

// validate rejects grids that cannot be built. Interpolation mode is not
// checked: it clamps.
func (o Options) validate() error {
	if o.SliceExtent[0] < 0 || o.SliceExtent[1] < 0 {
		return fmt.Errorf("%w: negative slice extent %v", ErrInvalidOptions, o.SliceExtent)
	}
	if o.SliceSpacing[0] <= 0 || o.SliceSpacing[1] <= 0 {
		return fmt.Errorf("%w: slice spacing must be positive, got %v", ErrInvalidOptions, o.SliceSpacing)
	}
	if o.SliceThickness < 0 {
		return fmt.Errorf("%w: negative slice thickness %g", ErrInvalidOptions, o.SliceThickness)
	}
	return nil
}

func (o Options) resliceParams() reslice.Params {
	return reslice.Params{
		ExtentX:   o.SliceExtent[0],
		ExtentY:   o.SliceExtent[1],
		SpacingX:  o.SliceSpacing[0],
		SpacingY:  o.SliceSpacing[1],
		Thickness: o.SliceThickness,
		Mode:      o.ThicknessMode,
		Samples:   o.ThicknessSamples,
	}
}

func (o Options) workers(slices int) int {
	n := o.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > slices {
		n = slices
	}
	return n
}
