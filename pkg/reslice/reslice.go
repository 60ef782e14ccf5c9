// Package reslice resamples a volume on the plane of one path frame.
package reslice

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"cprslicer/internal/models"
	"cprslicer/pkg/frame"
)

// DefaultThicknessSamples is the number of sub-planes used across a slab
// when no count is configured.
const DefaultThicknessSamples = 5

// ThicknessMode selects how samples across a slab are combined.
type ThicknessMode int

const (
	// Mean averages the slab (thick-slice reformation).
	Mean ThicknessMode = iota
	// Max keeps the brightest sample (maximum intensity projection).
	Max
)

func (m ThicknessMode) String() string {
	if m == Max {
		return "max"
	}
	return "mean"
}

// ParseThicknessMode parses "mean" or "max" ("mip" is accepted for max).
func ParseThicknessMode(s string) (ThicknessMode, error) {
	switch s {
	case "", "mean", "average":
		return Mean, nil
	case "max", "mip":
		return Max, nil
	}
	return Mean, fmt.Errorf("unknown thickness mode %q (use mean or max)", s)
}

// Source is anything that yields a scalar at a world point.
type Source interface {
	Sample(p r3.Vec) float64
}

// Params describes the sampling grid of one slice.
type Params struct {
	// ExtentX, ExtentY are the half-width and half-height in pixels.
	ExtentX, ExtentY int
	// SpacingX, SpacingY are the pixel sizes along normal and binormal.
	SpacingX, SpacingY float64
	// Thickness is the slab thickness along the tangent; 0 samples the plane only.
	Thickness float64
	Mode      ThicknessMode
	// Samples is the number of sub-planes across the slab, made odd so the
	// central plane is always sampled.
	Samples int
}

// Width returns the number of pixels along the normal.
func (p Params) Width() int { return 2*p.ExtentX + 1 }

// Height returns the number of pixels along the binormal.
func (p Params) Height() int { return 2*p.ExtentY + 1 }

// Resampler builds slices from a shared read-only source. It holds no
// mutable state, so one Resampler can serve many goroutines.
type Resampler struct {
	src     Source
	params  Params
	offsets []float64
}

// New creates a resampler for the given grid.
func New(src Source, params Params) *Resampler {
	return &Resampler{
		src:     src,
		params:  params,
		offsets: slabOffsets(params.Thickness, params.Samples),
	}
}

// Params returns the grid the resampler was built with.
func (r *Resampler) Params() Params { return r.params }

// slabOffsets spreads k offsets evenly over [-t/2, t/2].
func slabOffsets(t float64, k int) []float64 {
	if t <= 0 {
		return []float64{0}
	}
	if k <= 0 {
		k = DefaultThicknessSamples
	}
	if k%2 == 0 {
		k++
	}
	if k == 1 {
		return []float64{0}
	}
	offsets := make([]float64, k)
	for m := range offsets {
		offsets[m] = -t/2 + t*float64(m)/float64(k-1)
	}
	return offsets
}

// Slice resamples the plane of f into a new slice tagged with index.
func (r *Resampler) Slice(f frame.Frame, index int) *models.Slice {
	s := models.NewSlice(r.params.Width(), r.params.Height())
	s.Index = index
	s.Origin = models.Vec3{X: f.Origin.X, Y: f.Origin.Y, Z: f.Origin.Z}
	r.SliceInto(s.Data, f)
	return s
}

// SliceInto writes the slice of f into dst, which must hold Width*Height
// values. Pixel (i, j) with i in [-ex, ex] and j in [-ey, ey] lands at
// dst[(j+ey)*Width + i+ex] and samples origin + i·sx·normal + j·sy·binormal.
func (r *Resampler) SliceInto(dst []float64, f frame.Frame) {
	p := r.params
	w := p.Width()
	du := r3.Scale(p.SpacingX, f.Normal)
	dv := r3.Scale(p.SpacingY, f.Binormal)

	slab := make([]r3.Vec, len(r.offsets))
	for m, o := range r.offsets {
		slab[m] = r3.Scale(o, f.Tangent)
	}

	for j := -p.ExtentY; j <= p.ExtentY; j++ {
		row := r3.Add(f.Origin, r3.Scale(float64(j), dv))
		for i := -p.ExtentX; i <= p.ExtentX; i++ {
			c := r3.Add(row, r3.Scale(float64(i), du))
			dst[(j+p.ExtentY)*w+i+p.ExtentX] = r.combine(c, slab)
		}
	}
}

// combine samples the slab around c and reduces it per thickness mode.
func (r *Resampler) combine(c r3.Vec, slab []r3.Vec) float64 {
	if len(slab) == 1 {
		return r.src.Sample(r3.Add(c, slab[0]))
	}
	if r.params.Mode == Max {
		best := r.src.Sample(r3.Add(c, slab[0]))
		for _, o := range slab[1:] {
			if v := r.src.Sample(r3.Add(c, o)); v > best {
				best = v
			}
		}
		return best
	}
	var sum float64
	for _, o := range slab {
		sum += r.src.Sample(r3.Add(c, o))
	}
	return sum / float64(len(slab))
}
