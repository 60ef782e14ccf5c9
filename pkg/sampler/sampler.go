// Package sampler gives interpolated read-only access to a scalar volume at
// arbitrary world coordinates.
//
// The physical extent of a volume runs from the first to the last voxel
// center along each axis. Points outside it sample as the background value
// in every mode; the cubic kernel clamps its neighbourhood to valid indices
// so it never reads past the grid.
package sampler

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"cprslicer/internal/models"
)

// boundsTolerance absorbs rounding when a point lies on the volume boundary.
const boundsTolerance = 1e-9

// Sampler samples one volume with a fixed mode and background value.
// It never mutates the volume and is safe for concurrent use.
type Sampler struct {
	vol        *models.Volume
	mode       Mode
	background float64
}

// New creates a sampler. An out-of-range mode is clamped.
func New(vol *models.Volume, mode Mode, background float64) *Sampler {
	return &Sampler{
		vol:        vol,
		mode:       ClampMode(int(mode)),
		background: background,
	}
}

// Mode returns the interpolation mode in use.
func (s *Sampler) Mode() Mode { return s.mode }

// Background returns the value reported outside the volume.
func (s *Sampler) Background() float64 { return s.background }

// Voxel returns the raw scalar at a voxel index, or the background value
// when the index is outside the grid.
func (s *Sampler) Voxel(x, y, z int) float64 {
	if !s.vol.Contains(x, y, z) {
		return s.background
	}
	return s.vol.At(x, y, z)
}

// Sample returns the interpolated value at world point p.
func (s *Sampler) Sample(p r3.Vec) float64 {
	fx, okx := s.continuous(p.X, s.vol.Origin.X, s.vol.Spacing.X, s.vol.Width)
	fy, oky := s.continuous(p.Y, s.vol.Origin.Y, s.vol.Spacing.Y, s.vol.Height)
	fz, okz := s.continuous(p.Z, s.vol.Origin.Z, s.vol.Spacing.Z, s.vol.Depth)
	if !okx || !oky || !okz {
		return s.background
	}
	switch s.mode {
	case Linear:
		return s.trilinear(fx, fy, fz)
	case Cubic:
		return s.tricubic(fx, fy, fz)
	default:
		return s.nearest(fx, fy, fz)
	}
}

// continuous maps a world coordinate to a continuous voxel index and
// reports whether it lies inside [0, n-1].
func (s *Sampler) continuous(w, origin, spacing float64, n int) (float64, bool) {
	f := (w - origin) / spacing
	if math.IsNaN(f) || f < -boundsTolerance || f > float64(n-1)+boundsTolerance {
		return 0, false
	}
	return math.Min(math.Max(f, 0), float64(n-1)), true
}

func (s *Sampler) nearest(fx, fy, fz float64) float64 {
	return s.vol.At(round(fx), round(fy), round(fz))
}

// round rounds half up, so a point exactly between two centers picks the
// upper voxel.
func round(f float64) int {
	return int(math.Floor(f + 0.5))
}

func (s *Sampler) trilinear(fx, fy, fz float64) float64 {
	x0, x1, tx := cell(fx, s.vol.Width)
	y0, y1, ty := cell(fy, s.vol.Height)
	z0, z1, tz := cell(fz, s.vol.Depth)

	v := s.vol
	c00 := lerp(v.At(x0, y0, z0), v.At(x1, y0, z0), tx)
	c10 := lerp(v.At(x0, y1, z0), v.At(x1, y1, z0), tx)
	c01 := lerp(v.At(x0, y0, z1), v.At(x1, y0, z1), tx)
	c11 := lerp(v.At(x0, y1, z1), v.At(x1, y1, z1), tx)
	return lerp(lerp(c00, c10, ty), lerp(c01, c11, ty), tz)
}

// cell returns the two grid indices enclosing f and the fractional offset
// between them.
func cell(f float64, n int) (int, int, float64) {
	i0 := int(math.Floor(f))
	if i0 >= n-1 {
		return n - 1, n - 1, 0
	}
	return i0, i0 + 1, f - float64(i0)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func (s *Sampler) tricubic(fx, fy, fz float64) float64 {
	ix, wx := kernel(fx, s.vol.Width)
	iy, wy := kernel(fy, s.vol.Height)
	iz, wz := kernel(fz, s.vol.Depth)

	var sum float64
	for c := 0; c < 4; c++ {
		if wz[c] == 0 {
			continue
		}
		var plane float64
		for b := 0; b < 4; b++ {
			if wy[b] == 0 {
				continue
			}
			var row float64
			for a := 0; a < 4; a++ {
				row += wx[a] * s.vol.At(ix[a], iy[b], iz[c])
			}
			plane += wy[b] * row
		}
		sum += wz[c] * plane
	}
	return sum
}

// kernel returns the four neighbour indices around f, clamped to [0, n-1],
// and their Catmull-Rom weights.
func kernel(f float64, n int) ([4]int, [4]float64) {
	i0 := int(math.Floor(f))
	t := f - float64(i0)
	t2 := t * t
	t3 := t2 * t

	w := [4]float64{
		(-t3 + 2*t2 - t) / 2,
		(3*t3 - 5*t2 + 2) / 2,
		(-3*t3 + 4*t2 + t) / 2,
		(t3 - t2) / 2,
	}
	var idx [4]int
	for k := range idx {
		idx[k] = clamp(i0-1+k, 0, n-1)
	}
	return idx, w
}

func clamp(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}
