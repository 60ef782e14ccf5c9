// Package frame computes a rotation-minimizing orthonormal frame at every
// point of a polyline.
//
// Frames are propagated with the double-reflection method: the previous
// basis is reflected through the plane bisecting the segment, then through
// the plane bisecting the reflected and the new tangent. Unlike a
// Frenet-Serret frame it needs no curvature, so straight runs and
// inflection points neither flip nor twist the slice orientation.
package frame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"cprslicer/internal/logging"
)

// ErrDegenerateSegment reports two consecutive coincident path points.
// Compute recovers from it by reusing the previous tangent; it is only
// returned when no segment of the path has a length.
var ErrDegenerateSegment = errors.New("degenerate path segment")

// eps is the squared length under which a segment or vector counts as zero.
const eps = 1e-20

// Points is the read-only view of a path that frames are computed on.
type Points interface {
	Len() int
	At(i int) r3.Vec
}

// Frame is the local right-handed basis of one path point.
// Binormal is always Tangent × Normal.
type Frame struct {
	Origin   r3.Vec
	Tangent  r3.Vec
	Normal   r3.Vec
	Binormal r3.Vec
}

// Compute returns one frame per point of p. The seed normal is rotated by
// incidence radians about the first tangent; the rotation is carried along
// by propagation and not applied again.
func Compute(p Points, incidence float64) ([]Frame, error) {
	n := p.Len()
	if n == 0 {
		return nil, nil
	}
	if n == 1 {
		return nil, fmt.Errorf("%w: a single point has no direction", ErrDegenerateSegment)
	}

	tangents, err := tangents(p)
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, n)
	t0 := tangents[0]
	n0 := r3.Rotate(seedNormal(t0), incidence, t0)
	frames[0] = orthonormalize(p.At(0), t0, n0)

	for i := 1; i < n; i++ {
		prev := frames[i-1]
		normal := reflect(prev, p.At(i-1), p.At(i), tangents[i])
		frames[i] = orthonormalize(p.At(i), tangents[i], normal)
	}

	if log := logging.Logger(); log.Enabled(context.Background(), slog.LevelDebug) {
		for i := range frames {
			log.Debug("frame", "index", i, "drift", frames[i].Orthonormality())
		}
	}
	return frames, nil
}

// tangents computes the unit tangent of every point: the segment direction
// at both ends, the normalized mean of incoming and outgoing directions in
// between. Zero-length segments are skipped and logged.
func tangents(p Points) ([]r3.Vec, error) {
	n := p.Len()
	seg := make([]r3.Vec, n-1)
	ok := make([]bool, n-1)
	first := -1
	log := logging.Logger()
	for i := range seg {
		d := r3.Sub(p.At(i+1), p.At(i))
		if r3.Norm2(d) <= eps {
			log.Warn("reusing previous tangent", "error", ErrDegenerateSegment, "segment", i)
			continue
		}
		seg[i] = r3.Unit(d)
		ok[i] = true
		if first < 0 {
			first = i
		}
	}
	if first < 0 {
		return nil, fmt.Errorf("%w: all %d points coincide", ErrDegenerateSegment, n)
	}

	out := make([]r3.Vec, n)
	for i := range out {
		in := i > 0 && ok[i-1]
		next := i < n-1 && ok[i]
		switch {
		case in && next:
			sum := r3.Add(seg[i-1], seg[i])
			if r3.Norm2(sum) <= 1e-12 {
				// The path doubles back on itself; keep the outgoing direction.
				out[i] = seg[i]
			} else {
				out[i] = r3.Unit(sum)
			}
		case in:
			out[i] = seg[i-1]
		case next:
			out[i] = seg[i]
		case i == 0:
			out[i] = seg[first]
		default:
			out[i] = out[i-1]
		}
	}
	return out, nil
}

// seedNormal returns a unit vector orthogonal to t, built from the world
// axis along which t has its smallest component.
func seedNormal(t r3.Vec) r3.Vec {
	axis := r3.Vec{X: 1}
	ax, ay, az := math.Abs(t.X), math.Abs(t.Y), math.Abs(t.Z)
	switch {
	case ay < ax && ay <= az:
		axis = r3.Vec{Y: 1}
	case az < ax && az < ay:
		axis = r3.Vec{Z: 1}
	}
	return r3.Unit(r3.Sub(axis, r3.Scale(r3.Dot(axis, t), t)))
}

// reflect transports the normal of prev from x0 to x1, where the new
// tangent is t1 (double reflection). Both reflections are always applied
// so the transport stays a proper rotation. A zero-length segment is
// reflected through the plane normal to the previous tangent, and when the
// reflected tangent already equals t1 the second plane is chosen to contain
// t1.
func reflect(prev Frame, x0, x1, t1 r3.Vec) r3.Vec {
	r, t := prev.Normal, prev.Tangent

	v1 := r3.Sub(x1, x0)
	if r3.Norm2(v1) <= eps {
		v1 = t
	}
	r = mirror(r, v1)
	tL := mirror(t, v1)

	v2 := r3.Sub(t1, tL)
	if r3.Norm2(v2) <= eps {
		v2 = r3.Sub(v1, r3.Scale(r3.Dot(v1, t1), t1))
		if r3.Norm2(v2) <= eps {
			return r
		}
	}
	return mirror(r, v2)
}

// mirror reflects p through the plane through the origin normal to v.
func mirror(p, v r3.Vec) r3.Vec {
	return r3.Sub(p, r3.Scale(2*r3.Dot(v, p)/r3.Norm2(v), v))
}

// orthonormalize rebuilds an exact right-handed basis from t and an
// approximate normal, suppressing accumulated rounding drift.
func orthonormalize(origin, t, normal r3.Vec) Frame {
	t = r3.Unit(t)
	normal = r3.Sub(normal, r3.Scale(r3.Dot(normal, t), t))
	if r3.Norm2(normal) <= eps {
		normal = seedNormal(t)
	}
	normal = r3.Unit(normal)
	return Frame{
		Origin:   origin,
		Tangent:  t,
		Normal:   normal,
		Binormal: r3.Cross(t, normal),
	}
}

// Axes returns the 3×3 direction cosine matrix of the slice plane. Its
// columns are Normal, Binormal and Tangent.
func (f Frame) Axes() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		f.Normal.X, f.Binormal.X, f.Tangent.X,
		f.Normal.Y, f.Binormal.Y, f.Tangent.Y,
		f.Normal.Z, f.Binormal.Z, f.Tangent.Z,
	})
}

// Orthonormality returns the infinity norm of AᵀA − I for the frame axes A.
// It is zero for an exact orthonormal basis.
func (f Frame) Orthonormality() float64 {
	a := f.Axes()
	var d mat.Dense
	d.Mul(a.T(), a)
	d.Sub(&d, mat.NewDiagDense(3, []float64{1, 1, 1}))
	return mat.Norm(&d, math.Inf(1))
}
