package frame

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

// points adapts a plain slice to the Points interface
type points []r3.Vec

func (p points) Len() int        { return len(p) }
func (p points) At(i int) r3.Vec { return p[i] }

func helix(n int) points {
	p := make(points, n)
	for i := range p {
		a := float64(i) * 0.2
		p[i] = r3.Vec{X: 5 * math.Cos(a), Y: 5 * math.Sin(a), Z: 0.5 * float64(i)}
	}
	return p
}

// sCurve is a planar curve with an inflection point at x = 0
func sCurve(n int) points {
	p := make(points, n)
	for i := range p {
		x := -3 + 6*float64(i)/float64(n-1)
		p[i] = r3.Vec{X: x, Y: math.Sin(x)}
	}
	return p
}

func zLine(n int) points {
	p := make(points, n)
	for i := range p {
		p[i] = r3.Vec{X: 2, Y: 2, Z: float64(i)}
	}
	return p
}

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < tol
}

// TestComputeOrthonormal verifies every frame is a right-handed orthonormal basis
func TestComputeOrthonormal(t *testing.T) {
	for name, p := range map[string]points{"helix": helix(80), "s-curve": sCurve(60), "line": zLine(10)} {
		t.Run(name, func(t *testing.T) {
			frames, err := Compute(p, 0.3)
			if err != nil {
				t.Fatalf("Compute failed: %v", err)
			}
			if len(frames) != p.Len() {
				t.Fatalf("Expected %d frames, got %d", p.Len(), len(frames))
			}
			for i, f := range frames {
				for _, v := range []r3.Vec{f.Tangent, f.Normal, f.Binormal} {
					if math.Abs(r3.Norm(v)-1) > tol {
						t.Errorf("frame %d: vector %v is not unit length", i, v)
					}
				}
				if d := r3.Dot(f.Tangent, f.Normal); math.Abs(d) > tol {
					t.Errorf("frame %d: tangent·normal = %g", i, d)
				}
				if d := r3.Dot(f.Tangent, f.Binormal); math.Abs(d) > tol {
					t.Errorf("frame %d: tangent·binormal = %g", i, d)
				}
				if d := r3.Dot(f.Normal, f.Binormal); math.Abs(d) > tol {
					t.Errorf("frame %d: normal·binormal = %g", i, d)
				}
				if !near(f.Binormal, r3.Cross(f.Tangent, f.Normal)) {
					t.Errorf("frame %d is not right-handed", i)
				}
				if d := f.Orthonormality(); d > tol {
					t.Errorf("frame %d: orthonormality drift %g", i, d)
				}
				if f.Origin != p.At(i) {
					t.Errorf("frame %d: origin %v, want %v", i, f.Origin, p.At(i))
				}
			}
		})
	}
}

// TestComputeNoFlip verifies consecutive binormals never point in opposite directions
func TestComputeNoFlip(t *testing.T) {
	for name, p := range map[string]points{"helix": helix(120), "s-curve": sCurve(200)} {
		t.Run(name, func(t *testing.T) {
			frames, err := Compute(p, 0)
			if err != nil {
				t.Fatalf("Compute failed: %v", err)
			}
			for i := 1; i < len(frames); i++ {
				if d := r3.Dot(frames[i-1].Binormal, frames[i].Binormal); d < 0 {
					t.Errorf("binormal flips between %d and %d (dot %g)", i-1, i, d)
				}
			}
		})
	}
}

// TestPlanarCurveKeepsBinormal verifies a planar curve keeps its binormal
// on the plane normal, through the inflection point where a curvature
// based frame is undefined.
func TestPlanarCurveKeepsBinormal(t *testing.T) {
	frames, err := Compute(sCurve(101), 0)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	want := r3.Vec{Z: 1}
	if !near(frames[0].Binormal, want) {
		t.Fatalf("seed binormal = %v, want %v", frames[0].Binormal, want)
	}
	for i, f := range frames {
		if !near(f.Binormal, want) {
			t.Errorf("frame %d binormal = %v, want %v", i, f.Binormal, want)
		}
	}
}

// TestStraightPath verifies frames along a straight line are all identical
func TestStraightPath(t *testing.T) {
	frames, err := Compute(zLine(6), 0)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	for i, f := range frames {
		if !near(f.Tangent, r3.Vec{Z: 1}) || !near(f.Normal, r3.Vec{X: 1}) || !near(f.Binormal, r3.Vec{Y: 1}) {
			t.Errorf("frame %d = %+v, want tangent z, normal x, binormal y", i, f)
		}
	}
}

// TestIncidence verifies the incidence angle rotates the seed normal once
func TestIncidence(t *testing.T) {
	frames, err := Compute(zLine(5), math.Pi/2)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	for i, f := range frames {
		if !near(f.Normal, r3.Vec{Y: 1}) {
			t.Errorf("frame %d normal = %v, want +y", i, f.Normal)
		}
		if !near(f.Binormal, r3.Vec{X: -1}) {
			t.Errorf("frame %d binormal = %v, want -x", i, f.Binormal)
		}
	}
}

// TestInteriorTangentAveraged verifies interior tangents bisect the corner
func TestInteriorTangentAveraged(t *testing.T) {
	p := points{{}, {X: 1}, {X: 1, Y: 1}}
	frames, err := Compute(p, 0)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	want := r3.Unit(r3.Vec{X: 1, Y: 1})
	if !near(frames[1].Tangent, want) {
		t.Errorf("interior tangent = %v, want %v", frames[1].Tangent, want)
	}
	if !near(frames[2].Tangent, r3.Vec{Y: 1}) {
		t.Errorf("end tangent = %v, want +y", frames[2].Tangent)
	}
}

// TestDegenerateSegmentRecovered verifies duplicated points reuse the previous tangent
func TestDegenerateSegmentRecovered(t *testing.T) {
	p := points{{}, {Z: 1}, {Z: 1}, {Z: 2}}
	frames, err := Compute(p, 0)
	if err != nil {
		t.Fatalf("Compute should recover from a duplicated point, got %v", err)
	}
	if len(frames) != 4 {
		t.Fatalf("Expected 4 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if !near(f.Tangent, r3.Vec{Z: 1}) {
			t.Errorf("frame %d tangent = %v, want +z", i, f.Tangent)
		}
		if !near(f.Normal, frames[0].Normal) {
			t.Errorf("frame %d normal = %v, want %v", i, f.Normal, frames[0].Normal)
		}
	}
}

// TestDuplicatePointOnBend verifies a duplicated point at a bend turns the
// frame with the path instead of mirroring it
func TestDuplicatePointOnBend(t *testing.T) {
	tests := []struct {
		name string
		p    points
	}{
		{"gentle", points{{}, {Z: 1}, {Z: 1}, {X: 0.1, Z: 2}, {X: 0.2, Z: 3}}},
		{"corner", points{{}, {Z: 1}, {Z: 1}, {X: 1, Z: 1}, {X: 2, Z: 1}}},
		{"oblique", points{{}, {Z: 1}, {Z: 1}, {X: 0.4, Y: 0.7, Z: 1.5}, {X: 0.8, Y: 1.4, Z: 2}}},
		{"two duplicates", points{{}, {Z: 1}, {Z: 1}, {Y: 1, Z: 2}, {Y: 1, Z: 2}, {Y: 2, Z: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, incidence := range []float64{0, 0.7, math.Pi / 2} {
				frames, err := Compute(tt.p, incidence)
				if err != nil {
					t.Fatalf("Compute failed: %v", err)
				}
				for i, f := range frames {
					if d := f.Orthonormality(); d > tol {
						t.Errorf("incidence %g: frame %d not orthonormal (drift %g)", incidence, i, d)
					}
					if !near(r3.Cross(f.Tangent, f.Normal), f.Binormal) {
						t.Errorf("incidence %g: frame %d not right-handed", incidence, i)
					}
					if i == 0 {
						continue
					}
					if d := r3.Dot(frames[i-1].Binormal, f.Binormal); d < -tol {
						t.Errorf("incidence %g: binormal flipped between %d and %d (dot %.3f)", incidence, i-1, i, d)
					}
				}
			}
		})
	}

	// Without twist, a bend in the xz plane keeps the binormal on +y.
	frames, err := Compute(points{{}, {Z: 1}, {Z: 1}, {X: 1, Z: 1}, {X: 2, Z: 1}}, 0)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	for i, f := range frames {
		if !near(f.Binormal, r3.Vec{Y: 1}) {
			t.Errorf("frame %d binormal = %v, want +y", i, f.Binormal)
		}
	}
}

// TestLeadingDegenerateSegment verifies a duplicated first point still seeds from the first real segment
func TestLeadingDegenerateSegment(t *testing.T) {
	p := points{{}, {}, {X: 1}}
	frames, err := Compute(p, 0)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	for i, f := range frames {
		if !near(f.Tangent, r3.Vec{X: 1}) {
			t.Errorf("frame %d tangent = %v, want +x", i, f.Tangent)
		}
	}
}

// TestAllPointsCoincide verifies a path without any length is rejected
func TestAllPointsCoincide(t *testing.T) {
	_, err := Compute(points{{X: 1}, {X: 1}, {X: 1}}, 0)
	if !errors.Is(err, ErrDegenerateSegment) {
		t.Errorf("Expected ErrDegenerateSegment, got %v", err)
	}
}

func TestAxes(t *testing.T) {
	f := Frame{Tangent: r3.Vec{Z: 1}, Normal: r3.Vec{X: 1}, Binormal: r3.Vec{Y: 1}}
	a := f.Axes()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if a.At(i, j) != want {
				t.Errorf("Axes()[%d][%d] = %g, want %g", i, j, a.At(i, j), want)
			}
		}
	}
	skewed := Frame{Tangent: r3.Vec{Z: 1}, Normal: r3.Vec{X: 1, Z: 0.5}, Binormal: r3.Vec{Y: 1}}
	if skewed.Orthonormality() < 0.1 {
		t.Errorf("Orthonormality should detect a skewed basis, got %g", skewed.Orthonormality())
	}
}
