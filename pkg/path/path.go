// Package path models the input polyline a reformation follows: one line
// picked out of a multi-line input, with leading points skipped and a
// cumulative arc-length parametrization.
package path

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrInvalidPath reports a missing, too short or out-of-range line.
	ErrInvalidPath = errors.New("invalid path")

	// ErrExhausted reports that the point offset skips every point of the
	// selected line. It wraps ErrInvalidPath.
	ErrExhausted = fmt.Errorf("%w: point offset exhausts the line", ErrInvalidPath)
)

// Polylines is a multi-line path input. Each line is an ordered list of
// world points.
type Polylines [][]r3.Vec

// Path is the ordered point sequence of one selected line. It is immutable
// once built by Select.
type Path struct {
	points []r3.Vec
	arc    []float64
	line   int
	offset int

	once sync.Once
	tree *kdtree.Tree
}

// Select picks line lineIndex and drops its first pointOffset points.
// The remaining sequence must hold at least two points.
func (pl Polylines) Select(lineIndex, pointOffset int) (*Path, error) {
	if len(pl) == 0 {
		return nil, fmt.Errorf("%w: no lines in input", ErrInvalidPath)
	}
	if lineIndex < 0 || lineIndex >= len(pl) {
		return nil, fmt.Errorf("%w: line %d out of range [0,%d)", ErrInvalidPath, lineIndex, len(pl))
	}
	line := pl[lineIndex]
	if len(line) < 2 {
		return nil, fmt.Errorf("%w: line %d has %d points", ErrInvalidPath, lineIndex, len(line))
	}
	if pointOffset < 0 {
		return nil, fmt.Errorf("%w: negative point offset %d", ErrInvalidPath, pointOffset)
	}
	if pointOffset >= len(line) {
		return nil, fmt.Errorf("%w (offset %d, %d points)", ErrExhausted, pointOffset, len(line))
	}
	if len(line)-pointOffset < 2 {
		return nil, fmt.Errorf("%w: %d point(s) left after offset %d", ErrInvalidPath, len(line)-pointOffset, pointOffset)
	}
	return New(line[pointOffset:], lineIndex, pointOffset), nil
}

// New builds a path over a copy of points. lineIndex and pointOffset only
// record where the points came from.
func New(points []r3.Vec, lineIndex, pointOffset int) *Path {
	p := &Path{
		points: make([]r3.Vec, len(points)),
		arc:    make([]float64, len(points)),
		line:   lineIndex,
		offset: pointOffset,
	}
	copy(p.points, points)
	for i := 1; i < len(p.points); i++ {
		p.arc[i] = p.arc[i-1] + r3.Norm(r3.Sub(p.points[i], p.points[i-1]))
	}
	return p
}

// Len returns the number of retained points.
func (p *Path) Len() int { return len(p.points) }

// At returns the i-th retained point.
func (p *Path) At(i int) r3.Vec { return p.points[i] }

// ArcLength returns the cumulative length from the first retained point to point i.
func (p *Path) ArcLength(i int) float64 { return p.arc[i] }

// Length returns the total arc length.
func (p *Path) Length() float64 {
	if len(p.arc) == 0 {
		return 0
	}
	return p.arc[len(p.arc)-1]
}

// Line returns the index of the selected line in the input.
func (p *Path) Line() int { return p.line }

// Offset returns how many leading points of the line were skipped.
func (p *Path) Offset() int { return p.offset }

// Points returns a copy of the retained points.
func (p *Path) Points() []r3.Vec {
	out := make([]r3.Vec, len(p.points))
	copy(out, p.points)
	return out
}

// MeanSegmentLength returns the average distance between consecutive points.
func (p *Path) MeanSegmentLength() float64 {
	if len(p.points) < 2 {
		return 0
	}
	return p.Length() / float64(len(p.points)-1)
}

// Nearest returns the index of the retained point closest to q and its
// distance. The spatial index is built on first use.
func (p *Path) Nearest(q r3.Vec) (int, float64) {
	if len(p.points) == 0 {
		return -1, math.Inf(1)
	}
	p.once.Do(func() {
		pts := make(pathPoints, len(p.points))
		for i, v := range p.points {
			pts[i] = pathPoint{Vec: v, index: i}
		}
		p.tree = kdtree.New(pts, false)
	})
	got, d2 := p.tree.Nearest(pathPoint{Vec: q, index: -1})
	return got.(pathPoint).index, math.Sqrt(d2)
}
