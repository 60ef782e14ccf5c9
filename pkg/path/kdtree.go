package path

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// pathPoint is a path vertex that remembers its position in the path.
type pathPoint struct {
	r3.Vec
	index int
}

// Compare implements the kdtree.Comparable interface
func (p pathPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(pathPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p pathPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p pathPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(pathPoint)
	return r3.Norm2(r3.Sub(p.Vec, q.Vec))
}

type pathPoints []pathPoint

func (p pathPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p pathPoints) Len() int                              { return len(p) }
func (p pathPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p pathPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pointPlane{pathPoints: p, Dim: d}, kdtree.MedianOfMedians(pointPlane{pathPoints: p, Dim: d}))
}

// pointPlane sorts path points along one axis for kdtree partitioning.
type pointPlane struct {
	pathPoints
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.pathPoints[i].X < p.pathPoints[j].X
	case 1:
		return p.pathPoints[i].Y < p.pathPoints[j].Y
	case 2:
		return p.pathPoints[i].Z < p.pathPoints[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{pathPoints: p.pathPoints[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.pathPoints[i], p.pathPoints[j] = p.pathPoints[j], p.pathPoints[i]
}
