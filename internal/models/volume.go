package models

import (
	"errors"
	"fmt"
)

// Vec3 is a triple of physical quantities (spacing or origin) along x, y, z.
type Vec3 struct {
	X, Y, Z float64
}

// Volume represents a regular 3D scalar grid
type Volume struct {
	// Data is the 3D volume data as a 1D array, x varying fastest, then y, then z
	Data []float64

	// Width is the width of the volume in voxels (x)
	Width int

	// Height is the height of the volume in voxels (y)
	Height int

	// Depth is the depth of the volume in voxels (z)
	Depth int

	// Spacing is the physical size of each voxel in mm
	Spacing Vec3

	// Origin is the world position of voxel (0,0,0)
	Origin Vec3
}

// NewVolume allocates a zero-filled volume with unit spacing and zero origin
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:    make([]float64, width*height*depth),
		Width:   width,
		Height:  height,
		Depth:   depth,
		Spacing: Vec3{X: 1, Y: 1, Z: 1},
	}
}

// Index returns the offset of voxel (x,y,z) in Data.
func (v *Volume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// Contains reports whether (x,y,z) is a valid voxel index.
func (v *Volume) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < v.Width && y < v.Height && z < v.Depth
}

// At returns the scalar stored at voxel (x,y,z). The index must be valid.
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Set stores value at voxel (x,y,z).
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Index(x, y, z)] = value
}

// Plane returns the z-th xy plane. The returned slice aliases Data.
func (v *Volume) Plane(z int) []float64 {
	n := v.Width * v.Height
	return v.Data[z*n : (z+1)*n]
}

// Validate checks the volume is usable as a sampling source
func (v *Volume) Validate() error {
	if v == nil {
		return errors.New("volume is nil")
	}
	if v.Width <= 0 || v.Height <= 0 || v.Depth <= 0 {
		return fmt.Errorf("invalid volume dimensions %dx%dx%d", v.Width, v.Height, v.Depth)
	}
	if len(v.Data) != v.Width*v.Height*v.Depth {
		return fmt.Errorf("volume data has %d values, want %d", len(v.Data), v.Width*v.Height*v.Depth)
	}
	if v.Spacing.X <= 0 || v.Spacing.Y <= 0 || v.Spacing.Z <= 0 {
		return fmt.Errorf("volume spacing must be positive, got %+v", v.Spacing)
	}
	return nil
}
