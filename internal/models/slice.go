package models

// Slice is one planar cross-section produced for a single path point
type Slice struct {
	// Data holds Width*Height samples, i (along the normal) varying fastest
	Data []float64

	// Width is the number of pixels along the frame normal (2*ex+1)
	Width int

	// Height is the number of pixels along the frame binormal (2*ey+1)
	Height int

	// Index is the position of this slice along the selected path
	Index int

	// Origin is the world position of the slice center (the path point)
	Origin Vec3
}

// NewSlice allocates an empty slice of the given size
func NewSlice(width, height int) *Slice {
	return &Slice{
		Data:   make([]float64, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the pixel at column i, row j
func (s *Slice) At(i, j int) float64 {
	return s.Data[j*s.Width+i]
}

// Set stores a pixel value
func (s *Slice) Set(i, j int, value float64) {
	s.Data[j*s.Width+i] = value
}
