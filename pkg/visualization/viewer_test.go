package visualization

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"cprslicer/internal/models"
	"cprslicer/pkg/volumeio"
)

// gradientVolume fills a volume with a gradient along each axis
func gradientVolume(width, height, depth int) *models.Volume {
	vol := models.NewVolume(width, height, depth)
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				vol.Set(x, y, z, float64(x)/float64(width)+
					float64(y)/float64(height)+
					float64(z)/float64(depth))
			}
		}
	}
	return vol
}

// TestNewViewer verifies the default window spans the volume range
func TestNewViewer(t *testing.T) {
	vol := models.NewVolume(4, 4, 2)
	vol.Set(1, 1, 0, -3)
	vol.Set(2, 3, 1, 5)

	viewer := NewViewer(vol)
	if w := viewer.Window(); w.Min != -3 || w.Max != 5 {
		t.Errorf("Expected window [-3, 5], got [%g, %g]", w.Min, w.Max)
	}

	viewer.SetWindow(volumeio.Window{Min: 0, Max: 1})
	if w := viewer.Window(); w.Min != 0 || w.Max != 1 {
		t.Errorf("SetWindow did not replace the window, got %+v", w)
	}
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	width, height, depth := 10, 8, 5
	vol := models.NewVolume(width, height, depth)

	// Each slice along Z has a unique value
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				vol.Set(x, y, z, float64(z))
			}
		}
	}
	viewer := NewViewer(vol)

	for z := 0; z < depth; z++ {
		img, err := viewer.ExtractSlice("z", z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			t.Errorf("Expected Z slice dimensions %dx%d, got %dx%d",
				width, height, bounds.Dx(), bounds.Dy())
		}

		gray16Img, ok := img.(*image.Gray16)
		if !ok {
			t.Fatalf("Expected *image.Gray16, got %T", img)
		}
		want := viewer.Window().Gray(float64(z)).Y
		if got := gray16Img.Gray16At(width/2, height/2).Y; got != want {
			t.Errorf("Expected Z slice value %d at center, got %d", want, got)
		}
	}

	imgX, err := viewer.ExtractSlice("x", width/2)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if b := imgX.Bounds(); b.Dx() != depth || b.Dy() != height {
		t.Errorf("Expected X slice dimensions %dx%d, got %dx%d", depth, height, b.Dx(), b.Dy())
	}
	// Columns of an X slice run along z
	if got := imgX.(*image.Gray16).Gray16At(depth-1, 0).Y; got != 0xffff {
		t.Errorf("Expected last X slice column to be white, got %d", got)
	}

	imgY, err := viewer.ExtractSlice("y", height/2)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if b := imgY.Bounds(); b.Dx() != width || b.Dy() != depth {
		t.Errorf("Expected Y slice dimensions %dx%d, got %dx%d", width, depth, b.Dx(), b.Dy())
	}

	if _, err := viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if _, err := viewer.ExtractSlice("z", depth); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err := viewer.ExtractSlice("x", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestSliceImage verifies CPR images render with the viewer window
func TestSliceImage(t *testing.T) {
	viewer := NewViewer(gradientVolume(4, 4, 4))
	viewer.SetWindow(volumeio.Window{Min: 0, Max: 2})

	s := models.NewSlice(3, 2)
	s.Set(2, 1, 2)
	s.Set(1, 0, 1)
	img := viewer.SliceImage(s).(*image.Gray16)

	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("Expected 3x2 image, got %v", b)
	}
	if got := img.Gray16At(2, 1).Y; got != 0xffff {
		t.Errorf("Expected white at (2,1), got %d", got)
	}
	if got := img.Gray16At(1, 0).Y; got != 32768 {
		t.Errorf("Expected mid gray at (1,0), got %d", got)
	}
	if got := img.Gray16At(0, 0).Y; got != 0 {
		t.Errorf("Expected black at (0,0), got %d", got)
	}
}

// TestExtractRegion verifies that 3D regions are correctly extracted
func TestExtractRegion(t *testing.T) {
	width, height, depth := 10, 10, 5
	vol := gradientVolume(width, height, depth)
	vol.Spacing = models.Vec3{X: 0.5, Y: 0.5, Z: 2}
	viewer := NewViewer(vol)

	startX, startY, startZ := 2, 3, 1
	sizeX, sizeY, sizeZ := 4, 3, 2

	region, err := viewer.ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ)
	if err != nil {
		t.Fatalf("Failed to extract region: %v", err)
	}
	if err := region.Validate(); err != nil {
		t.Fatalf("Extracted region is invalid: %v", err)
	}
	if region.Origin != (models.Vec3{X: 1, Y: 1.5, Z: 2}) {
		t.Errorf("Expected region origin (1, 1.5, 2), got %+v", region.Origin)
	}

	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				want := vol.At(startX+x, startY+y, startZ+z)
				if got := region.At(x, y, z); got != want {
					t.Errorf("Region value mismatch at (%d,%d,%d): expected %f, got %f", x, y, z, want, got)
				}
			}
		}
	}

	if _, err := viewer.ExtractRegion(-1, 0, 0, 1, 1, 1); err == nil {
		t.Error("Expected error for negative start coordinate, got nil")
	}
	if _, err := viewer.ExtractRegion(0, 0, 0, 0, 1, 1); err == nil {
		t.Error("Expected error for zero size, got nil")
	}
	if _, err := viewer.ExtractRegion(width-1, 0, 0, 2, 1, 1); err == nil {
		t.Error("Expected error for region extending beyond volume, got nil")
	}
}

// TestSaveSlice verifies that slices can be saved in every supported format
func TestSaveSlice(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir := t.TempDir()
	viewer := NewViewer(gradientVolume(6, 6, 3))
	img, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	for _, name := range []string{"slice.png", "slice.jpg", "slice.tif"} {
		filename := filepath.Join(tempDir, name)
		if err := viewer.SaveSlice(img, filename); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}
		f, err := os.Open(filename)
		if err != nil {
			t.Fatalf("Saved file does not exist: %s", filename)
		}
		decoded, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			t.Errorf("Failed to decode %s: %v", name, err)
			continue
		}
		if decoded.Bounds() != img.Bounds() {
			t.Errorf("%s: expected bounds %v, got %v", name, img.Bounds(), decoded.Bounds())
		}
	}

	if err := viewer.SaveSlice(img, filepath.Join(tempDir, "slice.bmp")); err == nil {
		t.Error("Expected error for unsupported format, got nil")
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	width, height, depth := 5, 4, 3
	viewer := NewViewer(gradientVolume(width, height, depth))
	outputDir := filepath.Join(t.TempDir(), "slices")

	if err := viewer.SaveSliceSequence("Z", outputDir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}
	for z := 0; z < depth; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.png", z))
		if _, err := os.Stat(filename); err != nil {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSliceSequence("invalid", outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
