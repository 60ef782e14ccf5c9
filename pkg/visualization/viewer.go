// Package visualization renders orthogonal planes of a volume, such as the
// stacked slices of a reformation or its straightened CPR images, as
// grayscale images.
package visualization

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"cprslicer/internal/models"
	"cprslicer/pkg/volumeio"
)

// Viewer extracts and saves planes of a volume.
type Viewer struct {
	// vol is the volume being viewed
	vol *models.Volume

	// window maps sample values onto gray levels
	window volumeio.Window
}

// NewViewer creates a viewer windowed to the full value range of vol
func NewViewer(vol *models.Volume) *Viewer {
	return &Viewer{
		vol:    vol,
		window: volumeio.VolumeWindow(vol.Data),
	}
}

// SetWindow replaces the display window.
func (v *Viewer) SetWindow(w volumeio.Window) { v.window = w }

// Window returns the display window.
func (v *Viewer) Window() volumeio.Window { return v.window }

// ExtractSlice extracts a 2D plane from the volume along the specified axis.
// An x plane is depth × height, a y plane is width × depth and a z plane is
// width × height.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	vol := v.vol
	var img *image.Gray16

	switch axis {
	case "x", "X":
		// Extract slice along YZ plane
		if position >= vol.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, vol.Width)
		}
		img = image.NewGray16(image.Rect(0, 0, vol.Depth, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for z := 0; z < vol.Depth; z++ {
				img.SetGray16(z, y, v.window.Gray(vol.At(position, y, z)))
			}
		}

	case "y", "Y":
		// Extract slice along XZ plane
		if position >= vol.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, vol.Height)
		}
		img = image.NewGray16(image.Rect(0, 0, vol.Width, vol.Depth))
		for z := 0; z < vol.Depth; z++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray16(x, z, v.window.Gray(vol.At(x, position, z)))
			}
		}

	case "z", "Z":
		// Extract slice along XY plane
		if position >= vol.Depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, vol.Depth)
		}
		img = v.window.Image(vol.Plane(position), vol.Width, vol.Height)

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SliceImage renders a standalone slice, such as a CPR image, with the
// viewer's window.
func (v *Viewer) SliceImage(s *models.Slice) image.Image {
	return v.window.Image(s.Data, s.Width, s.Height)
}

// ExtractRegion extracts a 3D subregion from the volume
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) (*models.Volume, error) {
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}
	vol := v.vol
	if startX+sizeX > vol.Width || startY+sizeY > vol.Height || startZ+sizeZ > vol.Depth {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := models.NewVolume(sizeX, sizeY, sizeZ)
	region.Spacing = vol.Spacing
	region.Origin = models.Vec3{
		X: vol.Origin.X + float64(startX)*vol.Spacing.X,
		Y: vol.Origin.Y + float64(startY)*vol.Spacing.Y,
		Z: vol.Origin.Z + float64(startZ)*vol.Spacing.Z,
	}
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			src := vol.Index(startX, startY+y, startZ+z)
			dst := region.Index(0, y, z)
			copy(region.Data[dst:dst+sizeX], vol.Data[src:src+sizeX])
		}
	}
	return region, nil
}

// SaveSlice saves an image in the format given by the file extension:
// .png, .jpg/.jpeg or .tif/.tiff.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
	default:
		return fmt.Errorf("unsupported image format %q", ext)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	switch ext {
	case ".png":
		err = png.Encode(file, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}
	return file.Close()
}

// SaveSliceSequence extracts and saves every plane along the specified axis
// as PNG files named slice_<axis>_<position>.png.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.vol.Width
	case "y", "Y":
		maxPos = v.vol.Height
	case "z", "Z":
		maxPos = v.vol.Depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", strings.ToLower(axis), pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
