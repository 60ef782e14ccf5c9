// Package volumeio reads input volumes from image stacks and writes the
// reformation outputs to disk.
package volumeio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/tiff"

	"cprslicer/internal/logging"
	"cprslicer/internal/models"
)

// ErrNoSlices reports a directory without any readable slice image.
var ErrNoSlices = errors.New("no slice images found")

var sliceExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// LoadSliceStack reads every JPEG, PNG or TIFF image in dir as one z-plane of
// a volume. Files are ordered by the number embedded in their names, so
// slice_2.png comes before slice_10.png. Intensities are normalized to
// [0, 1] from 16-bit luminance, and all slices must share the first slice's
// dimensions.
func LoadSliceStack(dir string, spacing, origin models.Vec3) (*models.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read slice directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if sliceExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSlices, dir)
	}

	// Sort by slice number, falling back to the name for equal numbers
	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := extractNumber(files[i]), extractNumber(files[j])
		if ni != nj {
			return ni < nj
		}
		return files[i] < files[j]
	})

	var vol *models.Volume
	for z, name := range files {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", name, err)
		}
		b := img.Bounds()
		if vol == nil {
			vol = models.NewVolume(b.Dx(), b.Dy(), len(files))
			vol.Spacing = spacing
			vol.Origin = origin
		} else if b.Dx() != vol.Width || b.Dy() != vol.Height {
			return nil, fmt.Errorf("slice %s is %dx%d, want %dx%d", name, b.Dx(), b.Dy(), vol.Width, vol.Height)
		}
		imageToFloat(img, vol.Plane(z))
	}

	if err := vol.Validate(); err != nil {
		return nil, err
	}
	logging.Logger().Info("slice stack loaded",
		"dir", dir, "width", vol.Width, "height", vol.Height, "depth", vol.Depth)
	return vol, nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	num, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return num
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	return img, err
}

// imageToFloat writes the luminance of img into dst in [0, 1], row by row.
func imageToFloat(img image.Image, dst []float64) {
	b := img.Bounds()
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < w; x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			dst[y*w+x] = float64(g.Y) / 65535.0
		}
	}
}
