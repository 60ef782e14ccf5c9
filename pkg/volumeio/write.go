package volumeio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"cprslicer/internal/models"
	"cprslicer/pkg/reformat"
)

// WriteRaw writes the volume samples as little-endian float64 values,
// x fastest, then y, then z.
func WriteRaw(w io.Writer, vol *models.Volume) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, vol.Data); err != nil {
		return fmt.Errorf("failed to write raw volume: %w", err)
	}
	return bw.Flush()
}

// WriteRawFile writes the volume to path with WriteRaw.
func WriteRawFile(path string, vol *models.Volume) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create raw file: %w", err)
	}
	if err := WriteRaw(file, vol); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Window maps sample values onto the 16-bit gray range.
type Window struct {
	Min, Max float64
}

// VolumeWindow spans the full value range of data.
func VolumeWindow(data []float64) Window {
	if len(data) == 0 {
		return Window{Min: 0, Max: 1}
	}
	return Window{Min: floats.Min(data), Max: floats.Max(data)}
}

// Gray converts v to a 16-bit gray level, clamping outside the window.
func (w Window) Gray(v float64) color.Gray16 {
	span := w.Max - w.Min
	if span <= 0 {
		if v > w.Min {
			return color.Gray16{Y: 0xffff}
		}
		return color.Gray16{}
	}
	t := (v - w.Min) / span
	switch {
	case t <= 0:
		return color.Gray16{}
	case t >= 1:
		return color.Gray16{Y: 0xffff}
	}
	return color.Gray16{Y: uint16(t*65535 + 0.5)}
}

// Image renders a row-major buffer of width×height samples.
func (w Window) Image(data []float64, width, height int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray16(x, y, w.Gray(data[y*width+x]))
		}
	}
	return img
}

// WriteTIFFStack writes one 16-bit grayscale TIFF per z-plane into dir,
// named slice_000.tif onwards, windowed to the volume's value range.
func WriteTIFFStack(dir string, vol *models.Volume) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	win := VolumeWindow(vol.Data)
	for z := 0; z < vol.Depth; z++ {
		img := win.Image(vol.Plane(z), vol.Width, vol.Height)
		name := filepath.Join(dir, fmt.Sprintf("slice_%03d.tif", z))
		if err := WriteTIFF(name, img); err != nil {
			return fmt.Errorf("slice %d: %w", z, err)
		}
	}
	return nil
}

// WriteTIFF encodes img as a deflate-compressed TIFF file.
func WriteTIFF(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if err := tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return file.Close()
}

// Metadata is the YAML sidecar describing a reformation output.
type Metadata struct {
	Dimensions [3]int        `yaml:"dimensions"`
	Spacing    [3]float64    `yaml:"spacing"`
	Origin     [3]float64    `yaml:"origin"`
	Line       int           `yaml:"line"`
	Offset     int           `yaml:"offset"`
	PathLength float64       `yaml:"pathLength"`
	Points     [][3]float64  `yaml:"points"`
	Stats      StatsMetadata `yaml:"stats"`
	Frames     []FrameEntry  `yaml:"frames"`
}

// StatsMetadata mirrors reformat.Stats.
type StatsMetadata struct {
	Min        float64 `yaml:"min"`
	Max        float64 `yaml:"max"`
	Mean       float64 `yaml:"mean"`
	StdDev     float64 `yaml:"stdDev"`
	Background float64 `yaml:"background"`
}

// FrameEntry records the placement of one output slice in input space.
type FrameEntry struct {
	Origin   [3]float64 `yaml:"origin,flow"`
	Tangent  [3]float64 `yaml:"tangent,flow"`
	Normal   [3]float64 `yaml:"normal,flow"`
	Binormal [3]float64 `yaml:"binormal,flow"`
}

// NewMetadata collects the sidecar fields of res.
func NewMetadata(res *reformat.Result) Metadata {
	v := res.Volume
	md := Metadata{
		Dimensions: [3]int{v.Width, v.Height, v.Depth},
		Spacing:    [3]float64{v.Spacing.X, v.Spacing.Y, v.Spacing.Z},
		Origin:     [3]float64{v.Origin.X, v.Origin.Y, v.Origin.Z},
		Stats: StatsMetadata{
			Min:        res.Stats.Min,
			Max:        res.Stats.Max,
			Mean:       res.Stats.Mean,
			StdDev:     res.Stats.StdDev,
			Background: res.Stats.Background,
		},
		Frames: make([]FrameEntry, len(res.Frames)),
	}
	if res.Path != nil {
		md.Line = res.Path.Line()
		md.Offset = res.Path.Offset()
		md.PathLength = res.Path.Length()
		for _, p := range res.Path.Points() {
			md.Points = append(md.Points, [3]float64{p.X, p.Y, p.Z})
		}
	}
	for k, f := range res.Frames {
		md.Frames[k] = FrameEntry{
			Origin:   [3]float64{f.Origin.X, f.Origin.Y, f.Origin.Z},
			Tangent:  [3]float64{f.Tangent.X, f.Tangent.Y, f.Tangent.Z},
			Normal:   [3]float64{f.Normal.X, f.Normal.Y, f.Normal.Z},
			Binormal: [3]float64{f.Binormal.X, f.Binormal.Y, f.Binormal.Z},
		}
	}
	return md
}

// WriteMetadata writes the YAML sidecar of res.
func WriteMetadata(w io.Writer, res *reformat.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewMetadata(res)); err != nil {
		return fmt.Errorf("error marshaling metadata: %w", err)
	}
	return enc.Close()
}
