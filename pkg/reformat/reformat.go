// Package reformat builds a stretched curved planar reformation: one slice
// perpendicular to the path at every retained path point, stacked along a
// new z axis.
//
// The run either completes with a full output volume or fails with a
// structural error before any resampling starts. Frames are computed
// serially; slices are resampled in parallel, each worker writing its own
// z-plane of the output, and Reformat returns only after every worker is done.
package reformat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"cprslicer/internal/logging"
	"cprslicer/internal/models"
	"cprslicer/pkg/frame"
	"cprslicer/pkg/path"
	"cprslicer/pkg/reslice"
	"cprslicer/pkg/sampler"
)

// ErrEmptyResult reports that no path point survives the offsets.
var ErrEmptyResult = errors.New("empty reformation result")

// Result holds the outputs of one reformation.
type Result struct {
	// Volume is the stacked reformation, (2ex+1) × (2ey+1) × m.
	Volume *models.Volume

	// Probe samples the input directly at each path point, 1 × 1 × m.
	// It is nil unless Options.ProbeInput is set.
	Probe *models.Volume

	// Path is the selected, offset path the slices follow.
	Path *path.Path

	// Frames holds the frame of every slice, in slice order.
	Frames []frame.Frame

	// Stats summarizes the intensities of Volume.
	Stats Stats
}

// Reformat reslices vol along the line of lines selected by opts.
//
// Structural problems are reported before resampling: path.ErrInvalidPath
// for a missing or too short line, ErrEmptyResult when the point offset
// skips the whole line, ErrInvalidOptions for an unusable grid. Samples
// outside the volume take opts.Background and are never an error.
// Cancelling ctx abandons the run and returns ctx.Err().
func Reformat(ctx context.Context, vol *models.Volume, lines path.Polylines, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := vol.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input volume: %w", err)
	}

	p, err := lines.Select(opts.OffsetLine, opts.OffsetPoint)
	if err != nil {
		if errors.Is(err, path.ErrExhausted) {
			return nil, fmt.Errorf("%w: %w", ErrEmptyResult, err)
		}
		return nil, err
	}

	frames, err := frame.Compute(p, opts.Incidence)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", path.ErrInvalidPath, err)
	}
	if len(frames) == 0 {
		return nil, ErrEmptyResult
	}

	log := logging.Logger()
	log.Info("path selected",
		"line", p.Line(), "offset", p.Offset(), "points", p.Len(), "length", p.Length())

	src := sampler.New(vol, opts.InterpolationMode, opts.Background)
	rs := reslice.New(src, opts.resliceParams())

	out := assemble(opts, p, len(frames))
	start := time.Now()
	if err := resampleAll(ctx, rs, frames, out, opts.workers(len(frames))); err != nil {
		return nil, err
	}
	log.Info("volume assembled",
		"width", out.Width, "height", out.Height, "slices", out.Depth,
		"mode", src.Mode().String(), "elapsed", time.Since(start))

	res := &Result{
		Volume: out,
		Path:   p,
		Frames: frames,
		Stats:  computeStats(out.Data, opts.Background),
	}
	if opts.ProbeInput {
		res.Probe = probe(src, frames, out.Spacing.Z)
	}
	return res, nil
}

// assemble allocates the output volume and derives its geometry: in-plane
// spacing from the slice grid, z spacing from the mean path segment length,
// and an origin that puts the path on x = y = 0.
func assemble(opts Options, p *path.Path, slices int) *models.Volume {
	params := opts.resliceParams()
	out := models.NewVolume(params.Width(), params.Height(), slices)
	dz := p.MeanSegmentLength()
	if dz <= 0 {
		dz = 1
	}
	out.Spacing = models.Vec3{X: params.SpacingX, Y: params.SpacingY, Z: dz}
	out.Origin = models.Vec3{
		X: -float64(params.ExtentX) * params.SpacingX,
		Y: -float64(params.ExtentY) * params.SpacingY,
	}
	return out
}

// resampleAll dispatches one job per frame across workers goroutines.
// Each job writes only the z-plane of its own slice, so no locking is needed.
func resampleAll(ctx context.Context, rs *reslice.Resampler, frames []frame.Frame, out *models.Volume, workers int) error {
	jobs := make(chan int)
	var wg sync.WaitGroup
	log := logging.Logger()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				rs.SliceInto(out.Plane(k), frames[k])
				log.Debug("slice resampled", "index", k)
			}
		}()
	}

	var err error
dispatch:
	for k := range frames {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break dispatch
		case jobs <- k:
		}
	}
	close(jobs)
	wg.Wait()
	return err
}

// probe samples the input at each path point, without reslicing.
func probe(src *sampler.Sampler, frames []frame.Frame, dz float64) *models.Volume {
	out := models.NewVolume(1, 1, len(frames))
	out.Spacing.Z = dz
	for k, f := range frames {
		out.Set(0, 0, k, src.Sample(f.Origin))
	}
	return out
}

// SliceAt returns slice k of the reformation as a standalone copy.
func (r *Result) SliceAt(k int) *models.Slice {
	s := models.NewSlice(r.Volume.Width, r.Volume.Height)
	copy(s.Data, r.Volume.Plane(k))
	s.Index = k
	o := r.Frames[k].Origin
	s.Origin = models.Vec3{X: o.X, Y: o.Y, Z: o.Z}
	return s
}

// CPRImages returns the two central long-axis planes of the reformation,
// which are the straightened CPR images: along the normal (x) and along
// the binormal (y), each with one row per path point.
func (r *Result) CPRImages() (alongNormal, alongBinormal *models.Slice) {
	v := r.Volume
	cx, cy := v.Width/2, v.Height/2
	alongNormal = models.NewSlice(v.Width, v.Depth)
	alongBinormal = models.NewSlice(v.Height, v.Depth)
	for z := 0; z < v.Depth; z++ {
		for x := 0; x < v.Width; x++ {
			alongNormal.Set(x, z, v.At(x, cy, z))
		}
		for y := 0; y < v.Height; y++ {
			alongBinormal.Set(y, z, v.At(cx, y, z))
		}
	}
	return alongNormal, alongBinormal
}

// Locate maps a world point onto the reformation: the index of the nearest
// slice and the in-slice offsets along normal and binormal.
func (r *Result) Locate(q r3.Vec) (slice int, u, v float64) {
	slice, _ = r.Path.Nearest(q)
	f := r.Frames[slice]
	d := r3.Sub(q, f.Origin)
	return slice, r3.Dot(d, f.Normal), r3.Dot(d, f.Binormal)
}
