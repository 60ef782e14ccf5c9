package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"

	"cprslicer/internal/logging"
	"cprslicer/internal/models"
	"cprslicer/pkg/config"
	"cprslicer/pkg/path"
	"cprslicer/pkg/reformat"
	"cprslicer/pkg/visualization"
	"cprslicer/pkg/volumeio"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "cprslicer.yaml", "YAML configuration file")
	initConfig := flag.Bool("init", false, "Write a default configuration file to -config and exit")
	volumeDir := flag.String("volume", "", "Directory containing the input slice images")
	pathFile := flag.String("path", "", "YAML file containing the path polylines")
	outputDir := flag.String("output", "", "Directory receiving the reformation outputs")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (default: all available)")
	mode := flag.String("mode", "", "Interpolation mode: nearest, linear or cubic")
	incidence := flag.Float64("incidence", 0, "Rotation of the initial normal about the first tangent, in degrees")
	probe := flag.Bool("probe", false, "Also write the input sampled along the path")
	extractSlices := flag.Bool("extract-slices", false, "Save every plane of the output volume along all axes")
	slicesDir := flag.String("slices-dir", "", "Directory, below the output directory, for extracted planes")
	window := flag.String("window", "", "Display window for exported images as min,max (default: output value range)")
	region := flag.String("region", "", "Also write the sub-volume x,y,z,width,height,depth of the output as region.raw")
	flag.Parse()

	initDisplay()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}
		pterm.Success.Printfln("Default configuration written to %s", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	// Command line flags override the configuration file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "volume":
			cfg.Input.VolumeDir = *volumeDir
		case "path":
			cfg.Input.PathFile = *pathFile
		case "output":
			cfg.Output.Dir = *outputDir
		case "cores":
			cfg.Processing.NumCores = *numCores
		case "mode":
			cfg.Slicer.Interpolation = *mode
		case "incidence":
			cfg.Slicer.Incidence = *incidence
		case "probe":
			cfg.Slicer.ProbeInput = *probe
		case "extract-slices":
			cfg.Output.ExtractSlices = *extractSlices
		case "slices-dir":
			cfg.Output.SlicesDir = *slicesDir
		}
	})

	exports, err := parseExports(*window, *region)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	if cfg.Input.VolumeDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	level := slog.LevelWarn
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, exports); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// initDisplay sets the pterm prefixes used for user-facing output.
func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " CPR ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

func run(ctx context.Context, cfg *config.Config, exports exportOptions) error {
	opts, err := cfg.Options()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	pterm.Info.Printfln("Loading slices from %s", cfg.Input.VolumeDir)
	spacing := models.Vec3{X: cfg.Input.Spacing[0], Y: cfg.Input.Spacing[1], Z: cfg.Input.Spacing[2]}
	origin := models.Vec3{X: cfg.Input.Origin[0], Y: cfg.Input.Origin[1], Z: cfg.Input.Origin[2]}
	vol, err := volumeio.LoadSliceStack(cfg.Input.VolumeDir, spacing, origin)
	if err != nil {
		return err
	}

	lines, err := loadPath(cfg.Input.PathFile)
	if err != nil {
		return err
	}

	pterm.Info.Printfln("Reslicing %dx%dx%d volume (%s interpolation)",
		vol.Width, vol.Height, vol.Depth, opts.InterpolationMode)
	start := time.Now()
	res, err := reformat.Reformat(ctx, vol, lines, opts)
	if err != nil {
		return fmt.Errorf("reformation failed: %w", err)
	}
	elapsed := time.Since(start)

	if err := writeOutputs(cfg, res, exports); err != nil {
		return err
	}

	pterm.Success.Printfln("Reformation completed in %.2f seconds", elapsed.Seconds())
	return printSummary(res, cfg.Output.Dir)
}

func loadPath(name string) (path.Polylines, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open path file: %w", err)
	}
	defer file.Close()
	return path.Load(file)
}

// writeOutputs writes the reformatted volume, its metadata sidecar, the
// optional probe and the straightened CPR images into the output directory.
func writeOutputs(cfg *config.Config, res *reformat.Result, exports exportOptions) error {
	dir := cfg.Output.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	switch cfg.Output.Format {
	case "raw":
		if err := volumeio.WriteRawFile(filepath.Join(dir, "volume.raw"), res.Volume); err != nil {
			return err
		}
	default:
		if err := volumeio.WriteTIFFStack(filepath.Join(dir, "volume"), res.Volume); err != nil {
			return err
		}
	}

	meta, err := os.Create(filepath.Join(dir, "metadata.yaml"))
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}
	if err := volumeio.WriteMetadata(meta, res); err != nil {
		meta.Close()
		return err
	}
	if err := meta.Close(); err != nil {
		return err
	}

	if res.Probe != nil {
		if err := volumeio.WriteRawFile(filepath.Join(dir, "probe.raw"), res.Probe); err != nil {
			return err
		}
	}

	viewer := visualization.NewViewer(res.Volume)
	if exports.window != nil {
		viewer.SetWindow(*exports.window)
	}

	if cfg.Output.SaveCPRImages {
		alongNormal, alongBinormal := res.CPRImages()
		if err := viewer.SaveSlice(viewer.SliceImage(alongNormal), filepath.Join(dir, "cpr_normal.png")); err != nil {
			return err
		}
		if err := viewer.SaveSlice(viewer.SliceImage(alongBinormal), filepath.Join(dir, "cpr_binormal.png")); err != nil {
			return err
		}
	}

	if cfg.Output.ExtractSlices {
		slicesPath := filepath.Join(dir, cfg.Output.SlicesDir)
		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(slicesPath, axis)
			pterm.Info.Printfln("Saving %s-axis slices to: %s", axis, axisDir)
			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				return fmt.Errorf("failed to save %s-axis slices: %w", axis, err)
			}
		}
	}

	if r := exports.region; r != nil {
		sub, err := viewer.ExtractRegion(r[0], r[1], r[2], r[3], r[4], r[5])
		if err != nil {
			return fmt.Errorf("invalid region: %w", err)
		}
		if err := volumeio.WriteRawFile(filepath.Join(dir, "region.raw"), sub); err != nil {
			return err
		}
		pterm.Info.Printfln("Region %dx%dx%d written to %s", sub.Width, sub.Height, sub.Depth,
			filepath.Join(dir, "region.raw"))
	}
	return nil
}

// exportOptions holds the image and region export settings that only the
// command line can set.
type exportOptions struct {
	window *volumeio.Window
	region *[6]int
}

func parseExports(window, region string) (exportOptions, error) {
	var opts exportOptions
	if window != "" {
		var w volumeio.Window
		if _, err := fmt.Sscanf(window, "%g,%g", &w.Min, &w.Max); err != nil {
			return opts, fmt.Errorf("invalid -window %q, want min,max: %w", window, err)
		}
		if w.Max <= w.Min {
			return opts, fmt.Errorf("invalid -window %q: max must exceed min", window)
		}
		opts.window = &w
	}
	if region != "" {
		var r [6]int
		if _, err := fmt.Sscanf(region, "%d,%d,%d,%d,%d,%d", &r[0], &r[1], &r[2], &r[3], &r[4], &r[5]); err != nil {
			return opts, fmt.Errorf("invalid -region %q, want x,y,z,width,height,depth: %w", region, err)
		}
		opts.region = &r
	}
	return opts, nil
}

func printSummary(res *reformat.Result, dir string) error {
	v := res.Volume
	s := res.Stats
	data := pterm.TableData{
		{"Property", "Value"},
		{"Output", dir},
		{"Dimensions", fmt.Sprintf("%d x %d x %d", v.Width, v.Height, v.Depth)},
		{"Spacing", fmt.Sprintf("%.3f x %.3f x %.3f", v.Spacing.X, v.Spacing.Y, v.Spacing.Z)},
		{"Path line / offset", fmt.Sprintf("%d / %d", res.Path.Line(), res.Path.Offset())},
		{"Path length", fmt.Sprintf("%.2f", res.Path.Length())},
		{"Intensity range", fmt.Sprintf("%.4f .. %.4f", s.Min, s.Max)},
		{"Mean ± std", fmt.Sprintf("%.4f ± %.4f", s.Mean, s.StdDev)},
		{"Background fraction", fmt.Sprintf("%.1f%%", 100*s.Background)},
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
