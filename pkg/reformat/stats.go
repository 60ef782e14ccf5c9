package reformat

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the intensities of a reformatted volume.
type Stats struct {
	// Min and Max are the extreme sample values.
	Min, Max float64

	// Mean and StdDev describe the sample distribution.
	Mean, StdDev float64

	// Background is the fraction of samples equal to the background value,
	// which approximates how much of the slab fell outside the input.
	Background float64
}

func computeStats(data []float64, background float64) Stats {
	if len(data) == 0 {
		return Stats{}
	}
	mean, std := stat.MeanStdDev(data, nil)
	if len(data) == 1 {
		std = 0
	}
	var bg int
	for _, v := range data {
		if v == background {
			bg++
		}
	}
	return Stats{
		Min:        floats.Min(data),
		Max:        floats.Max(data),
		Mean:       mean,
		StdDev:     std,
		Background: float64(bg) / float64(len(data)),
	}
}
