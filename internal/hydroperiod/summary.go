package hydroperiod

import (
	"sort"

	"github.com/wetlandtools/hydroperiod/pkg/raster"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a finished duration raster: pixel class counts plus
// distribution statistics over the valid (non-sentinel) pixels.
type Summary struct {
	TotalPixels   int
	InvalidPixels int
	NeverWet      int
	WetPixels     int

	MinDays    float64
	MaxDays    float64
	MeanDays   float64
	StdDevDays float64
	MedianDays float64
}

// Summarize computes counts and statistics for a duration raster. Sentinel
// pixels are excluded from the distribution; a raster with no valid pixels
// reports zeroed statistics.
func Summarize(g *raster.Grid) Summary {
	s := Summary{TotalPixels: len(g.Data)}
	valid := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		switch {
		case v < 0:
			s.InvalidPixels++
		case v == 0:
			s.NeverWet++
			valid = append(valid, v)
		default:
			s.WetPixels++
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return s
	}
	s.MinDays = floats.Min(valid)
	s.MaxDays = floats.Max(valid)
	s.MeanDays = stat.Mean(valid, nil)
	if len(valid) > 1 {
		s.StdDevDays = stat.StdDev(valid, nil)
	}
	sort.Float64s(valid)
	s.MedianDays = stat.Quantile(0.5, stat.Empirical, valid, nil)
	return s
}
