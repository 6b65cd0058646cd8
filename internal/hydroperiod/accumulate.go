package hydroperiod

import (
	"errors"
	"fmt"

	"github.com/wetlandtools/hydroperiod/pkg/raster"
)

// ErrInsufficientData means the store holds fewer than two dated rasters,
// so no interval exists to accumulate over.
var ErrInsufficientData = errors.New("need at least two dated rasters to form an interval")

// intervalDuration estimates the wet days one pixel contributes over a gap
// of gapDays, given its class values at the bounding snapshots. The pair is
// judged by its sum, so a dry-to-wet transition and a wet-to-dry one score
// identically (the change is assumed to land at the gap midpoint, rounded
// down). Any sum other than a clean 0, 1 or 2 marks the pixel invalid for
// the interval.
func intervalDuration(a, b float64, gapDays int) float64 {
	switch a + b {
	case 0:
		return 0
	case 1:
		return float64(gapDays / 2)
	case 2:
		return float64(gapDays)
	default:
		return Sentinel
	}
}

// PairDuration computes the interval duration raster for two snapshots
// bounding a gap of gapDays. Contaminated pixels carry the -1 sentinel; the
// grids must share a shape.
func PairDuration(a, b *raster.Grid, gapDays int) (*raster.Grid, error) {
	if !a.SameShape(b) {
		return nil, &ShapeMismatchError{Shapes: []raster.Shape{a.Shape(), b.Shape()}}
	}
	out := raster.New(a.Rows, a.Cols)
	for i := range out.Data {
		out.Data[i] = intervalDuration(a.Data[i], b.Data[i], gapDays)
	}
	return out, nil
}

// Accumulator folds a series of interval durations into one cumulative
// raster. The zero value is ready to use and applies PolicyMasked.
type Accumulator struct {
	// Policy selects how invalid intervals reach the final raster.
	Policy Policy

	// Progress, when non-nil, is called after each interval with the
	// number of intervals finished and the total. It runs on the
	// accumulating goroutine; keep it cheap.
	Progress func(done, total int)
}

// Accumulate sums the per-interval durations across the series into a
// single raster. The result carries the georeference of the first sample
// that has one. At least two samples are required.
func (acc *Accumulator) Accumulate(series *Series) (*raster.Grid, error) {
	n := series.Len()
	if n < 2 {
		return nil, ErrInsufficientData
	}
	if len(series.GapDays) != n {
		return nil, fmt.Errorf("series has %d samples but %d gaps", n, len(series.GapDays))
	}

	first := series.Samples[0].Raster
	total := raster.New(first.Rows, first.Cols)
	var invalid []bool
	if acc.Policy == PolicyMasked {
		invalid = make([]bool, len(total.Data))
	}

	intervals := n - 1
	for i := 1; i < n; i++ {
		prev := series.Samples[i-1].Raster
		cur := series.Samples[i].Raster
		pair, err := PairDuration(prev, cur, series.GapDays[i])
		if err != nil {
			return nil, fmt.Errorf("interval %s to %s: %w",
				series.Samples[i-1].Date.Format("2006-01-02"),
				series.Samples[i].Date.Format("2006-01-02"), err)
		}
		for px, v := range pair.Data {
			switch acc.Policy {
			case PolicyMasked:
				if v < 0 {
					invalid[px] = true
				} else {
					total.Data[px] += v
				}
			default:
				total.Data[px] += v
			}
		}
		if acc.Progress != nil {
			acc.Progress(i, intervals)
		}
	}

	if acc.Policy == PolicyMasked {
		for px, bad := range invalid {
			if bad {
				total.Data[px] = Sentinel
			}
		}
	} else {
		for px, v := range total.Data {
			if v < 0 {
				total.Data[px] = Sentinel
			}
		}
	}

	for _, s := range series.Samples {
		if s.Raster.GeoRef != nil {
			total.GeoRef = s.Raster.GeoRef
			break
		}
	}
	return total, nil
}

// Accumulate runs a zero-value Accumulator over the series.
func Accumulate(series *Series) (*raster.Grid, error) {
	var acc Accumulator
	return acc.Accumulate(series)
}
