package hydroperiod

import (
	"time"

	"github.com/wetlandtools/hydroperiod/pkg/raster"
)

// Series is the validated, chronologically ordered input to accumulation:
// the samples ascending by date and, aligned with them, the whole-day gap
// between each sample and its predecessor. GapDays[0] is always zero; the
// first snapshot has nothing before it to span.
type Series struct {
	Samples []Sample
	GapDays []int
}

// Len returns the number of snapshots in the series.
func (s *Series) Len() int {
	return len(s.Samples)
}

// Start returns the date of the earliest snapshot, or the zero time for an
// empty series.
func (s *Series) Start() time.Time {
	if len(s.Samples) == 0 {
		return time.Time{}
	}
	return s.Samples[0].Date
}

// End returns the date of the latest snapshot, or the zero time for an
// empty series.
func (s *Series) End() time.Time {
	if len(s.Samples) == 0 {
		return time.Time{}
	}
	return s.Samples[len(s.Samples)-1].Date
}

// SpanDays returns the whole days between the first and last snapshots.
func (s *Series) SpanDays() int {
	if len(s.Samples) < 2 {
		return 0
	}
	return daysBetween(s.Start(), s.End())
}

// AssembleSeries validates the store's shapes and produces the ordered
// series with per-step gaps. Dates are already UTC midnights by Store
// construction, so the day count is exact integer arithmetic.
func AssembleSeries(store *Store) (*Series, raster.Shape, error) {
	samples := store.Samples()
	shape, err := ValidateShapes(samples)
	if err != nil {
		return nil, raster.Shape{}, err
	}
	gaps := make([]int, len(samples))
	for i := 1; i < len(samples); i++ {
		gaps[i] = daysBetween(samples[i-1].Date, samples[i].Date)
	}
	return &Series{Samples: samples, GapDays: gaps}, shape, nil
}

// daysBetween counts whole days from a to b, both UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
