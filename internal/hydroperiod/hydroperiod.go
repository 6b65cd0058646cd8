// Package hydroperiod computes cumulative inundation duration maps from a
// date-ordered stack of binary wet/dry classification rasters.
//
// Each consecutive pair of snapshots contributes an estimated wet duration
// per pixel based on the pair's combined state and the elapsed days between
// acquisitions; the contributions sum into a single duration raster. Pixels
// whose inputs are not clean 0/1 classes are flagged with the -1 sentinel
// rather than failing the whole stack.
package hydroperiod

import (
	"fmt"
	"sort"
	"time"

	"github.com/wetlandtools/hydroperiod/pkg/raster"
)

// Sentinel marks a pixel whose duration is undefined, in interval rasters
// and in the final product alike. It doubles as the conventional nodata
// value attached by the raster writers.
const Sentinel = -1

// Sample is one dated wet/dry snapshot. Raster pixels are expected to be
// exactly 0 (dry) or 1 (wet); anything else is contaminating input that the
// accumulator resolves per pixel, not a load-time error.
type Sample struct {
	Date   time.Time
	Raster *raster.Grid
}

// Store holds the loaded sample set keyed by acquisition date. Dates are
// unique: adding a sample for an existing date silently replaces the earlier
// one (last write wins). The store has no behavior beyond in-memory keeping;
// validation and ordering are downstream concerns.
type Store struct {
	samples map[time.Time]*raster.Grid
}

// NewStore creates an empty sample store.
func NewStore() *Store {
	return &Store{samples: make(map[time.Time]*raster.Grid)}
}

// Add inserts a sample, normalizing the date to a UTC civil date so that two
// timestamps on the same calendar day collide deliberately.
func (s *Store) Add(date time.Time, g *raster.Grid) {
	s.samples[CivilDate(date)] = g
}

// Len returns the number of distinct dated samples held.
func (s *Store) Len() int {
	return len(s.samples)
}

// Samples returns the held set as a slice sorted ascending by date, for
// read-only downstream consumption.
func (s *Store) Samples() []Sample {
	out := make([]Sample, 0, len(s.samples))
	for date, g := range s.samples {
		out = append(out, Sample{Date: date, Raster: g})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// CivilDate strips a timestamp down to its UTC calendar date. All date
// arithmetic in this package runs on UTC midnights so day counts can never
// pick up daylight-saving offsets.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Policy selects how per-interval invalidity reaches the final raster.
type Policy int

const (
	// PolicyMasked tracks validity explicitly: any invalid interval at a
	// pixel forces the final value to the sentinel no matter how large the
	// valid contributions are. This is the default.
	PolicyMasked Policy = iota

	// PolicyLegacyClamp reproduces the historical arithmetic bit-for-bit:
	// the -1 sentinel participates in the sum and only final values below
	// zero clamp to the sentinel. A pixel with one invalid interval and
	// large valid ones escapes flagging (e.g. -1 then +50 ends at 49);
	// choose this policy only when outputs must match prior runs.
	PolicyLegacyClamp
)

func (p Policy) String() string {
	switch p {
	case PolicyMasked:
		return "masked"
	case PolicyLegacyClamp:
		return "legacy-clamp"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "masked":
		return PolicyMasked, nil
	case "legacy-clamp", "legacy":
		return PolicyLegacyClamp, nil
	default:
		return PolicyMasked, fmt.Errorf("unknown invalidity policy %q (want masked or legacy-clamp)", s)
	}
}
