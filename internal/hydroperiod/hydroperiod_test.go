package hydroperiod

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wetlandtools/hydroperiod/pkg/raster"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func grid(rows, cols int, vals ...float64) *raster.Grid {
	g := raster.New(rows, cols)
	copy(g.Data, vals)
	return g
}

func TestStoreLastWriteWins(t *testing.T) {
	s := NewStore()
	s.Add(time.Date(2021, time.March, 1, 9, 30, 0, 0, time.UTC), grid(1, 1, 0))
	s.Add(time.Date(2021, time.March, 1, 17, 0, 0, 0, time.UTC), grid(1, 1, 1))

	if s.Len() != 1 {
		t.Fatalf("expected 1 sample after same-day overwrite, got %d", s.Len())
	}
	got := s.Samples()[0]
	if got.Raster.Data[0] != 1 {
		t.Errorf("expected later raster to win, got pixel value %v", got.Raster.Data[0])
	}
	if !got.Date.Equal(day(2021, time.March, 1)) {
		t.Errorf("expected date normalized to UTC midnight, got %s", got.Date)
	}
}

func TestStoreSamplesSorted(t *testing.T) {
	s := NewStore()
	s.Add(day(2021, time.June, 15), grid(1, 1, 1))
	s.Add(day(2021, time.January, 3), grid(1, 1, 0))
	s.Add(day(2021, time.March, 20), grid(1, 1, 1))

	samples := s.Samples()
	for i := 1; i < len(samples); i++ {
		if !samples[i-1].Date.Before(samples[i].Date) {
			t.Fatalf("samples not in ascending date order: %s before %s",
				samples[i-1].Date.Format("2006-01-02"), samples[i].Date.Format("2006-01-02"))
		}
	}
}

func TestValidateShapes(t *testing.T) {
	tests := []struct {
		name      string
		samples   []Sample
		wantShape raster.Shape
		wantErr   bool
	}{
		{
			name:      "empty set passes",
			samples:   nil,
			wantShape: raster.Shape{},
		},
		{
			name: "uniform shapes",
			samples: []Sample{
				{Date: day(2021, time.January, 1), Raster: raster.New(2, 3)},
				{Date: day(2021, time.January, 8), Raster: raster.New(2, 3)},
			},
			wantShape: raster.Shape{Rows: 2, Cols: 3},
		},
		{
			name: "mixed shapes rejected",
			samples: []Sample{
				{Date: day(2021, time.January, 1), Raster: raster.New(2, 3)},
				{Date: day(2021, time.January, 8), Raster: raster.New(3, 3)},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape, err := ValidateShapes(tt.samples)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected shape mismatch error, got nil")
				}
				var sme *ShapeMismatchError
				if !errors.As(err, &sme) {
					t.Fatalf("expected *ShapeMismatchError, got %T", err)
				}
				if len(sme.Shapes) != 2 {
					t.Errorf("expected 2 distinct shapes reported, got %d", len(sme.Shapes))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if shape != tt.wantShape {
				t.Errorf("expected shape %s, got %s", tt.wantShape, shape)
			}
		})
	}
}

func TestAssembleSeriesGaps(t *testing.T) {
	s := NewStore()
	// Inserted out of order on purpose; the series must come back sorted.
	s.Add(day(2021, time.January, 11), grid(1, 1, 1))
	s.Add(day(2021, time.January, 1), grid(1, 1, 0))
	s.Add(day(2021, time.January, 5), grid(1, 1, 1))

	series, shape, err := AssembleSeries(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shape != (raster.Shape{Rows: 1, Cols: 1}) {
		t.Errorf("expected 1x1 shape, got %s", shape)
	}
	wantGaps := []int{0, 4, 6}
	if len(series.GapDays) != len(wantGaps) {
		t.Fatalf("expected %d gaps, got %d", len(wantGaps), len(series.GapDays))
	}
	for i, want := range wantGaps {
		if series.GapDays[i] != want {
			t.Errorf("gap %d: expected %d days, got %d", i, want, series.GapDays[i])
		}
	}
	if series.SpanDays() != 10 {
		t.Errorf("expected 10-day span, got %d", series.SpanDays())
	}
	if !series.Start().Equal(day(2021, time.January, 1)) || !series.End().Equal(day(2021, time.January, 11)) {
		t.Errorf("unexpected series bounds %s to %s",
			series.Start().Format("2006-01-02"), series.End().Format("2006-01-02"))
	}
}

func TestPairDuration(t *testing.T) {
	a := grid(2, 2, 0, 1, 1, 2)
	b := grid(2, 2, 0, 0, 1, 1)

	pair, err := PairDuration(a, b, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Sums 0, 1, 2 and 3 over a 7-day gap.
	want := []float64{0, 3, 7, -1}
	for i, w := range want {
		if pair.Data[i] != w {
			t.Errorf("pixel %d: expected %v, got %v", i, w, pair.Data[i])
		}
	}
}

func TestPairDurationGapMonotonic(t *testing.T) {
	// Longer gaps can only hold durations steady or grow them, for both
	// the transition and the fully-wet case.
	a := grid(1, 2, 0, 1)
	b := grid(1, 2, 1, 1)

	prevTransition, prevWet := -1.0, -1.0
	for gap := 0; gap <= 30; gap++ {
		pair, err := PairDuration(a, b, gap)
		if err != nil {
			t.Fatalf("gap %d: unexpected error: %v", gap, err)
		}
		if pair.Data[0] < prevTransition {
			t.Errorf("gap %d: transition duration decreased from %v to %v", gap, prevTransition, pair.Data[0])
		}
		if pair.Data[1] < prevWet {
			t.Errorf("gap %d: wet duration decreased from %v to %v", gap, prevWet, pair.Data[1])
		}
		prevTransition, prevWet = pair.Data[0], pair.Data[1]
	}
}

func TestPairDurationShapeMismatch(t *testing.T) {
	_, err := PairDuration(raster.New(2, 2), raster.New(2, 3), 5)
	if err == nil {
		t.Fatal("expected error for mismatched shapes, got nil")
	}
	var sme *ShapeMismatchError
	if !errors.As(err, &sme) {
		t.Fatalf("expected *ShapeMismatchError, got %T", err)
	}
}

func TestAccumulate(t *testing.T) {
	tests := []struct {
		name   string
		dates  []time.Time
		values []float64
		policy Policy
		want   float64
	}{
		{
			name:   "never wet stays zero",
			dates:  []time.Time{day(2021, time.April, 1), day(2021, time.April, 9), day(2021, time.April, 20)},
			values: []float64{0, 0, 0},
			want:   0,
		},
		{
			name:   "wet throughout counts every day",
			dates:  []time.Time{day(2021, time.April, 1), day(2021, time.April, 11)},
			values: []float64{1, 1},
			want:   10,
		},
		{
			name:   "dry to wet transitions at midpoint",
			dates:  []time.Time{day(2021, time.April, 1), day(2021, time.April, 11)},
			values: []float64{0, 1},
			want:   5,
		},
		{
			name:   "wet to dry scores the same as dry to wet",
			dates:  []time.Time{day(2021, time.April, 1), day(2021, time.April, 11)},
			values: []float64{1, 0},
			want:   5,
		},
		{
			name:   "odd gap rounds the midpoint down",
			dates:  []time.Time{day(2021, time.April, 1), day(2021, time.April, 12)},
			values: []float64{0, 1},
			want:   5,
		},
		{
			name:   "contributions sum across intervals",
			dates:  []time.Time{day(2021, time.January, 1), day(2021, time.January, 5), day(2021, time.January, 11)},
			values: []float64{0, 1, 1},
			want:   8, // 4/2 from the transition plus 6 fully wet
		},
		{
			name:   "contaminated pair flagged under masked policy",
			dates:  []time.Time{day(2021, time.April, 1), day(2021, time.April, 11)},
			values: []float64{3, 1},
			policy: PolicyMasked,
			want:   -1,
		},
		{
			name:   "contaminated pair flagged under legacy policy",
			dates:  []time.Time{day(2021, time.April, 1), day(2021, time.April, 11)},
			values: []float64{3, 1},
			policy: PolicyLegacyClamp,
			want:   -1,
		},
		{
			name:   "invalid interval poisons pixel under masked policy",
			dates:  []time.Time{day(2020, time.January, 1), day(2020, time.January, 2), day(2020, time.February, 21)},
			values: []float64{3, 1, 1},
			policy: PolicyMasked,
			want:   -1,
		},
		{
			name:   "invalid interval escapes legacy clamp when later sums dominate",
			dates:  []time.Time{day(2020, time.January, 1), day(2020, time.January, 2), day(2020, time.February, 21)},
			values: []float64{3, 1, 1},
			policy: PolicyLegacyClamp,
			want:   49, // -1 sentinel swallowed by the 50 wet days that follow
		},
		{
			name:   "repeatedly invalid still clamps under legacy policy",
			dates:  []time.Time{day(2021, time.April, 1), day(2021, time.April, 11), day(2021, time.April, 21)},
			values: []float64{3, 1, 3},
			policy: PolicyLegacyClamp,
			want:   -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			for i, d := range tt.dates {
				s.Add(d, grid(1, 1, tt.values[i]))
			}
			series, _, err := AssembleSeries(s)
			if err != nil {
				t.Fatalf("unexpected error assembling series: %v", err)
			}
			acc := Accumulator{Policy: tt.policy}
			total, err := acc.Accumulate(series)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := total.Data[0]; got != tt.want {
				t.Errorf("expected %v days, got %v", tt.want, got)
			}
		})
	}
}

func TestAccumulateOrderInsensitive(t *testing.T) {
	dates := []time.Time{
		day(2021, time.January, 1),
		day(2021, time.January, 5),
		day(2021, time.January, 11),
	}
	values := []float64{0, 1, 1}

	run := func(order []int) float64 {
		s := NewStore()
		for _, i := range order {
			s.Add(dates[i], grid(1, 1, values[i]))
		}
		series, _, err := AssembleSeries(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		total, err := Accumulate(series)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return total.Data[0]
	}

	want := run([]int{0, 1, 2})
	for _, order := range [][]int{{2, 0, 1}, {1, 2, 0}, {2, 1, 0}} {
		if got := run(order); got != want {
			t.Errorf("insertion order %v changed result: expected %v, got %v", order, want, got)
		}
	}
}

func TestAccumulateInsufficientData(t *testing.T) {
	for _, n := range []int{0, 1} {
		s := NewStore()
		for i := 0; i < n; i++ {
			s.Add(day(2021, time.May, 1+i), grid(1, 1, 1))
		}
		series, _, err := AssembleSeries(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := Accumulate(series); !errors.Is(err, ErrInsufficientData) {
			t.Errorf("%d samples: expected ErrInsufficientData, got %v", n, err)
		}
	}
}

func TestAccumulateProgress(t *testing.T) {
	s := NewStore()
	for i := 0; i < 4; i++ {
		s.Add(day(2021, time.May, 1+7*i), grid(1, 1, 1))
	}
	series, _, err := AssembleSeries(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var calls []int
	acc := Accumulator{Progress: func(done, total int) {
		if total != 3 {
			t.Errorf("expected 3 total intervals, got %d", total)
		}
		calls = append(calls, done)
	}}
	if _, err := acc.Accumulate(series); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 3 || calls[2] != 3 {
		t.Errorf("expected progress calls 1..3, got %v", calls)
	}
}

func TestAccumulateCarriesGeoRef(t *testing.T) {
	ref := &raster.GeoRef{Transform: [6]float64{500000, 30, 0, 4200000, 0, -30}}
	g1 := grid(1, 1, 1)
	g1.GeoRef = ref
	g2 := grid(1, 1, 1)

	s := NewStore()
	s.Add(day(2021, time.May, 1), g1)
	s.Add(day(2021, time.May, 11), g2)
	series, _, err := AssembleSeries(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total, err := Accumulate(series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total.GeoRef != ref {
		t.Error("expected georeference from first sample to carry through")
	}
}

func TestSummarize(t *testing.T) {
	g := grid(2, 2, -1, 0, 3, 7)
	s := Summarize(g)

	if s.TotalPixels != 4 || s.InvalidPixels != 1 || s.NeverWet != 1 || s.WetPixels != 2 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.MinDays != 0 || s.MaxDays != 7 {
		t.Errorf("expected min 0 max 7, got min %v max %v", s.MinDays, s.MaxDays)
	}
	if math.Abs(s.MeanDays-10.0/3.0) > 1e-9 {
		t.Errorf("expected mean %.4f, got %.4f", 10.0/3.0, s.MeanDays)
	}
	// Sample standard deviation of 0, 3, 7.
	if math.Abs(s.StdDevDays-3.5119) > 0.001 {
		t.Errorf("expected stddev 3.5119, got %.4f", s.StdDevDays)
	}
	if s.MedianDays != 3 {
		t.Errorf("expected median 3, got %v", s.MedianDays)
	}
}

func TestSummarizeAllInvalid(t *testing.T) {
	s := Summarize(grid(1, 2, -1, -1))
	if s.InvalidPixels != 2 || s.WetPixels != 0 || s.NeverWet != 0 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.MinDays != 0 || s.MaxDays != 0 || s.MeanDays != 0 {
		t.Errorf("expected zeroed stats with no valid pixels, got %+v", s)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "", want: PolicyMasked},
		{in: "masked", want: PolicyMasked},
		{in: "legacy-clamp", want: PolicyLegacyClamp},
		{in: "legacy", want: PolicyLegacyClamp},
		{in: "strict", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePolicy(%q): expected error, got nil", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePolicy(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestCivilDate(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	in := time.Date(2021, time.March, 1, 22, 15, 0, 0, est) // 2021-03-02 03:15 UTC
	got := CivilDate(in)
	if !got.Equal(day(2021, time.March, 2)) {
		t.Errorf("expected UTC date 2021-03-02, got %s", got.Format("2006-01-02"))
	}
}
