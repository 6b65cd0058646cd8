package app

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wetlandtools/hydroperiod/internal/catalog"
	"github.com/wetlandtools/hydroperiod/internal/hydroperiod"
	"github.com/wetlandtools/hydroperiod/pkg/config"
	"github.com/wetlandtools/hydroperiod/pkg/raster"
	"go.uber.org/zap"
)

func writeMask(t *testing.T, dir, name string, vals []float64, ref *raster.GeoRef) {
	t.Helper()
	g := raster.New(1, len(vals))
	copy(g.Data, vals)
	g.GeoRef = ref
	if err := raster.WriteMaskTIFF(filepath.Join(dir, name), g); err != nil {
		t.Fatalf("WriteMaskTIFF(%s): %v", name, err)
	}
}

func providerFromYAML(t *testing.T, yaml string) *config.YAMLProvider {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(fp, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return config.NewYAMLProvider(fp)
}

func TestRunOncePipeline(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "products")
	catalogPath := filepath.Join(t.TempDir(), "catalog.db")

	ref := &raster.GeoRef{
		Transform:  [6]float64{683000, 30, 0, 4925000, 0, -30},
		Projection: `PROJCS["NAD83 / UTM zone 17N"]`,
	}
	writeMask(t, inputDir, "2021_01_01.tif", []float64{0, 1}, ref)
	writeMask(t, inputDir, "2021_01_11.tif", []float64{0, 1}, nil)
	writeMask(t, inputDir, "2021_01_21.tif", []float64{1, 1}, nil)

	provider := providerFromYAML(t, fmt.Sprintf(`input:
  directory: %s
output:
  directory: %s
  raster-format: bil
  visualization: true
catalog:
  path: %s
`, inputDir, outputDir, catalogPath))

	a := New(provider, zap.NewNop().Sugar())
	var calls [][2]int
	a.Progress = func(done, total int) {
		calls = append(calls, [2]int{done, total})
	}

	result, err := a.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if result.SampleCount != 3 {
		t.Errorf("SampleCount = %d, want 3", result.SampleCount)
	}
	if want := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC); !result.StartDate.Equal(want) {
		t.Errorf("StartDate = %v, want %v", result.StartDate, want)
	}
	if want := time.Date(2021, 1, 21, 0, 0, 0, 0, time.UTC); !result.EndDate.Equal(want) {
		t.Errorf("EndDate = %v, want %v", result.EndDate, want)
	}
	if result.SpanDays != 20 {
		t.Errorf("SpanDays = %d, want 20", result.SpanDays)
	}
	if result.Shape != (raster.Shape{Rows: 1, Cols: 2}) {
		t.Errorf("Shape = %v, want 1x2", result.Shape)
	}
	if result.Policy != hydroperiod.PolicyMasked {
		t.Errorf("Policy = %v, want masked", result.Policy)
	}

	// Pixel 0: (0,0) over 10 days, then (0,1) -> 0 + 5.
	// Pixel 1: (1,1) twice -> 10 + 10.
	if result.Summary.MinDays != 5 || result.Summary.MaxDays != 20 {
		t.Errorf("Summary min/max = %v/%v, want 5/20", result.Summary.MinDays, result.Summary.MaxDays)
	}
	if math.Abs(result.Summary.MeanDays-12.5) > 1e-9 {
		t.Errorf("Summary.MeanDays = %v, want 12.5", result.Summary.MeanDays)
	}
	if result.Summary.WetPixels != 2 || result.Summary.InvalidPixels != 0 {
		t.Errorf("Summary wet/invalid = %d/%d, want 2/0", result.Summary.WetPixels, result.Summary.InvalidPixels)
	}

	if len(calls) != 2 {
		t.Fatalf("progress calls = %d, want 2", len(calls))
	}
	if calls[1] != [2]int{2, 2} {
		t.Errorf("final progress call = %v, want [2 2]", calls[1])
	}

	if want := filepath.Join(outputDir, "hydroperiod.bil"); result.RasterPath != want {
		t.Errorf("RasterPath = %s, want %s", result.RasterPath, want)
	}
	got, err := raster.ReadBIL(result.RasterPath)
	if err != nil {
		t.Fatalf("ReadBIL: %v", err)
	}
	if want := []float64{5, 20}; got.Data[0] != want[0] || got.Data[1] != want[1] {
		t.Errorf("output data = %v, want %v", got.Data, want)
	}
	if got.GeoRef == nil {
		t.Fatal("output raster lost its georeference")
	}
	if got.GeoRef.Transform != ref.Transform {
		t.Errorf("output transform = %v, want %v", got.GeoRef.Transform, ref.Transform)
	}
	if got.GeoRef.Projection != ref.Projection {
		t.Errorf("output projection = %q, want %q", got.GeoRef.Projection, ref.Projection)
	}

	if result.VisualizationPath == "" {
		t.Fatal("expected a visualization path")
	}
	vf, err := os.Open(result.VisualizationPath)
	if err != nil {
		t.Fatalf("open visualization: %v", err)
	}
	defer vf.Close()
	img, err := png.Decode(vf)
	if err != nil {
		t.Fatalf("decode visualization: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Errorf("visualization size = %dx%d, want 2x1", b.Dx(), b.Dy())
	}

	if result.RunID == "" {
		t.Fatal("expected a run ID when the catalog is configured")
	}
	cat, err := catalog.Open(catalogPath)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer cat.Close()
	run, err := cat.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run.ID != result.RunID {
		t.Errorf("catalog run ID = %s, want %s", run.ID, result.RunID)
	}
	if run.SampleCount != 3 || run.SpanDays != 20 {
		t.Errorf("catalog samples/span = %d/%d, want 3/20", run.SampleCount, run.SpanDays)
	}
	if run.StartDate != "2021-01-01" || run.EndDate != "2021-01-21" {
		t.Errorf("catalog dates = %s..%s, want 2021-01-01..2021-01-21", run.StartDate, run.EndDate)
	}
	if run.Policy != "masked" {
		t.Errorf("catalog policy = %s, want masked", run.Policy)
	}
	if run.RasterPath != result.RasterPath {
		t.Errorf("catalog raster path = %s, want %s", run.RasterPath, result.RasterPath)
	}
	if run.VisualizationPath != result.VisualizationPath {
		t.Errorf("catalog visualization path = %s, want %s", run.VisualizationPath, result.VisualizationPath)
	}
}

func TestRunOnceDefaultsToGeoTIFF(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeMask(t, inputDir, "2020_05_01.tif", []float64{1}, nil)
	writeMask(t, inputDir, "2020_05_11.tif", []float64{1}, nil)

	provider := providerFromYAML(t, fmt.Sprintf("input:\n  directory: %s\noutput:\n  directory: %s\n", inputDir, outputDir))
	a := New(provider, zap.NewNop().Sugar())

	result, err := a.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if want := filepath.Join(outputDir, "hydroperiod.tif"); result.RasterPath != want {
		t.Errorf("RasterPath = %s, want %s", result.RasterPath, want)
	}
	if _, err := os.Stat(result.RasterPath); err != nil {
		t.Errorf("output raster missing: %v", err)
	}
	if result.VisualizationPath != "" {
		t.Errorf("unexpected visualization path %s", result.VisualizationPath)
	}
	if result.RunID != "" {
		t.Errorf("unexpected run ID %s without a catalog", result.RunID)
	}
	if result.Summary.MaxDays != 10 {
		t.Errorf("Summary.MaxDays = %v, want 10", result.Summary.MaxDays)
	}
}

func TestRunOnceLegacyPolicy(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeMask(t, inputDir, "2020_05_01.tif", []float64{1}, nil)
	writeMask(t, inputDir, "2020_05_11.tif", []float64{1}, nil)

	provider := providerFromYAML(t, fmt.Sprintf("input:\n  directory: %s\ncompute:\n  policy: legacy-clamp\noutput:\n  directory: %s\n", inputDir, outputDir))
	a := New(provider, zap.NewNop().Sugar())

	result, err := a.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if result.Policy != hydroperiod.PolicyLegacyClamp {
		t.Errorf("Policy = %v, want legacy-clamp", result.Policy)
	}
}

func TestRunOnceInsufficientData(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeMask(t, inputDir, "2020_05_01.tif", []float64{1}, nil)

	provider := providerFromYAML(t, fmt.Sprintf("input:\n  directory: %s\noutput:\n  directory: %s\n", inputDir, outputDir))
	a := New(provider, zap.NewNop().Sugar())

	if _, err := a.RunOnce(context.Background()); !errors.Is(err, hydroperiod.ErrInsufficientData) {
		t.Fatalf("RunOnce error = %v, want ErrInsufficientData", err)
	}
}

func TestRunOnceConfigErrors(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeMask(t, inputDir, "2021_01_01.tif", []float64{1}, nil)
	writeMask(t, inputDir, "2021_01_06.tif", []float64{1}, nil)

	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing input directory",
			yaml: fmt.Sprintf("output:\n  directory: %s\n", outputDir),
		},
		{
			name: "missing output directory",
			yaml: fmt.Sprintf("input:\n  directory: %s\n", inputDir),
		},
		{
			name: "unknown raster format",
			yaml: fmt.Sprintf("input:\n  directory: %s\noutput:\n  directory: %s\n  raster-format: netcdf\n", inputDir, outputDir),
		},
		{
			name: "unknown policy",
			yaml: fmt.Sprintf("input:\n  directory: %s\ncompute:\n  policy: strict\noutput:\n  directory: %s\n", inputDir, outputDir),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(providerFromYAML(t, tt.yaml), zap.NewNop().Sugar())
			if _, err := a.RunOnce(context.Background()); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestRunOnceCancelledContext(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeMask(t, inputDir, "2021_01_01.tif", []float64{1}, nil)
	writeMask(t, inputDir, "2021_01_06.tif", []float64{1}, nil)

	provider := providerFromYAML(t, fmt.Sprintf("input:\n  directory: %s\noutput:\n  directory: %s\n", inputDir, outputDir))
	a := New(provider, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunOnce error = %v, want context.Canceled", err)
	}
}
