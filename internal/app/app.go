// Package app wires configuration, loading, accumulation, and product
// output into a single hydroperiod pipeline run.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wetlandtools/hydroperiod/internal/catalog"
	"github.com/wetlandtools/hydroperiod/internal/hydroperiod"
	"github.com/wetlandtools/hydroperiod/internal/loader"
	"github.com/wetlandtools/hydroperiod/pkg/colormap"
	"github.com/wetlandtools/hydroperiod/pkg/config"
	"github.com/wetlandtools/hydroperiod/pkg/raster"
	"go.uber.org/zap"
)

// Product basenames written into the output directory. Recomputing
// overwrites them in place; the catalog keeps the per-run statistics.
const (
	rasterBaseName        = "hydroperiod"
	visualizationBaseName = "hydroperiod.png"
)

// App represents the hydroperiod pipeline application.
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger

	// Progress, when set, receives accumulation progress after each
	// pairwise interval is folded in.
	Progress func(done, total int)
}

// RunResult captures the outcome of a single pipeline run.
type RunResult struct {
	RunID             string
	SampleCount       int
	StartDate         time.Time
	EndDate           time.Time
	SpanDays          int
	Shape             raster.Shape
	Policy            hydroperiod.Policy
	Summary           hydroperiod.Summary
	RasterPath        string
	VisualizationPath string
	Elapsed           time.Duration
}

// New creates a new application instance.
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// RunOnce executes the full pipeline a single time: scan the input
// directory, accumulate inundation durations, write the output raster
// and optional visualization, and record the run in the catalog when
// one is configured.
func (a *App) RunOnce(ctx context.Context) (*RunResult, error) {
	start := time.Now()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Input.Directory == "" {
		return nil, fmt.Errorf("no input directory configured")
	}
	if cfg.Output.Directory == "" {
		return nil, fmt.Errorf("no output directory configured")
	}

	policy, err := hydroperiod.ParsePolicy(cfg.Compute.Policy)
	if err != nil {
		return nil, err
	}

	ld := loader.New(cfg.Input.DateLayout, cfg.Input.Extensions, a.logger)
	store, ref, err := ld.Scan(cfg.Input.Directory)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	series, shape, err := hydroperiod.AssembleSeries(store)
	if err != nil {
		return nil, err
	}

	acc := hydroperiod.Accumulator{Policy: policy, Progress: a.Progress}
	total, err := acc.Accumulate(series)
	if err != nil {
		return nil, err
	}
	if total.GeoRef == nil {
		total.GeoRef = ref
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	rasterPath, err := a.writeRaster(cfg.Output, total)
	if err != nil {
		return nil, err
	}
	a.logger.Infof("wrote hydroperiod raster to %s", rasterPath)

	var visualizationPath string
	if cfg.Output.Visualization {
		visualizationPath = filepath.Join(cfg.Output.Directory, visualizationBaseName)
		if err := colormap.WritePNG(visualizationPath, total, colormap.Crest()); err != nil {
			return nil, fmt.Errorf("failed to write visualization: %w", err)
		}
		a.logger.Infof("wrote visualization to %s", visualizationPath)
	}

	summary := hydroperiod.Summarize(total)

	result := &RunResult{
		SampleCount:       series.Len(),
		StartDate:         series.Start(),
		EndDate:           series.End(),
		SpanDays:          series.SpanDays(),
		Shape:             shape,
		Policy:            policy,
		Summary:           summary,
		RasterPath:        rasterPath,
		VisualizationPath: visualizationPath,
		Elapsed:           time.Since(start),
	}

	if cfg.Catalog.Path != "" {
		run, err := a.recordRun(cfg, result)
		if err != nil {
			return nil, err
		}
		result.RunID = run.ID
		a.logger.Infof("recorded run %s in catalog %s", run.ID, cfg.Catalog.Path)
	}

	return result, nil
}

// writeRaster writes the accumulated grid in the configured format and
// returns the path written. The sentinel value marks invalid pixels in
// the nodata metadata of both formats.
func (a *App) writeRaster(out config.OutputData, g *raster.Grid) (string, error) {
	format := out.RasterFormat
	if format == "" {
		format = "geotiff"
	}
	switch format {
	case "geotiff":
		fp := filepath.Join(out.Directory, rasterBaseName+".tif")
		if err := raster.WriteGeoTIFF(fp, g, hydroperiod.Sentinel); err != nil {
			return "", fmt.Errorf("failed to write GeoTIFF: %w", err)
		}
		return fp, nil
	case "bil":
		fp := filepath.Join(out.Directory, rasterBaseName+".bil")
		if err := raster.WriteBIL(fp, g, hydroperiod.Sentinel); err != nil {
			return "", fmt.Errorf("failed to write BIL: %w", err)
		}
		return fp, nil
	default:
		return "", fmt.Errorf("unknown raster format %q (want geotiff or bil)", format)
	}
}

// recordRun persists the run's statistics to the configured catalog.
func (a *App) recordRun(cfg *config.ConfigData, result *RunResult) (*catalog.Run, error) {
	cat, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	defer cat.Close()

	run := &catalog.Run{
		InputDir:          cfg.Input.Directory,
		SampleCount:       result.SampleCount,
		StartDate:         result.StartDate.Format("2006-01-02"),
		EndDate:           result.EndDate.Format("2006-01-02"),
		SpanDays:          result.SpanDays,
		Rows:              result.Shape.Rows,
		Cols:              result.Shape.Cols,
		Policy:            result.Policy.String(),
		TotalPixels:       result.Summary.TotalPixels,
		InvalidPixels:     result.Summary.InvalidPixels,
		NeverWet:          result.Summary.NeverWet,
		WetPixels:         result.Summary.WetPixels,
		MinDays:           result.Summary.MinDays,
		MaxDays:           result.Summary.MaxDays,
		MeanDays:          result.Summary.MeanDays,
		StdDevDays:        result.Summary.StdDevDays,
		MedianDays:        result.Summary.MedianDays,
		RasterPath:        result.RasterPath,
		VisualizationPath: result.VisualizationPath,
	}
	if err := cat.RecordRun(run); err != nil {
		return nil, err
	}
	return run, nil
}
