package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/wetlandtools/hydroperiod/internal/app"
	"github.com/wetlandtools/hydroperiod/internal/log"
	"github.com/wetlandtools/hydroperiod/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	inputDir := flag.String("input", "", "Override the configured input directory")
	policy := flag.String("policy", "", "Override the configured invalidity policy: 'masked' or 'legacy-clamp'")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("hydroperiod %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	base, err := newConfigProvider(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	defer base.Close()

	var provider config.ConfigProvider = base
	if *inputDir != "" || *policy != "" {
		provider = &overrideProvider{ConfigProvider: base, inputDir: *inputDir, policy: *policy}
	}

	application := app.New(provider, log.GetSugaredLogger())

	// The bar total is the interval count, which is only known once the
	// accumulator starts, so the bar is created on the first callback.
	var bar *uiprogress.Bar
	application.Progress = func(done, total int) {
		if bar == nil {
			uiprogress.Start()
			bar = uiprogress.AddBar(total).AppendCompleted().PrependElapsed()
		}
		bar.Set(done)
	}

	result, err := application.RunOnce(context.Background())
	if bar != nil {
		uiprogress.Stop()
	}
	if err != nil {
		log.Errorf("Hydroperiod computation failed: %v", err)
		os.Exit(1)
	}

	printReport(result)
}

// overrideProvider applies command-line overrides on top of the
// underlying configuration source.
type overrideProvider struct {
	config.ConfigProvider
	inputDir string
	policy   string
}

func (o *overrideProvider) LoadConfig() (*config.ConfigData, error) {
	cfg, err := o.ConfigProvider.LoadConfig()
	if err != nil {
		return nil, err
	}
	if o.inputDir != "" {
		cfg.Input.Directory = o.inputDir
	}
	if o.policy != "" {
		cfg.Compute.Policy = o.policy
	}
	return cfg, nil
}

func newConfigProvider(cfgFile, cfgBackend string) (config.ConfigProvider, error) {
	filename, _ := filepath.Abs(cfgFile)

	switch cfgBackend {
	case "yaml":
		return config.NewYAMLProvider(filename), nil
	case "sqlite":
		provider, err := config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
}

func printReport(result *app.RunResult) {
	fmt.Printf("\nHydroperiod Summary\n")
	fmt.Printf("===================\n\n")
	fmt.Printf("Series:\n")
	fmt.Printf("  Rasters:        %d\n", result.SampleCount)
	fmt.Printf("  Period:         %s to %s (%d days)\n",
		result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02"), result.SpanDays)
	fmt.Printf("  Shape:          %s\n", result.Shape)
	fmt.Printf("  Policy:         %s\n\n", result.Policy)

	s := result.Summary
	fmt.Printf("Inundation days per pixel:\n")
	fmt.Printf("  Wet pixels:     %d of %d\n", s.WetPixels, s.TotalPixels)
	fmt.Printf("  Never wet:      %d\n", s.NeverWet)
	fmt.Printf("  Invalid:        %d\n", s.InvalidPixels)
	fmt.Printf("  Min / Max:      %.1f / %.1f\n", s.MinDays, s.MaxDays)
	fmt.Printf("  Mean:           %.2f (stddev %.2f)\n", s.MeanDays, s.StdDevDays)
	fmt.Printf("  Median:         %.2f\n\n", s.MedianDays)

	fmt.Printf("Products:\n")
	fmt.Printf("  Raster:         %s\n", result.RasterPath)
	if result.VisualizationPath != "" {
		fmt.Printf("  Visualization:  %s\n", result.VisualizationPath)
	}
	if result.RunID != "" {
		fmt.Printf("  Catalog run:    %s\n", result.RunID)
	}
	fmt.Printf("  Elapsed:        %s\n", result.Elapsed.Round(time.Millisecond))
}
