// Package main converts YAML configuration files to SQLite databases.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wetlandtools/hydroperiod/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Check if YAML file exists
	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	// Check if SQLite file already exists
	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
	}

	// Load YAML configuration
	fmt.Printf("Loading YAML configuration...\n")
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	configData, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}

	printConfigSummary(configData)

	if *dryRun {
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing database: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Writing SQLite configuration...\n")
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	if err := sqliteProvider.SaveConfig(configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving configuration: %v\n", err)
		os.Exit(1)
	}

	// Verify the conversion by reading the configuration back
	fmt.Printf("Verifying conversion...\n")
	converted, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error verifying converted configuration: %v\n", err)
		os.Exit(1)
	}
	if converted.Input.Directory != configData.Input.Directory {
		fmt.Fprintf(os.Stderr, "Verification failed: input directory mismatch (%s vs %s)\n",
			converted.Input.Directory, configData.Input.Directory)
		os.Exit(1)
	}
	if converted.Output.Directory != configData.Output.Directory {
		fmt.Fprintf(os.Stderr, "Verification failed: output directory mismatch (%s vs %s)\n",
			converted.Output.Directory, configData.Output.Directory)
		os.Exit(1)
	}

	fmt.Printf("Conversion complete: %s\n", *sqliteFile)
}

func printConfigSummary(cfg *config.ConfigData) {
	fmt.Printf("Configuration summary:\n")
	fmt.Printf("  Input directory:  %s\n", cfg.Input.Directory)
	if cfg.Input.DateLayout != "" {
		fmt.Printf("  Date layout:      %s\n", cfg.Input.DateLayout)
	}
	if len(cfg.Input.Extensions) > 0 {
		fmt.Printf("  Extensions:       %v\n", cfg.Input.Extensions)
	}
	if cfg.Compute.Policy != "" {
		fmt.Printf("  Policy:           %s\n", cfg.Compute.Policy)
	}
	fmt.Printf("  Output directory: %s\n", cfg.Output.Directory)
	if cfg.Output.RasterFormat != "" {
		fmt.Printf("  Raster format:    %s\n", cfg.Output.RasterFormat)
	}
	fmt.Printf("  Visualization:    %v\n", cfg.Output.Visualization)
	if cfg.Catalog.Path != "" {
		fmt.Printf("  Catalog:          %s\n", cfg.Catalog.Path)
	}
	if cfg.Server != nil {
		fmt.Printf("  Server:           %s:%d", cfg.Server.ListenAddr, cfg.Server.Port)
		if cfg.Server.RescanInterval != "" {
			fmt.Printf(" (rescan every %s)", cfg.Server.RescanInterval)
		}
		fmt.Println()
	}
}
