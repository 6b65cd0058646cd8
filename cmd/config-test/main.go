// Package main compares a YAML configuration against a SQLite one,
// section by section. Useful after a config-convert to confirm the
// database matches the source file.
package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/wetlandtools/hydroperiod/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	// Load YAML configuration
	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	yamlConfig, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	// Load SQLite configuration
	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	// Compare configurations
	fmt.Println("\nComparison Results:")
	fmt.Println("==================")

	matches := true
	matches = compareSection("Input", yamlConfig.Input, sqliteConfig.Input) && matches
	matches = compareSection("Compute", yamlConfig.Compute, sqliteConfig.Compute) && matches
	matches = compareSection("Output", yamlConfig.Output, sqliteConfig.Output) && matches
	matches = compareSection("Catalog", yamlConfig.Catalog, sqliteConfig.Catalog) && matches
	matches = compareServer(yamlConfig.Server, sqliteConfig.Server) && matches

	fmt.Println()
	if !matches {
		fmt.Println("✗ Configurations differ")
		os.Exit(1)
	}
	fmt.Println("✓ Configurations match")
}

func compareSection(name string, yamlSection, sqliteSection interface{}) bool {
	if reflect.DeepEqual(yamlSection, sqliteSection) {
		fmt.Printf("✓ %s section matches\n", name)
		return true
	}
	fmt.Printf("✗ %s section differs:\n", name)
	fmt.Printf("    YAML:   %+v\n", yamlSection)
	fmt.Printf("    SQLite: %+v\n", sqliteSection)
	return false
}

func compareServer(yamlServer, sqliteServer *config.ServerData) bool {
	if yamlServer == nil && sqliteServer == nil {
		fmt.Println("✓ Server section absent in both")
		return true
	}
	if yamlServer == nil || sqliteServer == nil {
		fmt.Printf("✗ Server section present in only one source (YAML: %v, SQLite: %v)\n",
			yamlServer != nil, sqliteServer != nil)
		return false
	}
	return compareSection("Server", *yamlServer, *sqliteServer)
}
