package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/matheusrwh/export-potential/internal/config"
	"github.com/matheusrwh/export-potential/internal/epi"
	"github.com/matheusrwh/export-potential/internal/exporter"
	"github.com/matheusrwh/export-potential/internal/references"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML run configuration")
	outputDir := flag.String("out", "", "output directory (overrides the configured one)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.Paths.OutputDir = *outputDir
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	inputs, err := loadInputs(cfg, logger)
	if err != nil {
		logger.Error("Failed to load inputs", "error", err)
		os.Exit(1)
	}

	pipeline, err := epi.NewPipeline(cfg.ModelParams(), cfg.CategorizerParams(), logger)
	if err != nil {
		logger.Error("Failed to build pipeline", "error", err)
		os.Exit(1)
	}

	result, err := pipeline.Run(context.Background(), *inputs)
	if err != nil {
		logger.Error("Pipeline run failed", "error", err)
		os.Exit(1)
	}

	writer := exporter.NewWriter(cfg.Paths.OutputDir, logger)
	if err := writer.WriteResult(result); err != nil {
		logger.Error("Failed to write output tables", "error", err)
		os.Exit(1)
	}
	if cfg.Output.FocusProduct != "" {
		product := references.NormalizeProductCode(cfg.Output.FocusProduct)
		if err := writer.WriteFocusExcel(result.Records, product); err != nil {
			logger.Error("Failed to write focus product workbook", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("EPI report generated",
		"run_id", result.RunID,
		"output_dir", cfg.Paths.OutputDir,
		"epi_records", len(result.Records),
		"duration", result.Duration,
	)

	printTopOpportunities(result)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func loadInputs(cfg *config.Config, logger *slog.Logger) (*epi.Inputs, error) {
	rawRows, err := references.LoadRawTrade(cfg.Paths.RawGlob)
	if err != nil {
		return nil, fmt.Errorf("load raw trade extracts: %w", err)
	}
	logger.Info("Loaded raw trade extracts", "rows", len(rawRows))

	countries, err := references.LoadCountries(cfg.Paths.CountriesFile)
	if err != nil {
		return nil, err
	}
	products, err := references.LoadProducts(cfg.Paths.ProductsFile)
	if err != nil {
		return nil, err
	}
	var localized map[string]string
	if cfg.Paths.LocalizedFile != "" {
		localized, err = references.LoadProducts(cfg.Paths.LocalizedFile)
		if err != nil {
			return nil, err
		}
	}

	population, err := references.LoadGrowthTable(cfg.Paths.PopulationFile)
	if err != nil {
		return nil, err
	}
	gdp, err := references.LoadGrowthTable(cfg.Paths.GDPFile)
	if err != nil {
		return nil, err
	}
	shares, err := references.LoadRegionShares(cfg.Paths.RegionSharesFile)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded reference tables",
		"countries", len(countries),
		"products", len(products),
		"localized_products", len(localized),
		"population_entities", len(population),
		"gdp_entities", len(gdp),
		"region_share_products", len(shares),
	)

	return &epi.Inputs{
		RawRows: rawRows,
		Mappings: epi.Mappings{
			Countries:         countries,
			Products:          products,
			LocalizedProducts: localized,
		},
		Population:   population,
		GDP:          gdp,
		RegionShares: shares,
	}, nil
}

func printTopOpportunities(result *epi.Result) {
	limit := 10
	if len(result.Records) < limit {
		limit = len(result.Records)
	}
	if limit == 0 {
		return
	}

	fmt.Println("\n=== TOP EXPORT OPPORTUNITIES BY NORMALIZED EPI SCORE ===")
	fmt.Println("Market | SH6    | EPI Score | Unrealized | Tier")
	fmt.Println("-------|--------|-----------|------------|------")
	for _, r := range result.Records[:limit] {
		fmt.Printf("%-6s | %-6s | %9.2f | %10.2f | %s\n",
			r.Importer, r.Product, r.EpiScoreNormalized, r.UnrealizedPotential, r.Tier)
	}
}
