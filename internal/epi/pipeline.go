package epi

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Inputs carries every external table one run consumes. All tables are read
// once up front; the pipeline never goes back to storage mid-run.
type Inputs struct {
	RawRows      []RawTradeRow
	Mappings     Mappings
	Population   GrowthTable
	GDP          GrowthTable
	RegionShares ShareTable
}

// ShareTable maps product code to the home region's historical share of
// national exports per year.
type ShareTable map[string]map[int]float64

// Result is everything a completed run materializes. Derived tables are
// recomputed from scratch every run; a new Result fully replaces the
// previous one.
type Result struct {
	RunID     string
	Records   []EpiRecord
	Products  []ProductAggregate
	Markets   []MarketAggregate
	Supply    []SupplyProjection
	Demand    []DemandProjection
	Ease      []EaseScore
	Bilateral []BilateralFlow
	Audit     *Audit
	Duration  time.Duration
}

// Pipeline chains the EPI modeling stages in strict dependency order:
// harmonization, weighted history, growth indices, supply and demand
// projection, ease of trade, score composition and categorization. Stages
// share nothing but each other's materialized outputs.
type Pipeline struct {
	params   Params
	category CategorizerParams
	logger   *slog.Logger
}

// NewPipeline validates the model parameters before any computation can
// proceed; configuration errors are fatal here, never mid-run.
func NewPipeline(params Params, category CategorizerParams, logger *slog.Logger) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model parameters: %w", err)
	}
	if err := category.Validate(); err != nil {
		return nil, fmt.Errorf("invalid categorizer parameters: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{params: params, category: category, logger: logger}, nil
}

// Run executes one full pipeline pass over the inputs.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	audit := &Audit{}

	logger.InfoContext(ctx, "starting EPI pipeline run",
		"raw_rows", len(in.RawRows),
		"home_country", p.params.HomeCountry,
		"home_region", p.params.HomeRegion,
		"base_year", p.params.Horizon.BaseYear,
		"target_year", p.params.Horizon.TargetYear,
	)

	if err := p.validateInputs(in); err != nil {
		return nil, fmt.Errorf("validate inputs: %w", err)
	}

	// Stage 1: harmonize raw extracts into the canonical trade table.
	records, err := Harmonize(ctx, logger, in.RawRows, in.Mappings, p.params, audit)
	if err != nil {
		return nil, fmt.Errorf("harmonize records: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no trade records survived harmonization")
	}
	descriptions := descriptionIndex(records)

	// Stage 2: recency-weighted historical levels per series.
	nationalExports := WeightSeries(records, ExporterSeries, p.params.Weights, audit)
	imports := WeightSeries(records, ImporterSeries, p.params.Weights, audit)

	regionRecords := p.regionRecords(records, in.RegionShares, audit)
	regionExports := regionSeriesByProduct(WeightSeries(regionRecords, ExporterSeries, p.params.Weights, audit))
	bilateral := WeightBilateral(regionRecords, p.params.Weights, audit)

	logger.InfoContext(ctx, "weighted historical series built",
		"national_series", len(nationalExports),
		"import_series", len(imports),
		"region_products", len(regionExports),
		"bilateral_flows", len(bilateral),
	)

	// Stage 3: growth indices. Population and GDP are independent and
	// compound in parallel.
	var popIndex, gdpIndex GrowthIndex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		popIndex = BuildGrowthIndex(in.Population, p.params.Horizon, audit)
		return egCtx.Err()
	})
	eg.Go(func() error {
		gdpIndex = BuildGrowthIndex(in.GDP, p.params.Horizon, audit)
		return egCtx.Err()
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("build growth indices: %w", err)
	}
	logger.InfoContext(ctx, "growth indices built",
		"population_entities", len(popIndex),
		"gdp_entities", len(gdpIndex),
	)

	// Stages 4-6: supply, demand, ease.
	supply := EstimateSupply(ctx, logger, SupplyInputs{
		NationalExports: nationalExports,
		RegionExports:   regionExports,
		GDPIndex:        gdpIndex,
		Descriptions:    descriptions,
	}, p.params, audit)

	demand := EstimateDemand(ctx, logger, DemandInputs{
		Imports:         imports,
		PopulationIndex: popIndex,
		GDPIndex:        gdpIndex,
		Descriptions:    descriptions,
	}, p.params, audit)

	ease := EstimateEase(ctx, logger, bilateral, demand, supply, audit)

	// Stage 7: compose, normalize and categorize.
	epiRecords := Compose(ctx, logger, supply, demand, ease, bilateral, audit)

	if err := p.categorizeRecords(epiRecords); err != nil {
		return nil, fmt.Errorf("categorize records: %w", err)
	}

	products := AggregateByProduct(epiRecords, audit)
	markets := AggregateByMarket(epiRecords, audit)
	if err := p.categorizeAggregates(products, markets); err != nil {
		return nil, fmt.Errorf("categorize aggregates: %w", err)
	}

	audit.LogSummary(logger)

	result := &Result{
		RunID:     runID,
		Records:   epiRecords,
		Products:  products,
		Markets:   markets,
		Supply:    supply,
		Demand:    demand,
		Ease:      EaseTable(ease),
		Bilateral: bilateralTable(bilateral),
		Audit:     audit,
		Duration:  time.Since(start),
	}

	logger.InfoContext(ctx, "EPI pipeline run completed",
		"duration", result.Duration,
		"epi_records", len(result.Records),
		"products", len(result.Products),
		"markets", len(result.Markets),
	)
	return result, nil
}

// validateInputs rejects the run before any computation when a required
// input table is absent entirely.
func (p *Pipeline) validateInputs(in Inputs) error {
	if len(in.RawRows) == 0 {
		return fmt.Errorf("no raw trade records provided")
	}
	if len(in.Mappings.Countries) == 0 {
		return fmt.Errorf("country reference table is missing")
	}
	if len(in.Mappings.Products) == 0 {
		return fmt.Errorf("product reference table is missing")
	}
	if len(in.Population) == 0 {
		return fmt.Errorf("population growth table is missing")
	}
	if len(in.GDP) == 0 {
		return fmt.Errorf("GDP growth table is missing")
	}
	if len(in.RegionShares) == 0 {
		return fmt.Errorf("region share table is missing")
	}
	return nil
}

// regionRecords derives the home region's trade rows from the home country's
// national rows: each year's value is scaled by the region's historical share
// of national exports for that product and year, and the exporter identity is
// rewritten to the region. Years without a share observation contribute no
// region history.
func (p *Pipeline) regionRecords(records []TradeRecord, shares ShareTable, audit *Audit) []TradeRecord {
	out := make([]TradeRecord, 0, len(records)/4)
	for _, rec := range records {
		if rec.Exporter != p.params.HomeCountry {
			continue
		}
		yearShares, ok := shares[rec.Product]
		if !ok {
			continue
		}
		share, ok := yearShares[rec.Year]
		if !ok {
			audit.NoHistory.Add(1)
			continue
		}
		rec.Exporter = p.params.HomeRegion
		rec.Value *= share
		out = append(out, rec)
	}
	return out
}

func (p *Pipeline) categorizeRecords(records []EpiRecord) error {
	if len(records) == 0 {
		return nil
	}
	scores := make([]float64, len(records))
	groups := make([]string, len(records))
	for i, r := range records {
		scores[i] = r.EpiScoreNormalized
		groups[i] = r.Product
	}
	tiers, err := Categorize(scores, groups, p.category)
	if err != nil {
		return err
	}
	for i := range records {
		records[i].Tier = tiers[i]
	}
	return nil
}

func (p *Pipeline) categorizeAggregates(products []ProductAggregate, markets []MarketAggregate) error {
	scores := make([]float64, len(products))
	for i, agg := range products {
		scores[i] = agg.EpiScoreNormalized
	}
	tiers, err := Categorize(scores, nil, p.category)
	if err != nil {
		return err
	}
	for i := range products {
		products[i].Tier = tiers[i]
	}

	scores = make([]float64, len(markets))
	for i, agg := range markets {
		scores[i] = agg.EpiScoreNormalized
	}
	tiers, err = Categorize(scores, nil, p.category)
	if err != nil {
		return err
	}
	for i := range markets {
		markets[i].Tier = tiers[i]
	}
	return nil
}

func regionSeriesByProduct(series map[SeriesKey]WeightedSeries) map[string]WeightedSeries {
	out := make(map[string]WeightedSeries, len(series))
	for key, ws := range series {
		out[key.Product] = ws
	}
	return out
}

func bilateralTable(flows map[FlowKey]float64) []BilateralFlow {
	out := make([]BilateralFlow, 0, len(flows))
	for key, value := range flows {
		out = append(out, BilateralFlow{
			Exporter: key.Exporter,
			Importer: key.Importer,
			Product:  key.Product,
			Value:    value,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Importer != b.Importer {
			return a.Importer < b.Importer
		}
		return a.Product < b.Product
	})
	return out
}

// descriptionIndex joins each product code to the last harmonized
// description seen for it.
func descriptionIndex(records []TradeRecord) map[string]string {
	out := make(map[string]string)
	for _, rec := range records {
		if rec.ProductDescription != "" {
			out[rec.Product] = rec.ProductDescription
		}
	}
	return out
}
