package epi

import (
	"context"
	"log/slog"
	"math"
	"sort"
)

// DemandInputs collects the weighted import series per (importer, product)
// and the exogenous growth indices feeding the demand multiplier.
type DemandInputs struct {
	Imports         map[SeriesKey]WeightedSeries
	PopulationIndex GrowthIndex
	GDPIndex        GrowthIndex
	Descriptions    map[string]string
}

// EstimateDemand projects every destination market's import value per
// product to the target year. The demand multiplier per importer is
//
//	pop_index × (gdp_per_capita_index ^ elasticity)
//
// with gdp_per_capita_index = gdp_index / pop_index. Importers missing
// either growth index get no projection and are counted on the audit.
func EstimateDemand(ctx context.Context, logger *slog.Logger, in DemandInputs, p Params, audit *Audit) []DemandProjection {
	// Aggregate-then-join: the per-importer multiplier table is computed
	// once, then joined onto the import series by importer.
	multipliers := make(map[string]float64)
	skipped := make(map[string]struct{})
	for key := range in.Imports {
		if _, done := multipliers[key.Entity]; done {
			continue
		}
		if _, done := skipped[key.Entity]; done {
			continue
		}
		m, ok := demandMultiplier(in.PopulationIndex, in.GDPIndex, key.Entity, p.Elasticity)
		if !ok {
			skipped[key.Entity] = struct{}{}
			audit.MissingGrowth.Add(1)
			continue
		}
		multipliers[key.Entity] = m
	}

	projections := make([]DemandProjection, 0, len(in.Imports))
	for key, series := range in.Imports {
		multiplier, ok := multipliers[key.Entity]
		if !ok {
			continue
		}
		projections = append(projections, DemandProjection{
			Importer:             key.Entity,
			Product:              key.Product,
			ProductDescription:   in.Descriptions[key.Product],
			WeightedImports:      series.WeightedValue,
			DemandIndex:          multiplier,
			ProjectedImportValue: series.WeightedValue * multiplier,
		})
	}

	sort.Slice(projections, func(i, j int) bool {
		a, b := projections[i], projections[j]
		if a.Importer != b.Importer {
			return a.Importer < b.Importer
		}
		return a.Product < b.Product
	})

	logger.InfoContext(ctx, "estimated demand potential",
		"projections", len(projections),
		"importers_without_growth", len(skipped),
	)
	return projections
}

func demandMultiplier(pop, gdp GrowthIndex, importer string, elasticity float64) (float64, bool) {
	popIndex, okPop := pop[importer]
	gdpIndex, okGDP := gdp[importer]
	if !okPop || !okGDP || popIndex <= 0 {
		return 0, false
	}

	perCapita := gdpIndex / popIndex
	if perCapita <= 0 {
		return 0, false
	}
	multiplier := math.Pow(perCapita, elasticity) * popIndex
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return 0, false
	}
	return multiplier, true
}
