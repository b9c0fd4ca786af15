package epi

import (
	"context"
	"log/slog"
	"sort"
)

// SupplyInputs collects everything the supply estimator consumes: the
// national weighted export series for every exporter, the home region's
// share-scaled weighted exports per product, and the exporter GDP growth
// indices.
type SupplyInputs struct {
	NationalExports map[SeriesKey]WeightedSeries
	RegionExports   map[string]WeightedSeries
	GDPIndex        GrowthIndex
	Descriptions    map[string]string
}

// EstimateSupply projects the home region's share of global exports per
// product at the target year. Every exporter's weighted exports are scaled
// by its own GDP growth index; the region's by the aggregate home growth
// factor. The share is the region's projected exports over the sum of all
// exporters' projected exports for the product, restricted to products where
// the region has nonzero history.
//
// Shares outside [0,1] point at upstream data quality problems; they are
// kept and surfaced through the audit and a warning, never clamped.
func EstimateSupply(ctx context.Context, logger *slog.Logger, in SupplyInputs, p Params, audit *Audit) []SupplyProjection {
	homeFactor := p.HomeGrowthFactor
	if homeFactor <= 0 {
		homeFactor = in.GDPIndex[p.HomeCountry]
	}

	// Aggregate-then-join: one grouped pass builds the projected global
	// export total per product, then each region product joins against it.
	globalProjected := make(map[string]float64)
	for key, series := range in.NationalExports {
		index, ok := in.GDPIndex[key.Entity]
		if !ok {
			audit.MissingGrowth.Add(1)
			continue
		}
		globalProjected[key.Product] += series.WeightedValue * index
	}

	projections := make([]SupplyProjection, 0, len(in.RegionExports))
	for product, series := range in.RegionExports {
		if series.WeightedValue <= 0 {
			audit.NoHistory.Add(1)
			continue
		}
		total, ok := globalProjected[product]
		if !ok || total == 0 {
			audit.ZeroDivision.Add(1)
			continue
		}

		projected := series.WeightedValue * homeFactor
		share := projected / total
		if share < 0 || share > 1 {
			audit.OutOfRangeShare.Add(1)
			logger.WarnContext(ctx, "projected supply share outside [0,1]",
				"product", product,
				"share", share,
				"projected_exports", projected,
				"global_projected", total,
			)
		}

		projections = append(projections, SupplyProjection{
			Exporter:           p.HomeRegion,
			Product:            product,
			ProductDescription: in.Descriptions[product],
			WeightedExports:    series.WeightedValue,
			ProjectedExports:   projected,
			ProjectedShare:     share,
		})
	}

	sort.Slice(projections, func(i, j int) bool {
		return projections[i].Product < projections[j].Product
	})

	logger.InfoContext(ctx, "estimated supply potential",
		"products", len(projections),
		"home_growth_factor", homeFactor,
	)
	return projections
}
