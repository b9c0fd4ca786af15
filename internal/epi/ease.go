package epi

import (
	"context"
	"log/slog"
	"sort"
)

// EstimateEase computes the product-independent bilateral accessibility
// proxy per destination market: the home region's realized weighted exports
// to the market, summed across products, over the market's total projected
// absorption from the region's perspective (projected imports × the region's
// projected supply share, summed across products).
//
// Markets whose addressable denominator is zero get no ease score at all;
// the division never produces infinity. EPI records depending on a missing
// ease score are excluded downstream.
func EstimateEase(ctx context.Context, logger *slog.Logger, bilateral map[FlowKey]float64, demand []DemandProjection, supply []SupplyProjection, audit *Audit) map[string]EaseScore {
	shareByProduct := make(map[string]float64, len(supply))
	for _, s := range supply {
		shareByProduct[s.Product] = s.ProjectedShare
	}

	// Grouped numerators and denominators per importer, joined by key below.
	realized := make(map[string]float64)
	for key, value := range bilateral {
		realized[key.Importer] += value
	}

	addressable := make(map[string]float64)
	for _, d := range demand {
		share, ok := shareByProduct[d.Product]
		if !ok {
			continue
		}
		addressable[d.Importer] += d.ProjectedImportValue * share
	}

	scores := make(map[string]EaseScore, len(addressable))
	for importer, capacity := range addressable {
		if capacity == 0 {
			audit.ZeroDivision.Add(1)
			continue
		}
		num := realized[importer]
		scores[importer] = EaseScore{
			Importer:  importer,
			Realized:  num,
			Potential: capacity,
			Ease:      num / capacity,
		}
	}

	logger.InfoContext(ctx, "estimated ease of trade",
		"markets", len(scores),
		"markets_without_capacity", len(addressable)-len(scores),
	)
	return scores
}

// EaseTable returns the ease scores as a deterministic slice for persistence.
func EaseTable(scores map[string]EaseScore) []EaseScore {
	out := make([]EaseScore, 0, len(scores))
	for _, s := range scores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Importer < out[j].Importer })
	return out
}
