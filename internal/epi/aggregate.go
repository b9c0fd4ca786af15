package epi

import "sort"

// AggregateByProduct rolls the EPI table up to one row per product, summing
// realized, projected, normalized and potential values. The realization
// ratio is realized over normalized projection; products with no normalized
// projection report zero and are counted as zero divisions.
func AggregateByProduct(records []EpiRecord, audit *Audit) []ProductAggregate {
	byProduct := make(map[string]*ProductAggregate)
	for _, r := range records {
		agg, ok := byProduct[r.Product]
		if !ok {
			agg = &ProductAggregate{Product: r.Product, ProductDescription: r.ProductDescription}
			byProduct[r.Product] = agg
		}
		agg.BilateralRealized += r.BilateralRealized
		agg.ProjectedImportValue += r.ProjectedImportValue
		agg.EpiScoreNormalized += r.EpiScoreNormalized
		agg.UnrealizedPotential += r.UnrealizedPotential
	}

	out := make([]ProductAggregate, 0, len(byProduct))
	for _, agg := range byProduct {
		agg.RealizationRatio = realizationRatio(agg.BilateralRealized, agg.EpiScoreNormalized, audit)
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EpiScoreNormalized != out[j].EpiScoreNormalized {
			return out[i].EpiScoreNormalized > out[j].EpiScoreNormalized
		}
		return out[i].Product < out[j].Product
	})
	return out
}

// AggregateByMarket rolls the EPI table up to one row per destination market.
func AggregateByMarket(records []EpiRecord, audit *Audit) []MarketAggregate {
	byMarket := make(map[string]*MarketAggregate)
	for _, r := range records {
		agg, ok := byMarket[r.Importer]
		if !ok {
			agg = &MarketAggregate{Importer: r.Importer}
			byMarket[r.Importer] = agg
		}
		agg.BilateralRealized += r.BilateralRealized
		agg.ProjectedImportValue += r.ProjectedImportValue
		agg.EpiScoreNormalized += r.EpiScoreNormalized
		agg.UnrealizedPotential += r.UnrealizedPotential
	}

	out := make([]MarketAggregate, 0, len(byMarket))
	for _, agg := range byMarket {
		agg.RealizationRatio = realizationRatio(agg.BilateralRealized, agg.EpiScoreNormalized, audit)
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EpiScoreNormalized != out[j].EpiScoreNormalized {
			return out[i].EpiScoreNormalized > out[j].EpiScoreNormalized
		}
		return out[i].Importer < out[j].Importer
	})
	return out
}

func realizationRatio(realized, normalized float64, audit *Audit) float64 {
	if normalized <= 0 {
		audit.ZeroDivision.Add(1)
		return 0
	}
	return realized / normalized
}
