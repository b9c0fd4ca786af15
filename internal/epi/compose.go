package epi

import (
	"context"
	"log/slog"
	"math"
	"sort"
)

// groupTotals is the aggregated summary per (importer, product) group used
// by group-share normalization. Projected is the group's projected import
// value, identical across the group's rows by construction.
type groupTotals struct {
	RawSum    float64
	Projected float64
}

// Compose multiplies supply share × projected import value × ease into the
// raw EPI score for every (exporter, importer, product) combination where
// all three inputs exist, then normalizes within each (importer, product)
// group.
//
// Normalization contract: group-share mode. Within a group, normalized
// scores are rescaled so their sum equals the group's projected import
// value. This keeps scores comparable as absolute projected trade values;
// the min-max variant seen in earlier revisions of the model is deliberately
// not supported.
//
// Missing ease scores, zero group sums and non-finite products all exclude
// the affected records, with the exclusions counted on the audit. Unrealized
// potential is floored at zero: realized trade beyond the idealized
// projection reads as full realization, not negative potential.
func Compose(ctx context.Context, logger *slog.Logger, supply []SupplyProjection, demand []DemandProjection, ease map[string]EaseScore, bilateral map[FlowKey]float64, audit *Audit) []EpiRecord {
	demandByProduct := make(map[string][]DemandProjection, len(demand))
	for _, d := range demand {
		demandByProduct[d.Product] = append(demandByProduct[d.Product], d)
	}

	var records []EpiRecord
	for _, s := range supply {
		for _, d := range demandByProduct[s.Product] {
			e, ok := ease[d.Importer]
			if !ok {
				audit.ExcludedEpiRecord.Add(1)
				continue
			}

			raw := s.ProjectedShare * d.ProjectedImportValue * e.Ease
			if math.IsNaN(raw) || math.IsInf(raw, 0) {
				audit.NonFiniteScore.Add(1)
				continue
			}

			realized := bilateral[FlowKey{Exporter: s.Exporter, Importer: d.Importer, Product: s.Product}]
			records = append(records, EpiRecord{
				Exporter:             s.Exporter,
				Importer:             d.Importer,
				Product:              s.Product,
				ProductDescription:   s.ProductDescription,
				BilateralRealized:    realized,
				ProjectedImportValue: d.ProjectedImportValue,
				EpiScoreRaw:          raw,
			})
		}
	}

	records = normalizeGroupShare(records, audit)

	// Rank the table by normalized score, the order downstream consumers read.
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.EpiScoreNormalized != b.EpiScoreNormalized {
			return a.EpiScoreNormalized > b.EpiScoreNormalized
		}
		if a.Importer != b.Importer {
			return a.Importer < b.Importer
		}
		return a.Product < b.Product
	})

	logger.InfoContext(ctx, "composed EPI scores",
		"records", len(records),
		"excluded_records", audit.ExcludedEpiRecord.Load(),
		"non_finite_scores", audit.NonFiniteScore.Load(),
	)
	return records
}

// normalizeGroupShare applies group-share normalization: an explicit
// aggregate pass per (importer, product) group, then a join of each record
// against its group totals.
func normalizeGroupShare(records []EpiRecord, audit *Audit) []EpiRecord {
	type groupKey struct {
		Importer string
		Product  string
	}

	totals := make(map[groupKey]*groupTotals)
	for _, r := range records {
		k := groupKey{Importer: r.Importer, Product: r.Product}
		t, ok := totals[k]
		if !ok {
			t = &groupTotals{}
			totals[k] = t
		}
		t.RawSum += r.EpiScoreRaw
		t.Projected = r.ProjectedImportValue
	}

	out := make([]EpiRecord, 0, len(records))
	for _, r := range records {
		t := totals[groupKey{Importer: r.Importer, Product: r.Product}]
		if t.RawSum == 0 {
			audit.ZeroDivision.Add(1)
			continue
		}
		r.EpiScoreNormalized = r.EpiScoreRaw * t.Projected / t.RawSum
		if !r.IsFinite() {
			audit.NonFiniteScore.Add(1)
			continue
		}
		r.UnrealizedPotential = math.Max(0, r.EpiScoreNormalized-r.BilateralRealized)
		out = append(out, r)
	}
	return out
}
