package epi

import (
	"sort"
)

// Observation is one yearly value of a series handed to the weighted
// historical aggregator.
type Observation struct {
	Year  int
	Value float64
}

// WeightedAverage computes the recency-weighted average of a series over the
// most recent len(schedule) distinct observed years. Weights are assigned by
// recency rank, not calendar year, so gaps in the series are tolerated: the
// most recent year takes the last (largest) schedule weight, older years walk
// backwards through the schedule, and years past the schedule length are
// excluded from numerator and denominator alike. When fewer years exist than
// the schedule covers, only the weights actually applied enter the
// denominator; there is no reweighting to sum to one.
//
// The second return value is false when no observation carries weight, which
// callers must propagate as "no estimate" rather than zero.
func WeightedAverage(obs []Observation, schedule WeightSchedule) (float64, bool) {
	if len(obs) == 0 || len(schedule) == 0 {
		return 0, false
	}

	// Collapse duplicate years first: the aggregator owns a per-year total,
	// not per-row weights.
	totals := make(map[int]float64, len(obs))
	for _, o := range obs {
		totals[o.Year] += o.Value
	}

	years := make([]int, 0, len(totals))
	for y := range totals {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	var num, den float64
	for rank, year := range years {
		if rank >= len(schedule) {
			break
		}
		w := schedule[len(schedule)-1-rank]
		num += totals[year] * w
		den += w
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// GroupKeyFunc extracts the series grouping key from a harmonized record.
type GroupKeyFunc func(TradeRecord) SeriesKey

// ExporterSeries groups by (exporter, product), collapsing importers.
func ExporterSeries(tr TradeRecord) SeriesKey {
	return SeriesKey{Entity: tr.Exporter, Product: tr.Product}
}

// ImporterSeries groups by (importer, product), collapsing exporters.
func ImporterSeries(tr TradeRecord) SeriesKey {
	return SeriesKey{Entity: tr.Importer, Product: tr.Product}
}

// WeightSeries builds the weighted historical table for one grouping of the
// harmonized records. Series that end up with no weighted years are counted
// on the audit and omitted from the result, keeping "no estimate" distinct
// from zero.
func WeightSeries(records []TradeRecord, groupKey GroupKeyFunc, schedule WeightSchedule, audit *Audit) map[SeriesKey]WeightedSeries {
	grouped := make(map[SeriesKey][]Observation)
	for _, rec := range records {
		k := groupKey(rec)
		grouped[k] = append(grouped[k], Observation{Year: rec.Year, Value: rec.Value})
	}

	out := make(map[SeriesKey]WeightedSeries, len(grouped))
	for k, obs := range grouped {
		value, ok := WeightedAverage(obs, schedule)
		if !ok {
			audit.NoHistory.Add(1)
			continue
		}
		years := distinctYears(obs)
		if years > len(schedule) {
			years = len(schedule)
		}
		out[k] = WeightedSeries{Key: k, WeightedValue: value, YearsUsed: years}
	}
	return out
}

// WeightBilateral builds the weighted bilateral export detail for the home
// region: one weighted value per (exporter, importer, product) flow, values
// already scaled to the region's share of national exports.
func WeightBilateral(records []TradeRecord, schedule WeightSchedule, audit *Audit) map[FlowKey]float64 {
	grouped := make(map[FlowKey][]Observation)
	for _, rec := range records {
		k := FlowKey{Exporter: rec.Exporter, Importer: rec.Importer, Product: rec.Product}
		grouped[k] = append(grouped[k], Observation{Year: rec.Year, Value: rec.Value})
	}

	out := make(map[FlowKey]float64, len(grouped))
	for k, obs := range grouped {
		value, ok := WeightedAverage(obs, schedule)
		if !ok {
			audit.NoHistory.Add(1)
			continue
		}
		out[k] = value
	}
	return out
}

func distinctYears(obs []Observation) int {
	seen := make(map[int]struct{}, len(obs))
	for _, o := range obs {
		seen[o.Year] = struct{}{}
	}
	return len(seen)
}
