package epi

import (
	"math"
	"sort"
)

// GrowthTable maps entity code to its yearly level observations (population
// headcount, GDP) spanning the historical base through the projection
// horizon. Coverage may be partial per entity.
type GrowthTable map[string]map[int]float64

// GrowthIndex is the cumulative growth factor per entity over the projection
// horizon: the product of (1 + annual rate) for every year after the base
// year through the target year.
type GrowthIndex map[string]float64

// BuildGrowthIndex compounds each entity's annual growth over the horizon.
//
// Missing yearly levels are extrapolated with the entity's own
// endpoint-implied CAGR, anchored at the most recent observation before the
// gap. Entities too short for a CAGR (fewer than two observations) fall back
// to the cross-sectional mean rate of the year, computed over entities with
// directly observed adjacent levels. Entities for which neither rule yields a
// rate for some horizon year get no index at all and are counted on the
// audit.
func BuildGrowthIndex(table GrowthTable, h Horizon, audit *Audit) GrowthIndex {
	crossMean := crossSectionalMeanRates(table, h)

	index := make(GrowthIndex, len(table))
	for entity, levels := range table {
		factor := 1.0
		complete := true
		for _, year := range h.Years() {
			rate, ok := entityRate(levels, year)
			if !ok {
				rate, ok = crossMean[year]
			}
			if !ok {
				complete = false
				break
			}
			factor *= 1 + rate
		}
		if !complete || math.IsNaN(factor) || math.IsInf(factor, 0) {
			audit.MissingGrowth.Add(1)
			continue
		}
		index[entity] = factor
	}
	return index
}

// entityRate derives the annual rate for one year from the entity's levels,
// extrapolating gaps with the series' own endpoint CAGR.
func entityRate(levels map[int]float64, year int) (float64, bool) {
	prev, okPrev := levelAt(levels, year-1)
	curr, okCurr := levelAt(levels, year)
	if !okPrev || !okCurr || prev <= 0 {
		return 0, false
	}
	return curr/prev - 1, true
}

// levelAt returns the observed level for the year, or the CAGR-compounded
// projection from the nearest observation when the year is missing.
func levelAt(levels map[int]float64, year int) (float64, bool) {
	if v, ok := levels[year]; ok && v > 0 {
		return v, true
	}

	cagr, anchorYear, anchorLevel, ok := endpointCAGR(levels, year)
	if !ok {
		return 0, false
	}
	return anchorLevel * math.Pow(1+cagr, float64(year-anchorYear)), true
}

// endpointCAGR computes the compound growth rate implied by the first and
// last positive observations of the series, and picks the anchor observation
// for projecting the requested year: the most recent observation at or
// before it, else the earliest one.
func endpointCAGR(levels map[int]float64, year int) (cagr float64, anchorYear int, anchorLevel float64, ok bool) {
	years := make([]int, 0, len(levels))
	for y, v := range levels {
		if v > 0 {
			years = append(years, y)
		}
	}
	if len(years) < 2 {
		return 0, 0, 0, false
	}
	sort.Ints(years)

	first, last := years[0], years[len(years)-1]
	span := last - first
	if span == 0 {
		return 0, 0, 0, false
	}
	cagr = math.Pow(levels[last]/levels[first], 1/float64(span)) - 1

	anchorYear = first
	for _, y := range years {
		if y > year {
			break
		}
		anchorYear = y
	}
	return cagr, anchorYear, levels[anchorYear], true
}

// crossSectionalMeanRates averages, per horizon year, the rates of entities
// whose adjacent levels are directly observed. Extrapolated levels are
// excluded so the fallback is anchored in real data.
func crossSectionalMeanRates(table GrowthTable, h Horizon) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, levels := range table {
		for _, year := range h.Years() {
			prev, okPrev := levels[year-1]
			curr, okCurr := levels[year]
			if !okPrev || !okCurr || prev <= 0 || curr <= 0 {
				continue
			}
			sums[year] += curr/prev - 1
			counts[year]++
		}
	}

	means := make(map[int]float64, len(sums))
	for year, sum := range sums {
		means[year] = sum / float64(counts[year])
	}
	return means
}
