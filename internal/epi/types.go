package epi

import (
	"fmt"
	"math"
)

// TradeRecord is one harmonized bilateral trade flow. Rows are unique on
// (Year, Exporter, Importer, Product) after harmonization; duplicates in the
// raw extracts are summed.
type TradeRecord struct {
	Year               int     `json:"year"`
	Exporter           string  `json:"exporter"`
	Importer           string  `json:"importer"`
	Product            string  `json:"product"`
	ProductDescription string  `json:"product_description"`
	Value              float64 `json:"value"`
	Quantity           float64 `json:"quantity"`
}

// IsValid checks if the harmonized record carries usable identifiers.
func (tr TradeRecord) IsValid() bool {
	return tr.Year > 0 && tr.Exporter != "" && tr.Importer != "" &&
		tr.Product != "" && tr.Value >= 0
}

// SeriesKey identifies a per-entity, per-product series. Entity is an
// exporter or importer ISO3 code depending on which side the series covers.
type SeriesKey struct {
	Entity  string `json:"entity"`
	Product string `json:"product"`
}

// FlowKey identifies one bilateral exporter-importer-product flow.
type FlowKey struct {
	Exporter string `json:"exporter"`
	Importer string `json:"importer"`
	Product  string `json:"product"`
}

// WeightedSeries holds the recency-weighted historical value of a series.
// A series with no observed years has no WeightedSeries row at all; absence
// is the "no estimate" state and must stay distinguishable from zero.
type WeightedSeries struct {
	Key           SeriesKey `json:"key"`
	WeightedValue float64   `json:"weighted_value"`
	YearsUsed     int       `json:"years_used"`
}

// SupplyProjection is the projected share of a product's global exports
// attributable to the home region at the target year.
type SupplyProjection struct {
	Exporter           string  `json:"exporter"`
	Product            string  `json:"product"`
	ProductDescription string  `json:"product_description"`
	WeightedExports    float64 `json:"weighted_exports"`
	ProjectedExports   float64 `json:"projected_exports"`
	ProjectedShare     float64 `json:"projected_share"`
}

// DemandProjection is a destination market's projected import value for one
// product at the target year.
type DemandProjection struct {
	Importer             string  `json:"importer"`
	Product              string  `json:"product"`
	ProductDescription   string  `json:"product_description"`
	WeightedImports      float64 `json:"weighted_imports"`
	DemandIndex          float64 `json:"demand_index"`
	ProjectedImportValue float64 `json:"projected_import_value"`
}

// EaseScore is the product-independent bilateral accessibility proxy for one
// destination market.
type EaseScore struct {
	Importer  string  `json:"importer"`
	Realized  float64 `json:"realized"`
	Potential float64 `json:"potential"`
	Ease      float64 `json:"ease"`
}

// EpiRecord is the central output row: one scored
// (exporter, importer, product) combination.
type EpiRecord struct {
	Exporter             string  `json:"exporter"`
	Importer             string  `json:"importer"`
	Product              string  `json:"product"`
	ProductDescription   string  `json:"product_description"`
	BilateralRealized    float64 `json:"bilateral_realized"`
	ProjectedImportValue float64 `json:"projected_import_value"`
	EpiScoreRaw          float64 `json:"epi_score_raw"`
	EpiScoreNormalized   float64 `json:"epi_score_normalized"`
	UnrealizedPotential  float64 `json:"unrealized_potential"`
	Tier                 string  `json:"tier"`
}

// IsFinite reports whether both score fields are finite numbers.
func (er EpiRecord) IsFinite() bool {
	return !math.IsNaN(er.EpiScoreRaw) && !math.IsInf(er.EpiScoreRaw, 0) &&
		!math.IsNaN(er.EpiScoreNormalized) && !math.IsInf(er.EpiScoreNormalized, 0)
}

// ProductAggregate rolls the EPI table up to one row per product.
type ProductAggregate struct {
	Product              string  `json:"product"`
	ProductDescription   string  `json:"product_description"`
	BilateralRealized    float64 `json:"bilateral_realized"`
	ProjectedImportValue float64 `json:"projected_import_value"`
	EpiScoreNormalized   float64 `json:"epi_score_normalized"`
	UnrealizedPotential  float64 `json:"unrealized_potential"`
	RealizationRatio     float64 `json:"realization_ratio"`
	Tier                 string  `json:"tier"`
}

// MarketAggregate rolls the EPI table up to one row per destination market.
type MarketAggregate struct {
	Importer             string  `json:"importer"`
	BilateralRealized    float64 `json:"bilateral_realized"`
	ProjectedImportValue float64 `json:"projected_import_value"`
	EpiScoreNormalized   float64 `json:"epi_score_normalized"`
	UnrealizedPotential  float64 `json:"unrealized_potential"`
	RealizationRatio     float64 `json:"realization_ratio"`
	Tier                 string  `json:"tier"`
}

// BilateralFlow is the persisted per-flow weighted bilateral export detail
// backing the ease numerator and the realized side of each EpiRecord.
type BilateralFlow struct {
	Exporter string  `json:"exporter"`
	Importer string  `json:"importer"`
	Product  string  `json:"product"`
	Value    float64 `json:"value"`
}

// WeightSchedule is the recency-rank weight vector applied by the weighted
// historical aggregator, ordered oldest to newest. The most recent observed
// year of a series takes the last weight, the next most recent the one
// before it, and so on; years past the schedule length get weight zero.
type WeightSchedule []float64

// IsValid checks that the schedule is non-empty, positive and strictly
// increasing toward the most recent year.
func (ws WeightSchedule) IsValid() bool {
	if len(ws) == 0 {
		return false
	}
	for i, w := range ws {
		if w <= 0 {
			return false
		}
		if i > 0 && ws[i] <= ws[i-1] {
			return false
		}
	}
	return true
}

// Horizon is the projection window: growth is compounded over the annual
// rates from the year after BaseYear through TargetYear.
type Horizon struct {
	BaseYear   int `json:"base_year"`
	TargetYear int `json:"target_year"`
}

// IsValid checks that the horizon projects forward.
func (h Horizon) IsValid() bool {
	return h.BaseYear > 0 && h.TargetYear > h.BaseYear
}

// Years returns the projected years in ascending order.
func (h Horizon) Years() []int {
	years := make([]int, 0, h.TargetYear-h.BaseYear)
	for y := h.BaseYear + 1; y <= h.TargetYear; y++ {
		years = append(years, y)
	}
	return years
}

// Params carries every model parameter consumed by the pipeline stages.
// It is built from configuration once per run; stages never read ambient
// package state.
type Params struct {
	HomeCountry      string         `json:"home_country"`
	HomeRegion       string         `json:"home_region"`
	UnitMultiplier   float64        `json:"unit_multiplier"`
	Elasticity       float64        `json:"elasticity"`
	HomeGrowthFactor float64        `json:"home_growth_factor"`
	Weights          WeightSchedule `json:"weights"`
	Horizon          Horizon        `json:"horizon"`
}

// Validate surfaces configuration errors before any computation proceeds.
func (p Params) Validate() error {
	if p.HomeCountry == "" {
		return fmt.Errorf("home country is required")
	}
	if p.UnitMultiplier <= 0 {
		return fmt.Errorf("unit multiplier must be positive, got %g", p.UnitMultiplier)
	}
	if p.Elasticity <= 0 {
		return fmt.Errorf("income elasticity must be positive, got %g", p.Elasticity)
	}
	if !p.Weights.IsValid() {
		return fmt.Errorf("weight schedule must be positive and strictly increasing toward the most recent year: %v", p.Weights)
	}
	if !p.Horizon.IsValid() {
		return fmt.Errorf("projection horizon must run forward, got base=%d target=%d", p.Horizon.BaseYear, p.Horizon.TargetYear)
	}
	return nil
}

// DefaultWeightSchedule is the published five-year recency schedule.
func DefaultWeightSchedule() WeightSchedule {
	return WeightSchedule{0.2, 0.4, 0.6, 0.8, 1.0}
}
