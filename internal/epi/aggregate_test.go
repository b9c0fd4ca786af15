package epi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateByProduct(t *testing.T) {
	audit := &Audit{}
	records := []EpiRecord{
		{Importer: "USA", Product: "441820", ProductDescription: "Doors", BilateralRealized: 30, ProjectedImportValue: 120, EpiScoreNormalized: 60, UnrealizedPotential: 30},
		{Importer: "DEU", Product: "441820", ProductDescription: "Doors", BilateralRealized: 10, ProjectedImportValue: 80, EpiScoreNormalized: 40, UnrealizedPotential: 30},
		{Importer: "USA", Product: "020110", BilateralRealized: 5, ProjectedImportValue: 50, EpiScoreNormalized: 20, UnrealizedPotential: 15},
	}

	aggs := AggregateByProduct(records, audit)
	require.Len(t, aggs, 2)

	// Sorted by normalized score descending.
	doors := aggs[0]
	assert.Equal(t, "441820", doors.Product)
	assert.Equal(t, "Doors", doors.ProductDescription)
	assert.InDelta(t, 40, doors.BilateralRealized, 1e-9)
	assert.InDelta(t, 100, doors.EpiScoreNormalized, 1e-9)
	assert.InDelta(t, 60, doors.UnrealizedPotential, 1e-9)
	assert.InDelta(t, 0.4, doors.RealizationRatio, 1e-9)

	beef := aggs[1]
	assert.Equal(t, "020110", beef.Product)
	assert.InDelta(t, 0.25, beef.RealizationRatio, 1e-9)
}

func TestAggregateByMarket(t *testing.T) {
	audit := &Audit{}
	records := []EpiRecord{
		{Importer: "USA", Product: "441820", BilateralRealized: 30, EpiScoreNormalized: 60},
		{Importer: "USA", Product: "020110", BilateralRealized: 5, EpiScoreNormalized: 20},
		{Importer: "DEU", Product: "441820", BilateralRealized: 10, EpiScoreNormalized: 40},
	}

	aggs := AggregateByMarket(records, audit)
	require.Len(t, aggs, 2)

	usa := aggs[0]
	assert.Equal(t, "USA", usa.Importer)
	assert.InDelta(t, 35, usa.BilateralRealized, 1e-9)
	assert.InDelta(t, 80, usa.EpiScoreNormalized, 1e-9)
	assert.InDelta(t, 0.4375, usa.RealizationRatio, 1e-9)

	assert.Equal(t, "DEU", aggs[1].Importer)
}

func TestRealizationRatioZeroProjection(t *testing.T) {
	audit := &Audit{}
	records := []EpiRecord{
		{Importer: "USA", Product: "441820", BilateralRealized: 10, EpiScoreNormalized: 0},
	}

	aggs := AggregateByProduct(records, audit)
	require.Len(t, aggs, 1)
	assert.Zero(t, aggs[0].RealizationRatio)
	assert.Equal(t, int64(1), audit.ZeroDivision.Load())
}
