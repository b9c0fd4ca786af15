package epi

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateSupply(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	national := map[SeriesKey]WeightedSeries{
		{Entity: "BRA", Product: "441820"}: {WeightedValue: 1000},
		{Entity: "CHN", Product: "441820"}: {WeightedValue: 1000},
	}
	gdp := GrowthIndex{"BRA": 1.2, "CHN": 1.5}

	t.Run("share is region projected over global projected", func(t *testing.T) {
		audit := &Audit{}
		in := SupplyInputs{
			NationalExports: national,
			RegionExports:   map[string]WeightedSeries{"441820": {WeightedValue: 100}},
			GDPIndex:        gdp,
			Descriptions:    map[string]string{"441820": "Doors and frames of wood"},
		}
		projections := EstimateSupply(ctx, logger, in, testParams(), audit)
		require.Len(t, projections, 1)

		got := projections[0]
		assert.Equal(t, "SC", got.Exporter)
		assert.Equal(t, "441820", got.Product)
		assert.Equal(t, "Doors and frames of wood", got.ProductDescription)
		// Region scales by the home country's GDP index; global is
		// 1000×1.2 + 1000×1.5 = 2700.
		assert.InDelta(t, 120, got.ProjectedExports, 1e-9)
		assert.InDelta(t, 120.0/2700.0, got.ProjectedShare, 1e-12)
		assert.Zero(t, audit.OutOfRangeShare.Load())
	})

	t.Run("explicit home growth factor overrides the GDP index", func(t *testing.T) {
		audit := &Audit{}
		p := testParams()
		p.HomeGrowthFactor = 2
		in := SupplyInputs{
			NationalExports: national,
			RegionExports:   map[string]WeightedSeries{"441820": {WeightedValue: 100}},
			GDPIndex:        gdp,
		}
		projections := EstimateSupply(ctx, logger, in, p, audit)
		require.Len(t, projections, 1)
		assert.InDelta(t, 200, projections[0].ProjectedExports, 1e-9)
	})

	t.Run("out of range share is kept and counted, never clamped", func(t *testing.T) {
		audit := &Audit{}
		in := SupplyInputs{
			NationalExports: national,
			RegionExports:   map[string]WeightedSeries{"441820": {WeightedValue: 5000}},
			GDPIndex:        gdp,
		}
		projections := EstimateSupply(ctx, logger, in, testParams(), audit)
		require.Len(t, projections, 1)
		assert.Greater(t, projections[0].ProjectedShare, 1.0)
		assert.Equal(t, int64(1), audit.OutOfRangeShare.Load())
	})

	t.Run("region product without national history is a zero division", func(t *testing.T) {
		audit := &Audit{}
		in := SupplyInputs{
			NationalExports: national,
			RegionExports:   map[string]WeightedSeries{"999999": {WeightedValue: 50}},
			GDPIndex:        gdp,
		}
		projections := EstimateSupply(ctx, logger, in, testParams(), audit)
		assert.Empty(t, projections)
		assert.Equal(t, int64(1), audit.ZeroDivision.Load())
	})

	t.Run("region product with no positive history is skipped", func(t *testing.T) {
		audit := &Audit{}
		in := SupplyInputs{
			NationalExports: national,
			RegionExports:   map[string]WeightedSeries{"441820": {WeightedValue: 0}},
			GDPIndex:        gdp,
		}
		projections := EstimateSupply(ctx, logger, in, testParams(), audit)
		assert.Empty(t, projections)
		assert.Equal(t, int64(1), audit.NoHistory.Load())
	})

	t.Run("exporter without a GDP index drops out of the denominator", func(t *testing.T) {
		audit := &Audit{}
		in := SupplyInputs{
			NationalExports: national,
			RegionExports:   map[string]WeightedSeries{"441820": {WeightedValue: 100}},
			GDPIndex:        GrowthIndex{"BRA": 1.2}, // CHN missing
		}
		projections := EstimateSupply(ctx, logger, in, testParams(), audit)
		require.Len(t, projections, 1)
		// Denominator is BRA alone: 1000 × 1.2.
		assert.InDelta(t, 120.0/1200.0, projections[0].ProjectedShare, 1e-12)
		assert.Equal(t, int64(1), audit.MissingGrowth.Load())
	})
}
