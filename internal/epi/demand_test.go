package epi

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateDemand(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	p := testParams()
	p.Elasticity = 2 // keep the arithmetic exact

	t.Run("multiplier compounds population and per-capita income", func(t *testing.T) {
		audit := &Audit{}
		in := DemandInputs{
			Imports: map[SeriesKey]WeightedSeries{
				{Entity: "USA", Product: "441820"}: {WeightedValue: 100},
			},
			PopulationIndex: GrowthIndex{"USA": 1.05},
			GDPIndex:        GrowthIndex{"USA": 1.26},
			Descriptions:    map[string]string{"441820": "Doors and frames of wood"},
		}
		projections := EstimateDemand(ctx, logger, in, p, audit)
		require.Len(t, projections, 1)

		got := projections[0]
		assert.Equal(t, "USA", got.Importer)
		assert.Equal(t, "Doors and frames of wood", got.ProductDescription)
		// per-capita index 1.26/1.05 = 1.2; multiplier 1.2² × 1.05 = 1.512.
		assert.InDelta(t, 1.512, got.DemandIndex, 1e-9)
		assert.InDelta(t, 151.2, got.ProjectedImportValue, 1e-9)
	})

	t.Run("importer missing a growth index gets no projection", func(t *testing.T) {
		audit := &Audit{}
		in := DemandInputs{
			Imports: map[SeriesKey]WeightedSeries{
				{Entity: "USA", Product: "441820"}: {WeightedValue: 100},
				{Entity: "DEU", Product: "441820"}: {WeightedValue: 200},
			},
			PopulationIndex: GrowthIndex{"USA": 1.05, "DEU": 1.01},
			GDPIndex:        GrowthIndex{"USA": 1.26}, // DEU missing
		}
		projections := EstimateDemand(ctx, logger, in, p, audit)
		require.Len(t, projections, 1)
		assert.Equal(t, "USA", projections[0].Importer)
		assert.Equal(t, int64(1), audit.MissingGrowth.Load())
	})

	t.Run("output order is deterministic", func(t *testing.T) {
		audit := &Audit{}
		in := DemandInputs{
			Imports: map[SeriesKey]WeightedSeries{
				{Entity: "USA", Product: "441820"}: {WeightedValue: 100},
				{Entity: "DEU", Product: "441820"}: {WeightedValue: 200},
				{Entity: "DEU", Product: "020110"}: {WeightedValue: 50},
			},
			PopulationIndex: GrowthIndex{"USA": 1.05, "DEU": 1.01},
			GDPIndex:        GrowthIndex{"USA": 1.26, "DEU": 1.1},
		}
		projections := EstimateDemand(ctx, logger, in, p, audit)
		require.Len(t, projections, 3)
		assert.Equal(t, "DEU", projections[0].Importer)
		assert.Equal(t, "020110", projections[0].Product)
		assert.Equal(t, "DEU", projections[1].Importer)
		assert.Equal(t, "441820", projections[1].Product)
		assert.Equal(t, "USA", projections[2].Importer)
	})
}

func TestDemandMultiplier(t *testing.T) {
	pop := GrowthIndex{"USA": 1.05, "ZMB": 0}
	gdp := GrowthIndex{"USA": 1.26, "ZMB": 1.1}

	m, ok := demandMultiplier(pop, gdp, "USA", 2)
	require.True(t, ok)
	assert.InDelta(t, 1.512, m, 1e-9)

	_, ok = demandMultiplier(pop, gdp, "ZMB", 2)
	assert.False(t, ok, "non-positive population index must be rejected")

	_, ok = demandMultiplier(pop, gdp, "FRA", 2)
	assert.False(t, ok, "unknown importer must be rejected")
}
