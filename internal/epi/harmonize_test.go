package epi

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{
		HomeCountry:    "BRA",
		HomeRegion:     "SC",
		UnitMultiplier: 1000,
		Elasticity:     1.201,
		Weights:        DefaultWeightSchedule(),
		Horizon:        Horizon{BaseYear: 2023, TargetYear: 2027},
	}
}

func testMappings() Mappings {
	return Mappings{
		Countries: map[string]string{"76": "BRA", "842": "USA", "156": "CHN"},
		Products:  map[string]string{"441820": "Doors and frames of wood"},
	}
}

func TestHarmonize(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	tests := []struct {
		name              string
		rows              []RawTradeRow
		wantRows          int
		wantValue         float64
		wantDropCountries int64
		wantDropProducts  int64
	}{
		{
			name: "duplicate keys are summed",
			rows: []RawTradeRow{
				{Year: 2023, ExporterCode: "76", ImporterCode: "842", ProductCode: "441820", Value: 10, Quantity: 1},
				{Year: 2023, ExporterCode: "76", ImporterCode: "842", ProductCode: "441820", Value: 5, Quantity: 2},
			},
			wantRows:  1,
			wantValue: 15000, // (10+5) × unit multiplier
		},
		{
			name: "unmapped country is dropped and counted",
			rows: []RawTradeRow{
				{Year: 2023, ExporterCode: "999", ImporterCode: "842", ProductCode: "441820", Value: 10},
				{Year: 2023, ExporterCode: "76", ImporterCode: "842", ProductCode: "441820", Value: 10},
			},
			wantRows:          1,
			wantValue:         10000,
			wantDropCountries: 1,
		},
		{
			name: "unmapped product is dropped and counted",
			rows: []RawTradeRow{
				{Year: 2023, ExporterCode: "76", ImporterCode: "842", ProductCode: "000000", Value: 10},
			},
			wantRows:         0,
			wantDropProducts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audit := &Audit{}
			records, err := Harmonize(ctx, logger, tt.rows, testMappings(), testParams(), audit)
			require.NoError(t, err)
			assert.Len(t, records, tt.wantRows)
			if tt.wantRows > 0 {
				assert.InDelta(t, tt.wantValue, records[0].Value, 1e-9)
				assert.Equal(t, "BRA", records[0].Exporter)
				assert.Equal(t, "USA", records[0].Importer)
				assert.Equal(t, "Doors and frames of wood", records[0].ProductDescription)
			}
			assert.Equal(t, tt.wantDropCountries, audit.UnmappedCountry.Load())
			assert.Equal(t, tt.wantDropProducts, audit.UnmappedProduct.Load())
		})
	}
}

func TestHarmonizeIdempotent(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	rows := []RawTradeRow{
		{Year: 2022, ExporterCode: "76", ImporterCode: "842", ProductCode: "441820", Value: 7, Quantity: 3},
		{Year: 2023, ExporterCode: "76", ImporterCode: "842", ProductCode: "441820", Value: 10, Quantity: 1},
		{Year: 2023, ExporterCode: "76", ImporterCode: "842", ProductCode: "441820", Value: 5, Quantity: 2},
		{Year: 2023, ExporterCode: "156", ImporterCode: "842", ProductCode: "441820", Value: 4, Quantity: 4},
	}

	first, err := Harmonize(ctx, logger, rows, testMappings(), testParams(), &Audit{})
	require.NoError(t, err)
	second, err := Harmonize(ctx, logger, rows, testMappings(), testParams(), &Audit{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestHarmonizeLocalizedDescriptions(t *testing.T) {
	maps := testMappings()
	maps.LocalizedProducts = map[string]string{"441820": "Portas e molduras de madeira"}

	records, err := Harmonize(context.Background(), slog.Default(), []RawTradeRow{
		{Year: 2023, ExporterCode: "76", ImporterCode: "842", ProductCode: "441820", Value: 1},
	}, maps, testParams(), &Audit{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Portas e molduras de madeira", records[0].ProductDescription)
}

func TestHarmonizeRequiresReferenceTables(t *testing.T) {
	_, err := Harmonize(context.Background(), slog.Default(), nil, Mappings{}, testParams(), &Audit{})
	require.Error(t, err)
}
