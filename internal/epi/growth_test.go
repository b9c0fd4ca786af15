package epi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGrowthIndex(t *testing.T) {
	h := Horizon{BaseYear: 2023, TargetYear: 2027}

	t.Run("full coverage compounds observed rates", func(t *testing.T) {
		audit := &Audit{}
		table := GrowthTable{
			"USA": {2023: 100, 2024: 110, 2025: 121, 2026: 133.1, 2027: 146.41},
		}
		index := BuildGrowthIndex(table, h, audit)
		require.Contains(t, index, "USA")
		assert.InDelta(t, 1.4641, index["USA"], 1e-9)
		assert.Zero(t, audit.MissingGrowth.Load())
	})

	t.Run("gaps are extrapolated with the entity's own endpoint CAGR", func(t *testing.T) {
		audit := &Audit{}
		table := GrowthTable{
			// Only the endpoints are observed; implied CAGR is 10% per year.
			"DEU": {2023: 100, 2027: 146.41},
		}
		index := BuildGrowthIndex(table, h, audit)
		require.Contains(t, index, "DEU")
		assert.InDelta(t, 1.4641, index["DEU"], 1e-6)
	})

	t.Run("single observation falls back to cross-sectional mean rates", func(t *testing.T) {
		audit := &Audit{}
		table := GrowthTable{
			"USA": {2023: 100, 2024: 110, 2025: 121, 2026: 133.1, 2027: 146.41},
			"ARG": {2023: 50},
		}
		index := BuildGrowthIndex(table, h, audit)
		require.Contains(t, index, "ARG")
		// Every horizon year borrows USA's 10% rate.
		assert.InDelta(t, 1.4641, index["ARG"], 1e-6)
	})

	t.Run("entity with no derivable rates gets no index", func(t *testing.T) {
		audit := &Audit{}
		table := GrowthTable{
			"XXX": {2023: 50},
		}
		index := BuildGrowthIndex(table, h, audit)
		assert.NotContains(t, index, "XXX")
		assert.Equal(t, int64(1), audit.MissingGrowth.Load())
	})

	t.Run("declining series yields index below one", func(t *testing.T) {
		audit := &Audit{}
		table := GrowthTable{
			"JPN": {2023: 100, 2024: 98, 2025: 96.04, 2026: 94.12, 2027: 92.24},
		}
		index := BuildGrowthIndex(table, h, audit)
		require.Contains(t, index, "JPN")
		assert.Less(t, index["JPN"], 1.0)
		assert.Greater(t, index["JPN"], 0.0)
	})
}

func TestHorizonYears(t *testing.T) {
	h := Horizon{BaseYear: 2023, TargetYear: 2027}
	assert.Equal(t, []int{2024, 2025, 2026, 2027}, h.Years())
	assert.True(t, h.IsValid())
	assert.False(t, Horizon{BaseYear: 2027, TargetYear: 2023}.IsValid())
}
