package epi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCategorizerParams(policy CategorizerPolicy) CategorizerParams {
	return CategorizerParams{
		Policy:      policy,
		Tiers:       []string{"Baixo", "Médio-baixo", "Médio", "Médio-alto", "Alto"},
		Thresholds:  []float64{0, 0.02, 0.04, 0.06, 0.2, 1.01},
		MaxClusters: 5,
	}
}

func TestCategorizeFixedThreshold(t *testing.T) {
	cp := testCategorizerParams(PolicyFixedThreshold)

	tests := []struct {
		name  string
		score float64
		want  string
	}{
		{"below second boundary", 0.01, "Baixo"},
		{"exactly at a boundary moves up", 0.02, "Médio-baixo"},
		{"mid band", 0.03, "Médio-baixo"},
		{"third band", 0.05, "Médio"},
		{"fourth band", 0.07, "Médio-alto"},
		{"top band", 0.25, "Alto"},
		{"at the first boundary", 0, "Baixo"},
		{"below the first boundary", -1, "Baixo"},
		{"beyond the last boundary", 2, "Alto"},
		{"not a number", math.NaN(), "Baixo"},
		{"positive infinity", math.Inf(1), "Baixo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tiers, err := Categorize([]float64{tt.score}, nil, cp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tiers[0])
		})
	}
}

func TestCategorizeAdaptiveCluster(t *testing.T) {
	cp := testCategorizerParams(PolicyAdaptiveCluster)

	t.Run("extremes land on the extreme tiers", func(t *testing.T) {
		scores := []float64{0.001, 0.0012, 50, 55}
		tiers, err := Categorize(scores, nil, cp)
		require.NoError(t, err)
		assert.Equal(t, "Baixo", tiers[0])
		assert.Equal(t, "Alto", tiers[3])
	})

	t.Run("tiers are monotone in score within a group", func(t *testing.T) {
		scores := []float64{0.01, 0.05, 0.3, 2, 15, 90}
		tiers, err := Categorize(scores, nil, cp)
		require.NoError(t, err)

		rank := func(label string) int {
			for i, tier := range cp.Tiers {
				if tier == label {
					return i
				}
			}
			t.Fatalf("unknown tier %q", label)
			return -1
		}
		for i := 1; i < len(tiers); i++ {
			assert.GreaterOrEqual(t, rank(tiers[i]), rank(tiers[i-1]),
				"score %g must not outrank score %g", scores[i-1], scores[i])
		}
	})

	t.Run("groups cluster independently", func(t *testing.T) {
		scores := []float64{1, 10, 100, 1000}
		groups := []string{"g1", "g1", "g2", "g2"}
		tiers, err := Categorize(scores, groups, cp)
		require.NoError(t, err)
		// Each group's own low and high, regardless of the other group's range.
		assert.Equal(t, "Baixo", tiers[0])
		assert.Equal(t, "Alto", tiers[1])
		assert.Equal(t, "Baixo", tiers[2])
		assert.Equal(t, "Alto", tiers[3])
	})

	t.Run("degenerate group takes the lowest tier", func(t *testing.T) {
		tiers, err := Categorize([]float64{0.5}, nil, cp)
		require.NoError(t, err)
		assert.Equal(t, "Baixo", tiers[0])
	})

	t.Run("non positive and non finite scores take the lowest tier", func(t *testing.T) {
		scores := []float64{-3, 0, math.NaN(), 5, 500}
		tiers, err := Categorize(scores, nil, cp)
		require.NoError(t, err)
		assert.Equal(t, "Baixo", tiers[0])
		assert.Equal(t, "Baixo", tiers[1])
		assert.Equal(t, "Baixo", tiers[2])
		assert.Equal(t, "Alto", tiers[4])
	})

	t.Run("identical scores collapse to the lowest tier", func(t *testing.T) {
		tiers, err := Categorize([]float64{0.7, 0.7, 0.7}, nil, cp)
		require.NoError(t, err)
		for _, tier := range tiers {
			assert.Equal(t, "Baixo", tier)
		}
	})
}

func TestCategorizerParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CategorizerParams)
		wantErr bool
	}{
		{"valid fixed threshold", func(cp *CategorizerParams) {}, false},
		{"too few tiers", func(cp *CategorizerParams) { cp.Tiers = []string{"only"} }, true},
		{"wrong boundary count", func(cp *CategorizerParams) { cp.Thresholds = cp.Thresholds[:3] }, true},
		{"non increasing boundaries", func(cp *CategorizerParams) { cp.Thresholds[2] = cp.Thresholds[1] }, true},
		{"unknown policy", func(cp *CategorizerParams) { cp.Policy = "quantile" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := testCategorizerParams(PolicyFixedThreshold)
			tt.mutate(&cp)
			err := cp.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("cluster policy needs at least two clusters", func(t *testing.T) {
		cp := testCategorizerParams(PolicyAdaptiveCluster)
		cp.MaxClusters = 1
		assert.Error(t, cp.Validate())
	})
}

func TestCategorizeRejectsMismatchedGroups(t *testing.T) {
	cp := testCategorizerParams(PolicyFixedThreshold)
	_, err := Categorize([]float64{1, 2}, []string{"only-one"}, cp)
	assert.Error(t, err)
}
