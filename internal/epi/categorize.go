package epi

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

// CategorizerPolicy selects how numeric scores map to ordinal tiers.
type CategorizerPolicy string

const (
	// PolicyFixedThreshold assigns tiers from fixed boundary values over the
	// score range.
	PolicyFixedThreshold CategorizerPolicy = "fixed-threshold"
	// PolicyAdaptiveCluster assigns tiers from 1-D clustering of the
	// log-transformed scores within each group.
	PolicyAdaptiveCluster CategorizerPolicy = "adaptive-cluster"
)

// categorizeConcurrency bounds the per-group clustering fan-out.
const categorizeConcurrency = 4

// CategorizerParams configures the categorizer. Tiers are ordered lowest to
// highest. For the fixed-threshold policy, Thresholds must carry one more
// boundary than there are tiers: tier i covers [Thresholds[i], Thresholds[i+1]).
type CategorizerParams struct {
	Policy      CategorizerPolicy `json:"policy"`
	Tiers       []string          `json:"tiers"`
	Thresholds  []float64         `json:"thresholds"`
	MaxClusters int               `json:"max_clusters"`
}

// Validate surfaces categorizer configuration errors before any run.
func (cp CategorizerParams) Validate() error {
	if len(cp.Tiers) < 2 {
		return fmt.Errorf("at least two tier labels are required, got %d", len(cp.Tiers))
	}
	switch cp.Policy {
	case PolicyFixedThreshold:
		if len(cp.Thresholds) != len(cp.Tiers)+1 {
			return fmt.Errorf("fixed-threshold policy needs %d boundaries for %d tiers, got %d",
				len(cp.Tiers)+1, len(cp.Tiers), len(cp.Thresholds))
		}
		for i := 1; i < len(cp.Thresholds); i++ {
			if cp.Thresholds[i] <= cp.Thresholds[i-1] {
				return fmt.Errorf("threshold boundaries must be strictly increasing: %v", cp.Thresholds)
			}
		}
	case PolicyAdaptiveCluster:
		if cp.MaxClusters < 2 {
			return fmt.Errorf("adaptive-cluster policy needs max_clusters >= 2, got %d", cp.MaxClusters)
		}
	default:
		return fmt.Errorf("unknown categorizer policy %q", cp.Policy)
	}
	return nil
}

// Categorize maps each score to an ordinal tier label. Scores at the same
// position in the two slices belong together; groups partition the rows and
// clustering runs independently per group, so one group never observes
// another's scores. A nil or empty groups slice treats the whole input as a
// single group.
//
// Degenerate groups (fewer than two finite, positive scores) take the lowest
// tier outright. Non-finite and non-positive scores always take the lowest
// tier, whatever the policy.
func Categorize(scores []float64, groups []string, cp CategorizerParams) ([]string, error) {
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	if groups != nil && len(groups) != len(scores) {
		return nil, fmt.Errorf("groups length %d does not match scores length %d", len(groups), len(scores))
	}

	tiers := make([]string, len(scores))
	if cp.Policy == PolicyFixedThreshold {
		for i, s := range scores {
			tiers[i] = fixedTier(s, cp)
		}
		return tiers, nil
	}

	grouped := make(map[string][]int)
	for i := range scores {
		g := ""
		if groups != nil {
			g = groups[i]
		}
		grouped[g] = append(grouped[g], i)
	}

	var eg errgroup.Group
	eg.SetLimit(categorizeConcurrency)
	for _, indices := range grouped {
		indices := indices
		eg.Go(func() error {
			clusterGroup(scores, indices, cp, tiers)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return tiers, nil
}

// fixedTier maps one score onto the fixed boundaries. Scores below the first
// boundary, or not finite, land on the lowest tier; scores at or above the
// last boundary land on the highest.
func fixedTier(score float64, cp CategorizerParams) string {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < cp.Thresholds[0] {
		return cp.Tiers[0]
	}
	for i := 0; i < len(cp.Tiers); i++ {
		if score < cp.Thresholds[i+1] {
			return cp.Tiers[i]
		}
	}
	return cp.Tiers[len(cp.Tiers)-1]
}

// clusterGroup buckets one group's rows by 1-D k-means over log scores,
// writing tier labels into the shared result slice at this group's indices
// only.
func clusterGroup(scores []float64, indices []int, cp CategorizerParams, tiers []string) {
	usable := make([]int, 0, len(indices))
	logs := make([]float64, 0, len(indices))
	for _, idx := range indices {
		s := scores[idx]
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
			tiers[idx] = cp.Tiers[0]
			continue
		}
		usable = append(usable, idx)
		logs = append(logs, math.Log(s))
	}

	if len(usable) < 2 {
		for _, idx := range usable {
			tiers[idx] = cp.Tiers[0]
		}
		return
	}

	k := cp.MaxClusters
	if k > len(cp.Tiers) {
		k = len(cp.Tiers)
	}
	if distinct := distinctValues(logs); k > distinct {
		k = distinct
	}
	if k < 2 {
		for _, idx := range usable {
			tiers[idx] = cp.Tiers[0]
		}
		return
	}

	assignment, order := kmeans1d(logs, k)
	for i, idx := range usable {
		rank := order[assignment[i]]
		tiers[idx] = cp.Tiers[tierIndexForRank(rank, k, len(cp.Tiers))]
	}
}

// tierIndexForRank spreads k ascending cluster ranks across the tier ladder
// so the lowest cluster always takes the lowest tier and the highest cluster
// the highest.
func tierIndexForRank(rank, k, tierCount int) int {
	if k <= 1 {
		return 0
	}
	return int(math.Round(float64(rank) * float64(tierCount-1) / float64(k-1)))
}

// kmeans1d runs Lloyd's algorithm on one dimension with deterministic
// quantile seeding. It returns the cluster assignment per value and the
// ascending-centroid rank per cluster id.
func kmeans1d(values []float64, k int) (assignment []int, rankByCluster []int) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	centroids := make([]float64, k)
	for i := range centroids {
		pos := float64(i) * float64(len(sorted)-1) / float64(k-1)
		centroids[i] = sorted[int(math.Round(pos))]
	}

	assignment = make([]int, len(values))
	for iter := 0; iter < 100; iter++ {
		changed := false
		for i, v := range values {
			best := 0
			bestDist := math.Abs(v - centroids[0])
			for c := 1; c < k; c++ {
				if d := math.Abs(v - centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}

		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range values {
			sums[assignment[i]] += v
			counts[assignment[i]]++
		}
		for c := 0; c < k; c++ {
			if counts[c] > 0 {
				centroids[c] = sums[c] / float64(counts[c])
			}
		}
		if !changed && iter > 0 {
			break
		}
	}

	// Rank clusters by ascending centroid so tier order follows score order.
	type centroidRank struct {
		cluster  int
		centroid float64
	}
	ranks := make([]centroidRank, k)
	for c := 0; c < k; c++ {
		ranks[c] = centroidRank{cluster: c, centroid: centroids[c]}
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i].centroid < ranks[j].centroid })

	rankByCluster = make([]int, k)
	for rank, cr := range ranks {
		rankByCluster[cr.cluster] = rank
	}
	return assignment, rankByCluster
}

func distinctValues(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
