package epi

import (
	"log/slog"
	"sync/atomic"
)

// Audit counts the recoverable anomalies a run absorbs so data completeness
// stays auditable. Counters are atomic because some stages fan out across
// independent groups.
type Audit struct {
	UnmappedCountry   atomic.Int64
	UnmappedProduct   atomic.Int64
	NoHistory         atomic.Int64
	MissingGrowth     atomic.Int64
	ZeroDivision      atomic.Int64
	NonFiniteScore    atomic.Int64
	OutOfRangeShare   atomic.Int64
	ExcludedEpiRecord atomic.Int64
}

// LogSummary emits one structured line per nonzero counter.
func (a *Audit) LogSummary(logger *slog.Logger) {
	logger.Info("run audit summary",
		"unmapped_country_rows", a.UnmappedCountry.Load(),
		"unmapped_product_rows", a.UnmappedProduct.Load(),
		"series_without_history", a.NoHistory.Load(),
		"entities_missing_growth", a.MissingGrowth.Load(),
		"zero_divisions", a.ZeroDivision.Load(),
		"non_finite_scores", a.NonFiniteScore.Load(),
		"out_of_range_shares", a.OutOfRangeShare.Load(),
		"excluded_epi_records", a.ExcludedEpiRecord.Load(),
	)
}
