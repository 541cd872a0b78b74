package accounting

// ReconciliationSummary counts transactions in a period by confirmation
// status. It is derived fresh per request; matched means status CONFIRMED.
type ReconciliationSummary struct {
	TotalCount       int64 `json:"totalCount"`
	MatchedCount     int64 `json:"matchedCount"`
	UnmatchedCount   int64 `json:"unmatchedCount"`
	DiscrepancyCount int64 `json:"discrepancyCount"`
}

// SummarizeWindow derives the reconciliation counts from raw totals.
func SummarizeWindow(total, matched int64) *ReconciliationSummary {
	unmatched := total - matched
	if unmatched < 0 {
		unmatched = 0
	}
	return &ReconciliationSummary{
		TotalCount:       total,
		MatchedCount:     matched,
		UnmatchedCount:   unmatched,
		DiscrepancyCount: unmatched,
	}
}
