// Package dedup implements the per-family, in-memory Deduplicator
// (spec.md §4.2): a pure, order-preserving pass that collapses
// intra-batch duplicates before they reach the Validator/Upserter.
package dedup

import "github.com/vitalpipe/ingest/internal/model"

// Result is the outcome of deduplicating one family's records.
type Result struct {
	Unique  []model.HealthMetric
	Removed int
}

// Deduplicate removes intra-batch duplicates from records, keyed by each
// record's DedupKey(). The first occurrence of a key wins; order is
// preserved among survivors. O(N) time and space.
func Deduplicate(records []model.HealthMetric) Result {
	seen := make(map[model.DedupKey]struct{}, len(records))
	unique := make([]model.HealthMetric, 0, len(records))
	removed := 0

	for _, r := range records {
		key := r.DedupKey()
		if _, ok := seen[key]; ok {
			removed++
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, r)
	}

	return Result{Unique: unique, Removed: removed}
}
