package stats

import (
	"sort"

	"github.com/verte-zerg/cpctprep/internal/model"
)

// TopWordsByFrequency returns the top N words by total attempts.
func TopWordsByFrequency(aggs []model.WordAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	sorted := make([]model.WordAggregate, len(aggs))
	copy(sorted, aggs)
	sort.Slice(sorted, func(i, j int) bool {
		ti := sorted[i].Correct + sorted[i].Incorrect
		tj := sorted[j].Correct + sorted[j].Incorrect
		if ti == tj {
			return sorted[i].Word < sorted[j].Word
		}
		return ti > tj
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = sorted[i].Word
	}
	return out
}
