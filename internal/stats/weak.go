package stats

import (
	"sort"

	"github.com/verte-zerg/cpctprep/internal/model"
)

// SelectWeakWords selects up to top lowest-accuracy words. Words never
// mistyped are not weak.
func SelectWeakWords(aggs []model.WordAggregate, top int) map[string]struct{} {
	weak := map[string]struct{}{}
	candidates := make([]model.WordAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Incorrect > 0 {
			candidates = append(candidates, agg)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		ai, aj := wordAccuracy(candidates[i]), wordAccuracy(candidates[j])
		if ai == aj {
			return candidates[i].Word < candidates[j].Word
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for _, c := range candidates[:top] {
		weak[c.Word] = struct{}{}
	}
	return weak
}
