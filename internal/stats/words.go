package stats

import (
	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/typing"
)

// WordStatsFromAlignment tallies outcomes per reference word, in order of
// first appearance. Extra typed words past the reference have no reference
// word and are not tallied.
func WordStatsFromAlignment(a typing.Alignment) []model.WordStats {
	index := map[string]int{}
	var out []model.WordStats
	for _, o := range a.Words {
		if o.Reference == "" {
			continue
		}
		i, ok := index[o.Reference]
		if !ok {
			i = len(out)
			index[o.Reference] = i
			out = append(out, model.WordStats{Word: o.Reference})
		}
		if o.Correct {
			out[i].Correct++
		} else {
			out[i].Incorrect++
		}
	}
	return out
}
