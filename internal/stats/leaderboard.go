package stats

import (
	"sort"

	"github.com/verte-zerg/cpctprep/internal/model"
)

// Leaderboard limits.
const (
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 100
)

// LeaderboardEntry is one ranked candidate.
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	model.ResultAggregate
}

// Leaderboard keeps each candidate's best result and ranks them by net WPM,
// then accuracy, then whoever got there first. limit <= 0 means the default.
func Leaderboard(results []model.ResultAggregate, limit int) []LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	if limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}

	best := map[string]model.ResultAggregate{}
	for _, r := range results {
		cur, ok := best[r.Candidate]
		if !ok || ranksAbove(r, cur) {
			best[r.Candidate] = r
		}
	}

	ranked := make([]model.ResultAggregate, 0, len(best))
	for _, r := range best {
		ranked = append(ranked, r)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranksAbove(ranked[i], ranked[j]) {
			return true
		}
		if ranksAbove(ranked[j], ranked[i]) {
			return false
		}
		return ranked[i].Candidate < ranked[j].Candidate
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]LeaderboardEntry, len(ranked))
	for i, r := range ranked {
		out[i] = LeaderboardEntry{Rank: i + 1, ResultAggregate: r}
	}
	return out
}

func ranksAbove(a, b model.ResultAggregate) bool {
	if a.NetWPM != b.NetWPM {
		return a.NetWPM > b.NetWPM
	}
	if a.Accuracy != b.Accuracy {
		return a.Accuracy > b.Accuracy
	}
	return a.EndedAt.Before(b.EndedAt)
}
