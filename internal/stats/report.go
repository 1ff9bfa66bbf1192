package stats

import (
	"context"
	"strings"

	"github.com/verte-zerg/cpctprep/internal/model"
)

// ResultSource is the storage needed to build a report.
type ResultSource interface {
	ListResults(ctx context.Context, cfg model.StatsConfig) ([]model.ResultAggregate, error)
	ListWordAggregatesForResults(ctx context.Context, resultIDs []string) ([]model.WordAggregate, error)
	ListWordStatsForResults(ctx context.Context, resultIDs, words []string) (map[string]map[string]model.WordAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Results         []model.ResultAggregate
	WindowResultIDs []string
	WordAggsAll     []model.WordAggregate
	WordAggsWindow  []model.WordAggregate
	CurveWords      []string
	PerResultWords  map[string]map[string]model.WordAggregate
}

// defaultCurveWords is how many frequent words get curves when none are named.
const defaultCurveWords = 3

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src ResultSource, cfg model.StatsConfig) (Report, error) {
	results, err := src.ListResults(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(results) > cfg.Last {
		results = results[len(results)-cfg.Last:]
	}

	allIDs := resultIDs(results)
	windowIDs := allIDs
	if cfg.CurveWindow > 0 && len(allIDs) > cfg.CurveWindow {
		windowIDs = allIDs[len(allIDs)-cfg.CurveWindow:]
	}
	aggsAll, err := src.ListWordAggregatesForResults(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	aggsWindow, err := src.ListWordAggregatesForResults(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	words := ParseWords(cfg.Words)
	if len(words) == 0 {
		words = TopWordsByFrequency(aggsAll, defaultCurveWords)
	}
	perResult, err := src.ListWordStatsForResults(ctx, allIDs, words)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Results:         results,
		WindowResultIDs: windowIDs,
		WordAggsAll:     aggsAll,
		WordAggsWindow:  aggsWindow,
		CurveWords:      words,
		PerResultWords:  perResult,
	}, nil
}

// ParseWords splits a comma-separated word list, dropping blanks.
func ParseWords(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if w := strings.TrimSpace(part); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func resultIDs(results []model.ResultAggregate) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ResultID
	}
	return ids
}
