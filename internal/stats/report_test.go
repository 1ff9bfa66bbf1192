package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/store"
)

func TestBuildReport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "cpctprep.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		end := start.Add(30 * time.Second)
		id, err := st.InsertResult(ctx, model.Result{
			Candidate:  "asha",
			Lang:       "en",
			Source:     model.SourcePractice,
			StartedAt:  start,
			EndedAt:    end,
			DurationMs: end.Sub(start).Milliseconds(),
			NetWPM:     float64(20 + i),
			Accuracy:   90,
		}, []model.WordStats{
			{Word: "the", Correct: 3},
			{Word: "quick", Correct: 1, Incorrect: 1},
		})
		if err != nil {
			t.Fatalf("insert result: %v", err)
		}
		ids = append(ids, id)
	}

	report, err := BuildReport(ctx, st, model.StatsConfig{Lang: "en", Last: 2, CurveWindow: 1})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].ResultID != ids[1] || report.Results[1].ResultID != ids[2] {
		t.Fatalf("unexpected result ids: %+v", report.Results)
	}
	if len(report.WindowResultIDs) != 1 || report.WindowResultIDs[0] != ids[2] {
		t.Fatalf("unexpected window ids: %v", report.WindowResultIDs)
	}
	if len(report.WordAggsAll) != 2 || len(report.WordAggsWindow) != 2 {
		t.Fatalf("expected word aggregates, got %+v / %+v", report.WordAggsAll, report.WordAggsWindow)
	}
	if len(report.CurveWords) != 2 || report.CurveWords[0] != "the" {
		t.Fatalf("expected frequent words for curves, got %v", report.CurveWords)
	}
	if report.PerResultWords[ids[2]]["quick"].Incorrect != 1 {
		t.Fatalf("unexpected per-result words: %+v", report.PerResultWords)
	}

	named, err := BuildReport(ctx, st, model.StatsConfig{Words: " quick , ,"})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(named.CurveWords) != 1 || named.CurveWords[0] != "quick" {
		t.Fatalf("expected named curve words, got %v", named.CurveWords)
	}
}
