package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/cpctprep/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "cpctprep.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestPassageLifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	p, err := st.CreatePassage(ctx, model.Passage{Title: "Rivers", Lang: "en", Exam: "cpct-english", Text: "rivers carry  water\nto the sea"})
	if err != nil {
		t.Fatalf("create passage: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected generated id")
	}
	if p.WordCount != 6 {
		t.Fatalf("expected 6 words, got %d", p.WordCount)
	}

	got, err := st.GetPassage(ctx, p.ID)
	if err != nil {
		t.Fatalf("get passage: %v", err)
	}
	if got.Text != p.Text || got.Exam != "cpct-english" {
		t.Fatalf("unexpected passage: %+v", got)
	}

	p.Text = "short text"
	updated, err := st.UpdatePassage(ctx, p)
	if err != nil {
		t.Fatalf("update passage: %v", err)
	}
	if updated.WordCount != 2 {
		t.Fatalf("expected recomputed word count, got %d", updated.WordCount)
	}

	if _, err := st.CreatePassage(ctx, model.Passage{Title: "Hindi", Lang: "hi", Exam: "cpct-hindi", Text: "नमस्ते दुनिया"}); err != nil {
		t.Fatalf("create passage: %v", err)
	}
	list, err := st.ListPassages(ctx, model.PassageFilter{Lang: "en"})
	if err != nil {
		t.Fatalf("list passages: %v", err)
	}
	if len(list) != 1 || list[0].ID != p.ID {
		t.Fatalf("unexpected filtered list: %+v", list)
	}
	random, err := st.RandomPassage(ctx, model.PassageFilter{Exam: "cpct-hindi"})
	if err != nil {
		t.Fatalf("random passage: %v", err)
	}
	if random.Lang != "hi" {
		t.Fatalf("unexpected random passage: %+v", random)
	}

	if err := st.DeletePassage(ctx, p.ID); err != nil {
		t.Fatalf("delete passage: %v", err)
	}
	if _, err := st.GetPassage(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.DeletePassage(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := st.RandomPassage(ctx, model.PassageFilter{Lang: "fr"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty filter, got %v", err)
	}
}

func TestResultsAndWordStats(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		end := start.Add(30 * time.Second)
		id, err := st.InsertResult(ctx, model.Result{
			Candidate:      "asha",
			Exam:           "cpct-english",
			Lang:           "en",
			Source:         model.SourcePractice,
			StartedAt:      start,
			EndedAt:        end,
			DurationMs:     end.Sub(start).Milliseconds(),
			TypedText:      "the quikc fox",
			ReferenceText:  "the quick fox",
			CorrectWords:   2,
			IncorrectWords: 1,
			GrossWPM:       6,
			NetWPM:         4,
			Accuracy:       66.67,
			Passed:         i == 2,
		}, []model.WordStats{
			{Word: "the", Correct: 1},
			{Word: "quick", Incorrect: 1},
			{Word: "fox", Correct: 1},
		})
		if err != nil {
			t.Fatalf("insert result: %v", err)
		}
		ids = append(ids, id)
	}

	full, err := st.GetResult(ctx, ids[2])
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if !full.Passed || full.TypedText != "the quikc fox" || full.Accuracy != 66.67 {
		t.Fatalf("unexpected result: %+v", full)
	}
	if _, err := st.GetResult(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := st.ListResults(ctx, model.StatsConfig{Exam: "cpct-english", Last: 2})
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(list) != 2 || list[0].ResultID != ids[1] || list[1].ResultID != ids[2] {
		t.Fatalf("unexpected results: %+v", list)
	}

	aggs, err := st.ListWordAggregatesForResults(ctx, ids)
	if err != nil {
		t.Fatalf("word aggregates: %v", err)
	}
	byWord := map[string]model.WordAggregate{}
	for _, a := range aggs {
		byWord[a.Word] = a
	}
	if byWord["quick"].Incorrect != 3 || byWord["the"].Correct != 3 {
		t.Fatalf("unexpected aggregates: %+v", aggs)
	}

	weak, err := st.GetWeakWords(ctx, 1, "en")
	if err != nil {
		t.Fatalf("weak words: %v", err)
	}
	if len(weak) != 3 {
		t.Fatalf("expected 3 words from the latest result, got %d", len(weak))
	}

	perResult, err := st.ListWordStatsForResults(ctx, ids[:1], []string{"quick"})
	if err != nil {
		t.Fatalf("word stats: %v", err)
	}
	if perResult[ids[0]]["quick"].Incorrect != 1 {
		t.Fatalf("unexpected per-result stats: %+v", perResult)
	}
}

func TestListResultsOrdersWithinSecond(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for _, end := range []time.Time{base, base.Add(500 * time.Millisecond)} {
		id, err := st.InsertResult(ctx, model.Result{
			Candidate: "asha",
			Lang:      "en",
			Source:    model.SourcePractice,
			StartedAt: end.Add(-time.Minute),
			EndedAt:   end,
		}, nil)
		if err != nil {
			t.Fatalf("insert result: %v", err)
		}
		ids = append(ids, id)
	}

	list, err := st.ListResults(ctx, model.StatsConfig{Last: 1})
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(list) != 1 || list[0].ResultID != ids[1] {
		t.Fatalf("expected the later result, got %+v", list)
	}

	since := base.Add(250 * time.Millisecond)
	list, err = st.ListResults(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(list) != 1 || list[0].ResultID != ids[1] {
		t.Fatalf("expected only the later result since %v, got %+v", since, list)
	}
	if !list[0].EndedAt.Equal(base.Add(500 * time.Millisecond)) {
		t.Fatalf("unexpected ended at %v", list[0].EndedAt)
	}
}

func TestAdmins(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	a, err := st.CreateAdmin(ctx, model.Admin{Username: "root", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if _, err := st.CreateAdmin(ctx, model.Admin{Username: "root", PasswordHash: "other"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	if err := st.SetAdminLastLogin(ctx, a.ID, now); err != nil {
		t.Fatalf("set last login: %v", err)
	}
	got, err := st.GetAdminByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if got.LastLogin == nil || !got.LastLogin.Equal(now) {
		t.Fatalf("unexpected last login: %v", got.LastLogin)
	}
	if _, err := st.GetAdminByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
