package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/typing"
)

func TestSummarize(t *testing.T) {
	results := []model.ResultAggregate{
		{NetWPM: 30, GrossWPM: 32, Accuracy: 93.75, Exam: "cpct-english", Passed: true},
		{NetWPM: 20, GrossWPM: 24, Accuracy: 83.33, Exam: "cpct-english"},
		{NetWPM: 40, GrossWPM: 40, Accuracy: 100},
	}
	s := Summarize(results)
	if s.Results != 3 || s.BestNetWPM != 40 || s.AvgNetWPM != 30 || s.AvgGrossWPM != 32 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Attempts != 2 || s.Passed != 1 || s.PassRate() != 50 {
		t.Fatalf("unexpected pass rate: %+v", s)
	}
	if empty := Summarize(nil); empty.PassRate() != 0 || empty.Results != 0 {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "No results found.\n" {
		t.Fatalf("unexpected empty output: %q", buf.String())
	}

	buf.Reset()
	err := RenderSummary(&buf, []model.ResultAggregate{{NetWPM: 28.5, GrossWPM: 30, Accuracy: 95, Exam: "cpct-english"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Avg net WPM: 28.50", "Avg accuracy: 95.00%", "Exam pass rate: 0.00% (0/1)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected average: %v", got)
		}
	}
	same := MovingAverage([]float64{1, 9}, 1)
	if same[0] != 1 || same[1] != 9 {
		t.Fatalf("window 1 should copy: %v", same)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 5, 10}); got != " +@" {
		t.Fatalf("unexpected sparkline: %q", got)
	}
	if got := Sparkline([]float64{3, 3}); got != "++" {
		t.Fatalf("unexpected flat sparkline: %q", got)
	}
	if Sparkline(nil) != "" {
		t.Fatalf("expected empty sparkline")
	}
}

func TestWordStatsFromAlignment(t *testing.T) {
	a := typing.Align(
		typing.Tokenize("the cat and teh dog sat down"),
		typing.Tokenize("the cat and the dog"),
	)
	ws := WordStatsFromAlignment(a)
	if len(ws) != 4 {
		t.Fatalf("expected 4 distinct words, got %+v", ws)
	}
	if ws[0].Word != "the" || ws[0].Correct != 1 || ws[0].Incorrect != 1 {
		t.Fatalf("unexpected stats for the: %+v", ws[0])
	}
	for _, w := range ws {
		if w.Word == "sat" || w.Word == "down" {
			t.Fatalf("extra typed words must not be tallied: %+v", ws)
		}
	}
}

func TestRenderWordTable(t *testing.T) {
	var buf bytes.Buffer
	err := RenderWordTable(&buf, []model.WordAggregate{
		{Word: "fox", Correct: 4},
		{Word: "quick", Correct: 1, Incorrect: 3},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if !strings.HasPrefix(lines[2], "quick") || !strings.Contains(lines[2], "25.00%") {
		t.Fatalf("expected lowest accuracy first, got %q", lines[2])
	}
}

func TestLeaderboard(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	results := []model.ResultAggregate{
		{ResultID: "a1", Candidate: "asha", NetWPM: 31, Accuracy: 90, EndedAt: base},
		{ResultID: "a2", Candidate: "asha", NetWPM: 35, Accuracy: 88, EndedAt: base.Add(time.Hour)},
		{ResultID: "b1", Candidate: "bala", NetWPM: 35, Accuracy: 95, EndedAt: base.Add(2 * time.Hour)},
		{ResultID: "c1", Candidate: "chen", NetWPM: 35, Accuracy: 88, EndedAt: base.Add(3 * time.Hour)},
		{ResultID: "d1", Candidate: "devi", NetWPM: 12, Accuracy: 100, EndedAt: base},
	}
	board := Leaderboard(results, 3)
	if len(board) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(board))
	}
	got := []string{board[0].ResultID, board[1].ResultID, board[2].ResultID}
	want := []string{"b1", "a2", "c1"}
	for i := range want {
		if got[i] != want[i] || board[i].Rank != i+1 {
			t.Fatalf("unexpected ranking: %+v", board)
		}
	}
	if len(Leaderboard(results, 0)) != 4 {
		t.Fatalf("expected one entry per candidate with default limit")
	}
}
