package statsui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/cpctprep/internal/model"
)

type fakeSource struct {
	results []model.ResultAggregate
	aggs    []model.WordAggregate
	lastCfg model.StatsConfig
	err     error
}

func (f *fakeSource) ListResults(_ context.Context, cfg model.StatsConfig) ([]model.ResultAggregate, error) {
	f.lastCfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeSource) ListWordAggregatesForResults(context.Context, []string) ([]model.WordAggregate, error) {
	return f.aggs, nil
}

func (f *fakeSource) ListWordStatsForResults(_ context.Context, ids, words []string) (map[string]map[string]model.WordAggregate, error) {
	out := map[string]map[string]model.WordAggregate{}
	for _, id := range ids {
		out[id] = map[string]model.WordAggregate{}
		for _, a := range f.aggs {
			out[id][a.Word] = a
		}
	}
	return out, nil
}

func newTestModel(src *fakeSource) *Model {
	m := NewModel(src, model.StatsConfig{CurveWindow: 2})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func TestOverviewAndTabs(t *testing.T) {
	src := &fakeSource{
		results: []model.ResultAggregate{
			{ResultID: "r1", NetWPM: 30, GrossWPM: 32, Accuracy: 93.75, Exam: "cpct-english", Passed: true},
			{ResultID: "r2", NetWPM: 34, GrossWPM: 35, Accuracy: 97.14, Exam: "cpct-english", Passed: true},
		},
		aggs: []model.WordAggregate{{Word: "quick", Correct: 1, Incorrect: 1}},
	}
	m := newTestModel(src)
	view := m.View()
	for _, want := range []string{"Overview", "Avg net WPM", "32.00", "Pass rate"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in overview:\n%s", want, view)
		}
	}

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.activeTab != tabWords || !strings.Contains(m.View(), "quick") {
		t.Fatalf("expected word table on second tab:\n%s", m.View())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.activeTab != tabWordCurves {
		t.Fatalf("expected wrap-around to last tab, got %d", m.activeTab)
	}
}

func TestFilterLastN(t *testing.T) {
	src := &fakeSource{}
	m := newTestModel(src)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.filterMode || m.filterError == "" {
		t.Fatalf("expected validation error for non-numeric input")
	}
	m.filterInput.SetValue("5")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode || src.lastCfg.Last != 5 {
		t.Fatalf("expected last 5 to be applied, got %+v", src.lastCfg)
	}
	if !strings.Contains(m.filterSummary(), "last 5") {
		t.Fatalf("unexpected summary: %s", m.filterSummary())
	}
}

func TestCurveWindowKeys(t *testing.T) {
	src := &fakeSource{}
	m := newTestModel(src)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("+")})
	if src.lastCfg.CurveWindow != 3 {
		t.Fatalf("expected window 3, got %d", src.lastCfg.CurveWindow)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	if m.cfg.CurveWindow != 1 {
		t.Fatalf("window must not drop below 1, got %d", m.cfg.CurveWindow)
	}
}

func TestLoadErrorShown(t *testing.T) {
	m := newTestModel(&fakeSource{err: errors.New("db locked")})
	if !strings.Contains(m.View(), "db locked") {
		t.Fatalf("expected error in view:\n%s", m.View())
	}
}
