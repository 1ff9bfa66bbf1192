// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/cpctprep/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates a set of results.
type Summary struct {
	Results     int     `json:"results"`
	AvgNetWPM   float64 `json:"avgNetWordsPerMinute"`
	BestNetWPM  float64 `json:"bestNetWordsPerMinute"`
	AvgGrossWPM float64 `json:"avgGrossWordsPerMinute"`
	AvgAccuracy float64 `json:"avgAccuracyPercent"`
	Attempts    int     `json:"examAttempts"`
	Passed      int     `json:"examPassed"`
}

// PassRate is the share of exam attempts that passed, in percent.
func (s Summary) PassRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Passed) * 100 / float64(s.Attempts)
}

// Summarize computes averages over results. Only results tied to an exam
// count toward the pass rate.
func Summarize(results []model.ResultAggregate) Summary {
	s := Summary{Results: len(results)}
	if len(results) == 0 {
		return s
	}
	var net, gross, acc float64
	for _, r := range results {
		net += r.NetWPM
		gross += r.GrossWPM
		acc += r.Accuracy
		if r.NetWPM > s.BestNetWPM {
			s.BestNetWPM = r.NetWPM
		}
		if r.Exam != "" {
			s.Attempts++
			if r.Passed {
				s.Passed++
			}
		}
	}
	count := float64(len(results))
	s.AvgNetWPM = net / count
	s.AvgGrossWPM = gross / count
	s.AvgAccuracy = acc / count
	return s
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := minMax(values)
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[clamp(idx, 0, len(sparkChars)-1)])
	}
	return b.String()
}

// RenderSummary prints a summary block for results.
func RenderSummary(w io.Writer, results []model.ResultAggregate) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}
	s := Summarize(results)
	lines := []string{
		"Summary",
		fmt.Sprintf("Results: %d", s.Results),
		fmt.Sprintf("Avg net WPM: %.2f", s.AvgNetWPM),
		fmt.Sprintf("Best net WPM: %.2f", s.BestNetWPM),
		fmt.Sprintf("Avg gross WPM: %.2f", s.AvgGrossWPM),
		fmt.Sprintf("Avg accuracy: %.2f%%", s.AvgAccuracy),
	}
	if s.Attempts > 0 {
		lines = append(lines, fmt.Sprintf("Exam pass rate: %.2f%% (%d/%d)", s.PassRate(), s.Passed, s.Attempts))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints learning curves for net WPM and accuracy.
func RenderCurves(w io.Writer, results []model.ResultAggregate, window int) error {
	return RenderCurvesWithSize(w, results, window, 0, defaultPlotHeight, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, results []model.ResultAggregate, window, totalWidth, height int, useColor bool) error {
	if len(results) == 0 {
		return nil
	}
	net := make([]float64, len(results))
	acc := make([]float64, len(results))
	for i, r := range results {
		net[i] = r.NetWPM
		acc[i] = r.Accuracy
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "Net WPM", Values: MovingAverage(net, window)},
		{Name: "Accuracy %", Values: MovingAverage(acc, window)},
	}, width, height, useColor)
}

// WordRows formats aggregates as table rows, lowest accuracy first.
func WordRows(aggs []model.WordAggregate) [][]string {
	sorted := make([]model.WordAggregate, len(aggs))
	copy(sorted, aggs)
	sort.Slice(sorted, func(i, j int) bool {
		ai, aj := wordAccuracy(sorted[i]), wordAccuracy(sorted[j])
		if ai == aj {
			return sorted[i].Word < sorted[j].Word
		}
		return ai < aj
	})
	rows := make([][]string, 0, len(sorted))
	for _, agg := range sorted {
		rows = append(rows, []string{
			agg.Word,
			fmt.Sprintf("%.2f%%", wordAccuracy(agg)*100),
			fmt.Sprintf("%d", agg.Correct),
			fmt.Sprintf("%d", agg.Incorrect),
		})
	}
	return rows
}

// WordHeaders are the column titles matching WordRows.
var WordHeaders = []string{"Word", "Accuracy", "Correct", "Incorrect"}

// RenderWordTable prints per-word aggregates.
func RenderWordTable(w io.Writer, aggs []model.WordAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No word stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per-Word (Windowed)"); err != nil {
		return err
	}
	lines := formatTable(WordHeaders, WordRows(aggs), map[int]bool{1: true, 2: true, 3: true})
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderWordCurves prints per-word accuracy curves across results.
func RenderWordCurves(w io.Writer, results []model.ResultAggregate, perResult map[string]map[string]model.WordAggregate, words []string, window, totalWidth, height int, useColor bool) error {
	if len(words) == 0 || len(results) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Per-Word Curves"); err != nil {
		return err
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	for _, word := range words {
		series := make([]float64, 0, len(results))
		for _, r := range results {
			agg, ok := perResult[r.ResultID][word]
			if !ok || agg.Correct+agg.Incorrect == 0 {
				continue
			}
			series = append(series, wordAccuracy(agg)*100)
		}
		if err := PlotSeriesWithColor(w, fmt.Sprintf("Word %q", word), []Series{
			{Name: "Accuracy %", Values: MovingAverage(series, window)},
		}, width, height, useColor); err != nil {
			return err
		}
	}
	return nil
}

func wordAccuracy(agg model.WordAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 1
	}
	return float64(agg.Correct) / float64(total)
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
