// Package typing computes word-level typing speed and accuracy metrics.
//
// Scoring follows the CPCT convention: typed and reference text are compared
// word by word at matching positions, with no re-synchronization after an
// inserted or dropped word. Every function in this package is pure.
package typing

import (
	"math"
	"time"
)

// Metrics holds standardized speed and accuracy figures for one submission.
type Metrics struct {
	GrossWordsPerMinute float64 `json:"grossWordsPerMinute"`
	NetWordsPerMinute   float64 `json:"netWordsPerMinute"`
	AccuracyPercent     float64 `json:"accuracyPercent"`
	GrossWordCount      int     `json:"grossWordCount"`
	NetWordCount        int     `json:"netWordCount"`
}

// CorrectWordCount returns the number of correctly typed words.
func (m Metrics) CorrectWordCount() int {
	return m.NetWordCount
}

// IncorrectWordCount returns the number of words counted as errors.
func (m Metrics) IncorrectWordCount() int {
	return m.GrossWordCount - m.NetWordCount
}

// Submission is a typed attempt against a reference text.
type Submission struct {
	Typed     string
	Reference string
	Elapsed   time.Duration
}

// Engine computes metrics using a fixed rounding policy.
// The zero value rounds half away from zero.
type Engine struct {
	Rounding RoundingMode
}

// ComputeMetrics derives metrics from word counts using the default engine.
func ComputeMetrics(correctWordCount, incorrectWordCount int, elapsedMinutes float64) Metrics {
	return Engine{}.ComputeMetrics(correctWordCount, incorrectWordCount, elapsedMinutes)
}

// ComputeMetricsFromText aligns typed against reference and derives metrics
// using the default engine.
func ComputeMetricsFromText(typedText, referenceText string, elapsedMinutes float64) Metrics {
	return Engine{}.ComputeMetricsFromText(typedText, referenceText, elapsedMinutes)
}

// Score aligns a submission and computes its metrics using the default engine.
func Score(sub Submission) (Metrics, Alignment) {
	return Engine{}.Score(sub)
}

// ComputeMetrics derives metrics from word counts.
//
// Negative counts are clamped to zero. A non-positive, NaN or infinite
// elapsed time yields zero rates, and a zero gross rate yields 100% accuracy.
func (e Engine) ComputeMetrics(correctWordCount, incorrectWordCount int, elapsedMinutes float64) Metrics {
	if correctWordCount < 0 {
		correctWordCount = 0
	}
	if incorrectWordCount < 0 {
		incorrectWordCount = 0
	}
	gross := correctWordCount + incorrectWordCount

	var grossWPM, netWPM float64
	if validMinutes(elapsedMinutes) {
		grossWPM = float64(gross) / elapsedMinutes
		netWPM = float64(correctWordCount) / elapsedMinutes
		if math.IsInf(grossWPM, 1) {
			// Denormal elapsed times overflow; treat them like zero.
			grossWPM, netWPM = 0, 0
		}
	}
	accuracy := 100.0
	if grossWPM > 0 {
		// Same ratio as net/gross rate, taken from the counts so a huge
		// rate cannot overflow on the way to a percentage.
		accuracy = float64(correctWordCount) * 100 / float64(gross)
	}

	return Metrics{
		GrossWordsPerMinute: Round(grossWPM, e.Rounding),
		NetWordsPerMinute:   Round(netWPM, e.Rounding),
		AccuracyPercent:     Round(accuracy, e.Rounding),
		GrossWordCount:      gross,
		NetWordCount:        correctWordCount,
	}
}

// ComputeMetricsFromText tokenizes both texts, aligns them positionally and
// derives metrics from the resulting counts.
func (e Engine) ComputeMetricsFromText(typedText, referenceText string, elapsedMinutes float64) Metrics {
	m, _ := e.ScoreMinutes(typedText, referenceText, elapsedMinutes)
	return m
}

// ScoreMinutes is ComputeMetricsFromText that also returns the alignment.
func (e Engine) ScoreMinutes(typedText, referenceText string, elapsedMinutes float64) (Metrics, Alignment) {
	a := Align(Tokenize(typedText), Tokenize(referenceText))
	return e.ComputeMetrics(a.Correct, a.Incorrect, elapsedMinutes), a
}

// Score aligns a submission and computes its metrics, returning the
// alignment for callers that record per-word outcomes.
func (e Engine) Score(sub Submission) (Metrics, Alignment) {
	return e.ScoreMinutes(sub.Typed, sub.Reference, ElapsedMinutes(sub.Elapsed))
}

// ElapsedMinutes converts a duration to fractional minutes.
func ElapsedMinutes(d time.Duration) float64 {
	return d.Minutes()
}

func validMinutes(m float64) bool {
	return m > 0 && !math.IsInf(m, 1)
}
