// Package generator builds typing text sequences.
package generator

import (
	"math/rand"
	"strings"
	"time"
	"unicode"
)

// Generator produces randomized typing text.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed, for reproducible text.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Options control word decoration.
type Options struct {
	CapsPct  float64
	PunctPct float64
	PunctSet []rune
}

// Generate selects words uniformly and applies caps/punctuation rules.
func (g *Generator) Generate(words []string, count int, opts Options) []string {
	return g.GenerateWeighted(words, count, opts, nil, 0)
}

// GenerateWeighted selects words with a bias toward weak words. A word in
// weakSet is factor+1 times as likely as any other word.
func (g *Generator) GenerateWeighted(words []string, count int, opts Options, weakSet map[string]struct{}, factor float64) []string {
	if len(words) == 0 || count <= 0 {
		return nil
	}
	weights := make([]float64, len(words))
	total := 0.0
	for i, word := range words {
		w := 1.0
		if _, ok := weakSet[word]; ok && factor > 0 {
			w += factor
		}
		weights[i] = w
		total += w
	}

	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		word := words[g.pick(weights, total)]
		word = applyCaps(g.rnd, word, opts.CapsPct)
		word = applyPunct(g.rnd, word, opts.PunctPct, opts.PunctSet)
		result = append(result, word)
	}
	return result
}

// Passage builds sentence-shaped text of count words: each sentence starts
// capitalized and ends with a full stop.
func (g *Generator) Passage(words []string, count int, stop string) string {
	picked := g.Generate(words, count, Options{})
	if len(picked) == 0 {
		return ""
	}
	var b strings.Builder
	sentenceStart := true
	remaining := 0
	for i, word := range picked {
		if sentenceStart {
			word = capitalize(word)
			remaining = 6 + g.rnd.Intn(8)
			sentenceStart = false
		}
		remaining--
		last := i == len(picked)-1
		if remaining == 0 || last {
			word += stop
			sentenceStart = true
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	return b.String()
}

func (g *Generator) pick(weights []float64, total float64) int {
	r := g.rnd.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

func applyCaps(rnd *rand.Rand, word string, capsPct float64) string {
	if capsPct <= 0 || rnd.Float64() > capsPct {
		return word
	}
	return capitalize(word)
}

func capitalize(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func applyPunct(rnd *rand.Rand, word string, punctPct float64, punctSet []rune) string {
	if punctPct <= 0 || len(punctSet) == 0 || rnd.Float64() > punctPct {
		return word
	}
	return word + string(punctSet[rnd.Intn(len(punctSet))])
}
