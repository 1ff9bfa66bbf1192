package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildStyledRunes colors the target text. Words the typist has moved past
// are colored whole, matching word-level scoring; the word under the cursor
// is colored rune by rune.
func buildStyledRunes(targetRunes, inputRunes []rune, cursorIndex int) []styledRune {
	words := findWords(targetRunes)
	currentWord := wordForCursor(words, cursorIndex)

	wordOK := make(map[int]bool, len(words))
	wordOf := make([]int, len(targetRunes))
	for i := range wordOf {
		wordOf[i] = -1
	}
	for wi, w := range words {
		for i := w.start; i < w.end; i++ {
			wordOf[i] = wi
		}
		if !wordFinished(w, targetRunes, inputRunes) {
			continue
		}
		wordOK[wi] = string(inputRunes[w.start:w.end]) == string(targetRunes[w.start:w.end])
	}

	out := make([]styledRune, 0, len(targetRunes))
	for i, target := range targetRunes {
		displayed := target
		style := pendingStyle
		ok, finished := false, false
		if wi := wordOf[i]; wi >= 0 {
			ok, finished = wordOK[wi]
		}
		switch {
		case i < len(inputRunes) && target == ' ':
			if inputRunes[i] != ' ' {
				displayed = '•'
				style = incorrectStyle
			}
		case finished && ok:
			style = correctStyle
		case finished:
			style = incorrectStyle
		case i < len(inputRunes) && inputRunes[i] == target:
			style = correctStyle
		case i < len(inputRunes):
			style = incorrectStyle
		case target != ' ' && currentWord != nil && i >= currentWord.start && i < currentWord.end:
			style = currentWordStyle
		}
		if i == cursorIndex && i >= len(inputRunes) {
			style = style.Underline(true)
		}
		out = append(out, styledRune{
			s:       style.Render(string(displayed)),
			width:   runewidth.RuneWidth(displayed),
			isSpace: target == ' ',
		})
	}
	return out
}

// wordFinished reports whether input has moved past the word.
func wordFinished(w wordRange, targetRunes, inputRunes []rune) bool {
	if w.end == len(targetRunes) {
		return len(inputRunes) == len(targetRunes)
	}
	return len(inputRunes) > w.end
}

type wordRange struct {
	start int
	end   int
}

func findWords(targetRunes []rune) []wordRange {
	words := []wordRange{}
	start := -1
	for i, r := range targetRunes {
		if r == ' ' {
			if start != -1 {
				words = append(words, wordRange{start: start, end: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: len(targetRunes)})
	}
	return words
}

func wordForCursor(words []wordRange, cursorIndex int) *wordRange {
	if len(words) == 0 {
		return nil
	}
	if cursorIndex < 0 {
		return &words[0]
	}
	wordIdx := -1
	for i, w := range words {
		if cursorIndex >= w.start && cursorIndex < w.end {
			wordIdx = i
			break
		}
		if cursorIndex < w.start {
			wordIdx = i
			break
		}
	}
	if wordIdx == -1 {
		return &words[len(words)-1]
	}
	return &words[wordIdx]
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks lines at spaces so no line exceeds width cells.
// The breaking space is dropped; words wider than a line are split.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var lines []string
	var line []styledRune
	lineWidth := 0
	flush := func() {
		lines = append(lines, renderStyledRunes(line))
		line = nil
		lineWidth = 0
	}

	for _, chunk := range splitChunks(runes) {
		chunkWidth := 0
		for _, item := range chunk {
			chunkWidth += item.width
		}
		if lineWidth > 0 && lineWidth+chunkWidth > width {
			// Drop the trailing space that would start the next line.
			if n := len(line); n > 0 && line[n-1].isSpace {
				line = line[:n-1]
			}
			flush()
		}
		for _, item := range chunk {
			if lineWidth+item.width > width && lineWidth > 0 {
				flush()
				if item.isSpace {
					continue
				}
			}
			line = append(line, item)
			lineWidth += item.width
		}
	}
	lines = append(lines, renderStyledRunes(line))
	return strings.Join(lines, "\n")
}

// splitChunks groups runes into words, each carrying its trailing space.
func splitChunks(runes []styledRune) [][]styledRune {
	var chunks [][]styledRune
	start := 0
	for i, item := range runes {
		if item.isSpace {
			chunks = append(chunks, runes[start:i+1])
			start = i + 1
		}
	}
	if start < len(runes) {
		chunks = append(chunks, runes[start:])
	}
	return chunks
}
