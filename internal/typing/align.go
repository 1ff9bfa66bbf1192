package typing

import "strings"

// WordOutcome records how one position of the reference text was typed.
type WordOutcome struct {
	Index     int    `json:"index"`
	Typed     string `json:"typed,omitempty"`
	Reference string `json:"reference,omitempty"`
	Correct   bool   `json:"correct"`
}

// Alignment is the result of comparing typed and reference words by position.
type Alignment struct {
	Correct   int
	Incorrect int
	// Missing counts reference words past the end of the typed text.
	// They are reported but never counted as errors.
	Missing int
	Words   []WordOutcome
}

// Tokenize splits text on runs of whitespace, dropping empty tokens.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Align compares typed and reference words at matching indices.
// Words are equal only when byte-for-byte identical. Extra typed words are
// errors; reference words the typist never reached are only counted as missing.
func Align(typed, reference []string) Alignment {
	n := len(typed)
	if len(reference) > n {
		n = len(reference)
	}
	a := Alignment{Words: make([]WordOutcome, 0, n)}
	for i := 0; i < n; i++ {
		hasTyped := i < len(typed)
		hasRef := i < len(reference)
		switch {
		case hasTyped && hasRef:
			ok := typed[i] == reference[i]
			if ok {
				a.Correct++
			} else {
				a.Incorrect++
			}
			a.Words = append(a.Words, WordOutcome{Index: i, Typed: typed[i], Reference: reference[i], Correct: ok})
		case hasTyped:
			a.Incorrect++
			a.Words = append(a.Words, WordOutcome{Index: i, Typed: typed[i]})
		default:
			a.Missing++
		}
	}
	return a
}
