package wordlist

import (
	"strings"
	"unicode"
)

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// FilterForLang returns a language-specific filter for word lists.
func FilterForLang(lang string) FilterFunc {
	switch strings.ToLower(lang) {
	case "en":
		return filterEnglishASCII
	case "hi":
		return filterDevanagari
	default:
		return func(w string) bool { return w != "" }
	}
}

func filterEnglishASCII(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		ch := word[i]
		if ch < 'a' || ch > 'z' {
			return false
		}
	}
	return true
}

// filterDevanagari keeps words written entirely in the Devanagari block,
// combining marks included.
func filterDevanagari(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.Is(unicode.Devanagari, r) {
			return false
		}
	}
	return true
}
