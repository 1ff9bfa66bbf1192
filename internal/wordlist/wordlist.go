// Package wordlist loads word lists from files or the built-in defaults.
package wordlist

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

//go:embed data/*.txt
var builtin embed.FS

// LoadWords reads one word per line from the provided file path.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()
	return readWords(file)
}

// Builtin returns the embedded word list for lang.
func Builtin(lang string) ([]string, error) {
	file, err := builtin.Open("data/" + strings.ToLower(lang) + ".txt")
	if err != nil {
		return nil, fmt.Errorf("no built-in word list for %q", lang)
	}
	defer func() {
		_ = file.Close()
	}()
	return readWords(file)
}

// BuiltinLangs lists languages with an embedded word list.
func BuiltinLangs() []string {
	entries, err := builtin.ReadDir("data")
	if err != nil {
		return nil
	}
	langs := make([]string, 0, len(entries))
	for _, e := range entries {
		langs = append(langs, strings.TrimSuffix(e.Name(), ".txt"))
	}
	sort.Strings(langs)
	return langs
}

// Load reads path when it exists and falls back to the built-in list for
// lang otherwise. The result is filtered for lang and deduplicated.
func Load(lang, path string) ([]string, error) {
	var (
		words []string
		err   error
	)
	if path != "" {
		words, err = LoadWords(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read word list %s: %w", path, err)
		}
	}
	if words == nil {
		words, err = Builtin(lang)
		if err != nil {
			return nil, err
		}
	}
	filter := FilterForLang(lang)
	seen := make(map[string]struct{}, len(words))
	out := words[:0]
	for _, w := range words {
		if _, dup := seen[w]; dup || !filter(w) {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("word list for %q has no usable words", lang)
	}
	return out, nil
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list is empty")
	}
	return words, nil
}
