package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/cpctprep/internal/config"
	"github.com/verte-zerg/cpctprep/internal/wordlist"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
	cmd.Flags().Bool("print", false, "print the default template instead of opening an editor")
	return cmd
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	if printOnly, _ := cmd.Flags().GetBool("print"); printOnly {
		_, err := fmt.Fprint(cmd.OutOrStdout(), defaultConfigTemplate())
		return err
	}
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	edit := exec.Command(parts[0], append(parts[1:], path)...)
	edit.Stdin = os.Stdin
	edit.Stdout = os.Stdout
	edit.Stderr = os.Stderr
	if err := edit.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# cpctprep configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# lang = %q               # Language code (en, hi)
# words = %d              # Words per generated text
# caps = %.2f             # Probability of capitalized first letter (0-1)
# punct = %.2f            # Punctuation probability per word (0-1)
# punct-set = %q          # Punctuation set
# focus-weak = false      # Bias practice toward weak words
# weak-top = %d           # Number of weak words to focus on
# weak-factor = %.1f      # Weight factor for weak words
# weak-window = %d        # Number of recent results to compute weak words
# duration = "10m"        # Time limit per text
# exam = "cpct-english"   # Exam profile
# candidate = "me"        # Name recorded with results

[scoring]
# rounding = "half-away-from-zero"   # or "half-even"

[server]
# addr = ":8080"
# backend = "sqlite"                 # or "mongo"
# mongo-uri = "mongodb://localhost:27017"
# mongo-db = "cpctprep"
# jwt-ttl = "12h"
# log-file = ""
# debug = false
# secure-cookie = false
# The JWT secret is read from CPCTPREP_JWT_SECRET or the .env file only.

# [exams.cpct-english]
# min-net-wpm = 30.0
# min-accuracy = 0.0
# duration = "10m"
`,
		defaultLang,
		defaultWords,
		defaultCaps,
		defaultPunct,
		defaultPunctSet,
		defaultWeakTop,
		defaultWeakFactor,
		defaultWeakWindow,
	)
}

func newLangsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "langs",
		Short: "List available word list languages",
		Args:  cobra.NoArgs,
		RunE:  runLangsCmd,
	}
}

func runLangsCmd(cmd *cobra.Command, _ []string) error {
	langs := map[string]string{}
	for _, lang := range wordlist.BuiltinLangs() {
		langs[lang] = "built-in"
	}

	wordlistDir := config.DefaultWordListDir()
	entries, err := os.ReadDir(wordlistDir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read wordlist directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		langs[strings.TrimSuffix(name, ".txt")] = filepath.Join(wordlistDir, name)
	}

	keys := make([]string, 0, len(langs))
	for lang := range langs {
		keys = append(keys, lang)
	}
	sort.Strings(keys)
	for _, lang := range keys {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", lang, langs[lang]); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
