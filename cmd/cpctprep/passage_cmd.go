package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"

	"github.com/verte-zerg/cpctprep/internal/config"
	"github.com/verte-zerg/cpctprep/internal/exam"
	"github.com/verte-zerg/cpctprep/internal/generator"
	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/store"
	"github.com/verte-zerg/cpctprep/internal/wordlist"
)

//go:embed passages.schema.json
var passageSchema []byte

type passageFile struct {
	Passages []model.Passage `json:"passages"`
}

func newPassageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passage",
		Short: "Manage stored passages",
	}
	cmd.AddCommand(newPassageAddCmd())
	cmd.AddCommand(newPassageListCmd())
	cmd.AddCommand(newPassageImportCmd())
	cmd.AddCommand(newPassageGenerateCmd())
	cmd.AddCommand(newPassageDeleteCmd())
	return cmd
}

func withStore(fn func(ctx context.Context, st *store.Store) error) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	return fn(context.Background(), st)
}

// checkPassageExams fails on exam keys the configured registry does not know,
// so stored passages never point at a missing profile.
func checkPassageExams(keys ...string) error {
	var registry *exam.Registry
	for _, key := range keys {
		if key == "" {
			continue
		}
		if registry == nil {
			fileCfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if registry, err = fileCfg.ExamRegistry(); err != nil {
				return err
			}
		}
		if _, err := registry.Lookup(key); err != nil {
			return err
		}
	}
	return nil
}

func newPassageAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a passage from text or a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			title, _ := cmd.Flags().GetString("title")
			lang, _ := cmd.Flags().GetString("lang")
			examKey, _ := cmd.Flags().GetString("exam")
			text, err := textFromFlags(cmd, "text", "file")
			if err != nil {
				return err
			}
			if strings.TrimSpace(title) == "" || strings.TrimSpace(text) == "" {
				return fmt.Errorf("--title and --text (or --file) are required")
			}
			if err := checkPassageExams(examKey); err != nil {
				return err
			}
			return withStore(func(ctx context.Context, st *store.Store) error {
				p, err := st.CreatePassage(ctx, model.Passage{Title: title, Lang: lang, Exam: examKey, Text: text})
				if err != nil {
					return fmt.Errorf("failed to add passage: %w", err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d words\n", p.ID, p.WordCount)
				return err
			})
		},
	}
	cmd.Flags().String("title", "", "passage title")
	cmd.Flags().String("lang", defaultLang, "language code")
	cmd.Flags().String("exam", "", "exam profile key")
	cmd.Flags().String("text", "", "passage text")
	cmd.Flags().String("file", "", "file with the passage text ('-' for stdin)")
	return cmd
}

func newPassageListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored passages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lang, _ := cmd.Flags().GetString("lang")
			examKey, _ := cmd.Flags().GetString("exam")
			return withStore(func(ctx context.Context, st *store.Store) error {
				passages, err := st.ListPassages(ctx, model.PassageFilter{Lang: lang, Exam: examKey})
				if err != nil {
					return fmt.Errorf("failed to list passages: %w", err)
				}
				if len(passages) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "No passages found.")
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), renderPassageTable(passages))
				return err
			})
		},
	}
	cmd.Flags().String("lang", "", "language filter")
	cmd.Flags().String("exam", "", "exam filter")
	return cmd
}

func renderPassageTable(passages []model.Passage) string {
	rows := make([][]string, len(passages))
	for i, p := range passages {
		rows[i] = []string{p.ID, p.Title, p.Lang, p.Exam, strconv.Itoa(p.WordCount)}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Title", "Lang", "Exam", "Words").
		Rows(rows...).
		String()
}

func newPassageImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import passages from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			passages, err := parsePassageFile(data)
			if err != nil {
				return err
			}
			keys := make([]string, len(passages))
			for i, p := range passages {
				keys[i] = p.Exam
			}
			if err := checkPassageExams(keys...); err != nil {
				return err
			}
			return withStore(func(ctx context.Context, st *store.Store) error {
				for _, p := range passages {
					if _, err := st.CreatePassage(ctx, p); err != nil {
						return fmt.Errorf("failed to import %q: %w", p.Title, err)
					}
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Imported %d passages.\n", len(passages))
				return err
			})
		},
	}
}

// parsePassageFile validates data against the embedded schema before decoding.
func parsePassageFile(data []byte) ([]model.Passage, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(passageSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return nil, fmt.Errorf("invalid passage file: %s", strings.Join(errs, ", "))
	}
	var file passageFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode passage file: %w", err)
	}
	return file.Passages, nil
}

func newPassageGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate passages from the word list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lang, _ := cmd.Flags().GetString("lang")
			examKey, _ := cmd.Flags().GetString("exam")
			words, _ := cmd.Flags().GetInt("words")
			count, _ := cmd.Flags().GetInt("count")
			if words <= 0 || count <= 0 {
				return fmt.Errorf("--words and --count must be > 0")
			}
			if err := checkPassageExams(examKey); err != nil {
				return err
			}
			list, err := wordlist.Load(lang, config.DefaultWordListPath(lang))
			if err != nil {
				return wordListLoadError(lang, err)
			}
			gen := generator.New()
			return withStore(func(ctx context.Context, st *store.Store) error {
				for i := 0; i < count; i++ {
					p, err := st.CreatePassage(ctx, model.Passage{
						Title: fmt.Sprintf("Generated %s #%d", lang, i+1),
						Lang:  lang,
						Exam:  examKey,
						Text:  gen.Passage(list, words, sentenceStop(lang)),
					})
					if err != nil {
						return fmt.Errorf("failed to add passage: %w", err)
					}
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), p.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().String("lang", defaultLang, "language code")
	cmd.Flags().String("exam", "", "exam profile key")
	cmd.Flags().Int("words", 300, "words per passage")
	cmd.Flags().Int("count", 1, "number of passages")
	return cmd
}

func sentenceStop(lang string) string {
	if lang == "hi" {
		return "।"
	}
	return "."
}

func newPassageDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a passage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.Store) error {
				if err := st.DeletePassage(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to delete passage: %w", err)
				}
				return nil
			})
		},
	}
}
