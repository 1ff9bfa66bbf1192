// Package main provides the CLI entrypoint for cpctprep.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/cpctprep/internal/config"
	"github.com/verte-zerg/cpctprep/internal/exam"
	"github.com/verte-zerg/cpctprep/internal/generator"
	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/stats"
	"github.com/verte-zerg/cpctprep/internal/store"
	"github.com/verte-zerg/cpctprep/internal/tui"
	"github.com/verte-zerg/cpctprep/internal/wordlist"
)

const (
	defaultLang        = "en"
	defaultWords       = 60
	defaultCaps        = 0.0
	defaultPunct       = 0.0
	defaultWeakTop     = 10
	defaultWeakFactor  = 3.0
	defaultWeakWindow  = 20
	defaultCurveWindow = 10
)

const defaultPunctSet = ".,?;:'-"

var (
	practiceLang       string
	practiceWords      int
	practiceCaps       float64
	practicePunct      float64
	practicePunctSet   string
	practiceFocusWeak  bool
	practiceWeakTop    int
	practiceWeakFactor float64
	practiceWeakWindow int
	practiceDuration   time.Duration
	practiceExam       string
	practicePassage    string
	practiceCandidate  string

	dbPath     string
	configPath string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cpctprep",
		Short:         "CPCT typing test practice and scoring",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")

	rootCmd.Flags().StringVar(&practiceLang, "lang", defaultLang, "language code (en, hi)")
	rootCmd.Flags().IntVar(&practiceWords, "words", defaultWords, "words per generated text")
	rootCmd.Flags().Float64Var(&practiceCaps, "caps", defaultCaps, "probability of capitalized first letter (0-1)")
	rootCmd.Flags().Float64Var(&practicePunct, "punct", defaultPunct, "punctuation probability per word (0-1)")
	rootCmd.Flags().StringVar(&practicePunctSet, "punct-set", defaultPunctSet, "punctuation set")
	rootCmd.Flags().BoolVar(&practiceFocusWeak, "focus-weak", false, "bias practice toward weak words")
	rootCmd.Flags().IntVar(&practiceWeakTop, "weak-top", defaultWeakTop, "number of weak words to focus on")
	rootCmd.Flags().Float64Var(&practiceWeakFactor, "weak-factor", defaultWeakFactor, "weight factor for weak words")
	rootCmd.Flags().IntVar(&practiceWeakWindow, "weak-window", defaultWeakWindow, "number of recent results to compute weak words")
	rootCmd.Flags().DurationVar(&practiceDuration, "duration", 0, "time limit per text, e.g. 10m (0 = untimed)")
	rootCmd.Flags().StringVar(&practiceExam, "exam", "", "exam profile key, e.g. cpct-english")
	rootCmd.Flags().StringVar(&practicePassage, "passage", "", "stored passage ID to type")
	rootCmd.Flags().StringVar(&practiceCandidate, "candidate", defaultCandidate(), "name recorded with results")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLangsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newPassageCmd())
	rootCmd.AddCommand(newAdminCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyPracticeConfig(cmd, fileCfg.Practice); err != nil {
		return err
	}
	engine, err := fileCfg.Engine()
	if err != nil {
		return err
	}
	registry, err := fileCfg.ExamRegistry()
	if err != nil {
		return err
	}

	var profile *exam.Profile
	if practiceExam != "" {
		p, err := registry.Lookup(practiceExam)
		if err != nil {
			return err
		}
		profile = &p
		if !cmd.Flags().Changed("lang") && fileCfg.Practice.Lang == nil && p.Lang != "" {
			practiceLang = p.Lang
		}
		if !cmd.Flags().Changed("duration") && fileCfg.Practice.Duration == nil {
			practiceDuration = p.Duration
		}
	}

	cfg := model.Config{
		Lang:       practiceLang,
		Words:      practiceWords,
		CapsPct:    practiceCaps,
		PunctPct:   practicePunct,
		PunctSet:   practicePunctSet,
		FocusWeak:  practiceFocusWeak,
		WeakTop:    practiceWeakTop,
		WeakFactor: practiceWeakFactor,
		WeakWindow: practiceWeakWindow,
		Duration:   practiceDuration,
		Exam:       practiceExam,
		PassageID:  practicePassage,
		Candidate:  practiceCandidate,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	wordsList, err := wordlist.Load(cfg.Lang, config.DefaultWordListPath(cfg.Lang))
	if err != nil {
		return wordListLoadError(cfg.Lang, err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	picker, err := passagePicker(context.Background(), st, cfg)
	if err != nil {
		return err
	}

	weakSet := map[string]struct{}{}
	if cfg.FocusWeak && picker == nil {
		aggs, err := st.GetWeakWords(context.Background(), cfg.WeakWindow, cfg.Lang)
		if err != nil {
			logErrf("failed to load weak words: %v\n", err)
		} else {
			weakSet = stats.SelectWeakWords(aggs, cfg.WeakTop)
			if len(weakSet) == 0 {
				logErrln("no stats available for weak-word focus yet; using normal generator")
			}
		}
	}

	m := tui.NewModel(tui.Options{
		Config:   cfg,
		Store:    st,
		Engine:   engine,
		Exam:     profile,
		Gen:      generator.New(),
		Words:    wordsList,
		PunctSet: []rune(cfg.PunctSet),
		WeakSet:  weakSet,
		Passages: picker,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// passagePicker returns nil when practice should use generated text.
func passagePicker(ctx context.Context, st *store.Store, cfg model.Config) (tui.PassagePicker, error) {
	if cfg.PassageID != "" {
		if _, err := st.GetPassage(ctx, cfg.PassageID); err != nil {
			return nil, fmt.Errorf("failed to load passage %s: %w", cfg.PassageID, err)
		}
		return func(ctx context.Context) (model.Passage, error) {
			return st.GetPassage(ctx, cfg.PassageID)
		}, nil
	}
	if cfg.Exam == "" {
		return nil, nil
	}
	filter := model.PassageFilter{Exam: cfg.Exam}
	if _, err := st.RandomPassage(ctx, filter); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logErrf("no stored passages for %s; practicing on generated text\n", cfg.Exam)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load passages: %w", err)
	}
	return func(ctx context.Context) (model.Passage, error) {
		return st.RandomPassage(ctx, filter)
	}, nil
}

func applyPracticeConfig(cmd *cobra.Command, p config.PracticeConfig) error {
	applyStringConfig(cmd, "lang", &practiceLang, p.Lang)
	applyIntConfig(cmd, "words", &practiceWords, p.Words)
	applyFloatConfig(cmd, "caps", &practiceCaps, p.CapsPct)
	applyFloatConfig(cmd, "punct", &practicePunct, p.PunctPct)
	applyStringConfig(cmd, "punct-set", &practicePunctSet, p.PunctSet)
	applyBoolConfig(cmd, "focus-weak", &practiceFocusWeak, p.FocusWeak)
	applyIntConfig(cmd, "weak-top", &practiceWeakTop, p.WeakTop)
	applyFloatConfig(cmd, "weak-factor", &practiceWeakFactor, p.WeakFactor)
	applyIntConfig(cmd, "weak-window", &practiceWeakWindow, p.WeakWindow)
	applyStringConfig(cmd, "exam", &practiceExam, p.Exam)
	applyStringConfig(cmd, "candidate", &practiceCandidate, p.Candidate)
	if p.Duration != nil && !cmd.Flags().Changed("duration") {
		d, err := time.ParseDuration(*p.Duration)
		if err != nil {
			return fmt.Errorf("invalid [practice] duration: %w", err)
		}
		practiceDuration = d
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func validateConfig(cfg model.Config) error {
	if cfg.Words <= 0 {
		return fmt.Errorf("--words must be > 0")
	}
	if cfg.CapsPct < 0 || cfg.CapsPct > 1 {
		return fmt.Errorf("--caps must be between 0 and 1")
	}
	if cfg.PunctPct < 0 || cfg.PunctPct > 1 {
		return fmt.Errorf("--punct must be between 0 and 1")
	}
	if cfg.PunctPct > 0 && cfg.PunctSet == "" {
		return fmt.Errorf("--punct-set must not be empty")
	}
	if cfg.WeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if cfg.WeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	if cfg.Duration < 0 {
		return fmt.Errorf("--duration must be >= 0")
	}
	return nil
}

func wordListLoadError(lang string, err error) error {
	return fmt.Errorf("failed to load word list for %q: %w\nRun: cpctprep langs", lang, err)
}

func defaultCandidate() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "anonymous"
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
