package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/cpctprep/internal/config"
	"github.com/verte-zerg/cpctprep/internal/exam"
	"github.com/verte-zerg/cpctprep/internal/typing"
)

var (
	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	dimLabel  = color.New(color.Faint).SprintFunc()
	valueText = color.New(color.FgCyan).SprintFunc()
)

type scoreOutput struct {
	typing.Metrics
	CorrectWords   int           `json:"correctWords"`
	IncorrectWords int           `json:"incorrectWords"`
	MissingWords   int           `json:"missingWords"`
	Verdict        *exam.Verdict `json:"verdict,omitempty"`
}

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score typed text against a reference text",
		Args:  cobra.NoArgs,
		RunE:  runScoreCmd,
	}
	cmd.Flags().String("typed", "", "typed text")
	cmd.Flags().String("typed-file", "", "file with the typed text ('-' for stdin)")
	cmd.Flags().String("reference", "", "reference text")
	cmd.Flags().String("reference-file", "", "file with the reference text")
	cmd.Flags().Float64("minutes", 0, "elapsed time in minutes")
	cmd.Flags().String("exam", "", "evaluate against an exam profile")
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func runScoreCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	typed, err := textFromFlags(cmd, "typed", "typed-file")
	if err != nil {
		return err
	}
	reference, err := textFromFlags(cmd, "reference", "reference-file")
	if err != nil {
		return err
	}
	minutes, _ := flags.GetFloat64("minutes")
	examKey, _ := flags.GetString("exam")
	asJSON, _ := flags.GetBool("json")

	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	engine, err := fileCfg.Engine()
	if err != nil {
		return err
	}

	metrics, align := engine.ScoreMinutes(typed, reference, minutes)
	out := scoreOutput{
		Metrics:        metrics,
		CorrectWords:   align.Correct,
		IncorrectWords: align.Incorrect,
		MissingWords:   align.Missing,
	}
	if examKey != "" {
		registry, err := fileCfg.ExamRegistry()
		if err != nil {
			return err
		}
		profile, err := registry.Lookup(examKey)
		if err != nil {
			return err
		}
		verdict := profile.Evaluate(out.Metrics)
		out.Verdict = &verdict
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return printScore(cmd.OutOrStdout(), out)
}

func printScore(w io.Writer, out scoreOutput) error {
	lines := []string{
		fmt.Sprintf("%s %s", dimLabel("Gross WPM:"), valueText(fmt.Sprintf("%.2f", out.GrossWordsPerMinute))),
		fmt.Sprintf("%s %s", dimLabel("Net WPM:  "), valueText(fmt.Sprintf("%.2f", out.NetWordsPerMinute))),
		fmt.Sprintf("%s %s", dimLabel("Accuracy: "), valueText(fmt.Sprintf("%.2f%%", out.AccuracyPercent))),
		fmt.Sprintf("%s %d correct, %d incorrect, %d missing", dimLabel("Words:    "), out.CorrectWords, out.IncorrectWords, out.MissingWords),
	}
	if out.Verdict != nil {
		if out.Verdict.Passed {
			lines = append(lines, passLabel("PASS"))
		} else {
			lines = append(lines, failLabel("FAIL"))
			for _, reason := range out.Verdict.Reasons {
				lines = append(lines, "  - "+reason)
			}
		}
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func textFromFlags(cmd *cobra.Command, textFlag, fileFlag string) (string, error) {
	text, _ := cmd.Flags().GetString(textFlag)
	path, _ := cmd.Flags().GetString(fileFlag)
	if text != "" && path != "" {
		return "", fmt.Errorf("use only one of --%s and --%s", textFlag, fileFlag)
	}
	if path == "" {
		return text, nil
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
