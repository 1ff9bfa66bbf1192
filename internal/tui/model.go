// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/timer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/cpctprep/internal/exam"
	"github.com/verte-zerg/cpctprep/internal/generator"
	"github.com/verte-zerg/cpctprep/internal/logging"
	"github.com/verte-zerg/cpctprep/internal/model"
	statsPkg "github.com/verte-zerg/cpctprep/internal/stats"
	"github.com/verte-zerg/cpctprep/internal/typing"
)

// Recorder persists practice results.
type Recorder interface {
	InsertResult(ctx context.Context, r model.Result, words []model.WordStats) (string, error)
	ListResults(ctx context.Context, cfg model.StatsConfig) ([]model.ResultAggregate, error)
	GetWeakWords(ctx context.Context, window int, lang string) ([]model.WordAggregate, error)
}

// PassagePicker returns the next stored passage to type.
type PassagePicker func(ctx context.Context) (model.Passage, error)

// Options wires the model's collaborators.
type Options struct {
	Config   model.Config
	Store    Recorder
	Engine   typing.Engine
	Exam     *exam.Profile
	Gen      *generator.Generator
	Words    []string
	PunctSet []rune
	WeakSet  map[string]struct{}
	// Passages, when set, replaces generated text.
	Passages PassagePicker
}

type phase int

const (
	phaseTyping phase = iota
	phaseDone
)

// Model implements the Bubble Tea typing UI.
type Model struct {
	opts              Options
	weakNoticePrinted bool

	width  int
	height int

	phase       phase
	passageID   string
	targetRunes []rune
	inputRunes  []rune
	loadErr     error

	started   bool
	startedAt time.Time
	timer     timer.Model

	last    typing.Metrics
	missing int
	verdict *exam.Verdict
	hasLast bool

	allCount  int
	allNetSum float64
	allAccSum float64
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Bold(true)
	passStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	failStyle        = incorrectStyle.Bold(true)
)

// NewModel constructs a typing TUI model.
func NewModel(opts Options) *Model {
	if opts.WeakSet == nil {
		opts.WeakSet = map[string]struct{}{}
	}
	m := &Model{opts: opts}
	m.resetSession()
	m.loadFooterStats()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case timer.TickMsg, timer.StartStopMsg:
		var cmd tea.Cmd
		m.timer, cmd = m.timer.Update(msg)
		return m, cmd
	case timer.TimeoutMsg:
		if msg.ID == m.timer.ID() && m.phase == phaseTyping && m.started {
			m.finishSession(time.Now())
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.phase == phaseDone {
			return m.updateDone(msg)
		}
		return m.updateTyping(msg)
	default:
		return m, nil
	}
}

func (m *Model) updateDone(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEnter:
		m.resetSession()
	case msg.Type == tea.KeyEsc, msg.Type == tea.KeyRunes && string(msg.Runes) == "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		if m.started {
			m.finishSession(time.Now())
		}
		return m, nil
	case tea.KeyBackspace, tea.KeyDelete:
		m.handleBackspace()
		return m, nil
	case tea.KeySpace:
		return m, m.handleRunes([]rune{' '}, time.Now())
	case tea.KeyRunes:
		return m, m.handleRunes(msg.Runes, time.Now())
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.loadErr != nil {
		return fmt.Sprintf("failed to load text: %v\n\nesc to quit", m.loadErr)
	}
	var content string
	contentWidth := m.contentWidth()
	if m.phase == phaseDone {
		content = m.renderResult()
	} else {
		if len(m.targetRunes) == 0 {
			return ""
		}
		cursorIndex := -1
		if len(m.inputRunes) < len(m.targetRunes) {
			cursorIndex = len(m.inputRunes)
		}
		styled := buildStyledRunes(m.targetRunes, m.inputRunes, cursorIndex)
		if m.width == 0 || m.height == 0 {
			return renderStyledRunes(styled)
		}
		content = lipgloss.NewStyle().Width(contentWidth).Render(wrapStyledRunes(styled, contentWidth))
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	w := int(float64(m.width) * 0.70)
	if w < 1 {
		w = 1
	}
	return w
}

func (m *Model) handleBackspace() {
	if len(m.inputRunes) == 0 {
		return
	}
	m.inputRunes = m.inputRunes[:len(m.inputRunes)-1]
}

func (m *Model) handleRunes(runes []rune, now time.Time) tea.Cmd {
	var cmd tea.Cmd
	for _, r := range runes {
		if len(m.inputRunes) >= len(m.targetRunes) {
			break
		}
		if !m.started {
			m.started = true
			m.startedAt = now
			if m.opts.Config.Duration > 0 {
				cmd = m.timer.Init()
			}
		}
		m.inputRunes = append(m.inputRunes, r)
		if len(m.inputRunes) == len(m.targetRunes) {
			m.finishSession(now)
			break
		}
	}
	return cmd
}

func (m *Model) loadFooterStats() {
	results, err := m.opts.Store.ListResults(context.Background(), model.StatsConfig{Lang: m.opts.Config.Lang})
	if err != nil {
		logging.LogError("failed to load result stats: %v", err)
		return
	}
	if len(results) == 0 {
		return
	}
	last := results[len(results)-1]
	m.last = typing.Metrics{
		GrossWordsPerMinute: last.GrossWPM,
		NetWordsPerMinute:   last.NetWPM,
		AccuracyPercent:     last.Accuracy,
	}
	m.hasLast = true
	s := statsPkg.Summarize(results)
	m.allCount = s.Results
	m.allNetSum = s.AvgNetWPM * float64(s.Results)
	m.allAccSum = s.AvgAccuracy * float64(s.Results)
}

func (m *Model) renderFooter() string {
	var segments []string
	if m.phase == phaseTyping && len(m.targetRunes) > 0 {
		progress := len(m.inputRunes) * 100 / len(m.targetRunes)
		segments = append(segments, fmt.Sprintf("Progress %d%%", progress))
		if m.opts.Config.Duration > 0 {
			segments = append(segments, "Time "+m.timer.View())
		}
	}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.2f WPM · %.2f%%", m.last.NetWordsPerMinute, m.last.AccuracyPercent))
	}
	if m.allCount > 0 {
		n := float64(m.allCount)
		segments = append(segments, fmt.Sprintf("All-time %.2f WPM · %.2f%%", m.allNetSum/n, m.allAccSum/n))
	}
	if len(segments) == 0 {
		return ""
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) renderResult() string {
	lines := []string{
		titleStyle.Render("Result"),
		"",
		fmt.Sprintf("Net speed    %8.2f WPM", m.last.NetWordsPerMinute),
		fmt.Sprintf("Gross speed  %8.2f WPM", m.last.GrossWordsPerMinute),
		fmt.Sprintf("Accuracy     %8.2f %%", m.last.AccuracyPercent),
		fmt.Sprintf("Words        %d correct · %d incorrect · %d not typed", m.last.CorrectWordCount(), m.last.IncorrectWordCount(), m.missing),
	}
	if m.verdict != nil && m.opts.Exam != nil {
		lines = append(lines, "")
		if m.verdict.Passed {
			lines = append(lines, passStyle.Render("PASS")+" "+m.opts.Exam.Name)
		} else {
			lines = append(lines, failStyle.Render("FAIL")+" "+m.opts.Exam.Name)
			lines = append(lines, m.verdict.Reasons...)
		}
	}
	lines = append(lines, "", footerStyle.Render("enter: next text · esc: quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) resetSession() {
	m.phase = phaseTyping
	m.inputRunes = nil
	m.started = false
	m.startedAt = time.Time{}
	m.timer = timer.NewWithInterval(m.opts.Config.Duration, time.Second)

	text, passageID, err := m.nextText()
	m.loadErr = err
	m.passageID = passageID
	m.targetRunes = []rune(text)
}

func (m *Model) nextText() (string, string, error) {
	if m.opts.Passages != nil {
		p, err := m.opts.Passages(context.Background())
		if err != nil {
			return "", "", err
		}
		// Typing compares rune by rune, so line breaks become spaces.
		return strings.Join(typing.Tokenize(p.Text), " "), p.ID, nil
	}
	genOpts := generator.Options{
		CapsPct:  m.opts.Config.CapsPct,
		PunctPct: m.opts.Config.PunctPct,
		PunctSet: m.opts.PunctSet,
	}
	var words []string
	if m.opts.Config.FocusWeak && len(m.opts.WeakSet) > 0 {
		words = m.opts.Gen.GenerateWeighted(m.opts.Words, m.opts.Config.Words, genOpts, m.opts.WeakSet, m.opts.Config.WeakFactor)
	} else {
		words = m.opts.Gen.Generate(m.opts.Words, m.opts.Config.Words, genOpts)
	}
	return strings.Join(words, " "), "", nil
}

func (m *Model) finishSession(endedAt time.Time) {
	if !m.started || m.phase == phaseDone {
		return
	}
	elapsed := endedAt.Sub(m.startedAt)
	if d := m.opts.Config.Duration; d > 0 && elapsed > d {
		elapsed = d
	}
	sub := typing.Submission{
		Typed:     string(m.inputRunes),
		Reference: string(m.targetRunes),
		Elapsed:   elapsed,
	}
	metrics, align := m.opts.Engine.Score(sub)

	cfg := m.opts.Config
	result := model.Result{
		PassageID:      m.passageID,
		Candidate:      cfg.Candidate,
		Exam:           cfg.Exam,
		Lang:           cfg.Lang,
		Source:         model.SourcePractice,
		StartedAt:      m.startedAt,
		EndedAt:        m.startedAt.Add(elapsed),
		DurationMs:     elapsed.Milliseconds(),
		TypedText:      sub.Typed,
		ReferenceText:  sub.Reference,
		CorrectWords:   align.Correct,
		IncorrectWords: align.Incorrect,
		MissingWords:   align.Missing,
		GrossWPM:       metrics.GrossWordsPerMinute,
		NetWPM:         metrics.NetWordsPerMinute,
		Accuracy:       metrics.AccuracyPercent,
	}
	m.verdict = nil
	if m.opts.Exam != nil {
		v := m.opts.Exam.Evaluate(metrics)
		m.verdict = &v
		result.Passed = v.Passed
	}

	if _, err := m.opts.Store.InsertResult(context.Background(), result, statsPkg.WordStatsFromAlignment(align)); err != nil {
		logging.LogError("failed to save result: %v", err)
	}

	m.phase = phaseDone
	m.last = metrics
	m.missing = align.Missing
	m.hasLast = true
	m.allCount++
	m.allNetSum += metrics.NetWordsPerMinute
	m.allAccSum += metrics.AccuracyPercent

	if cfg.FocusWeak {
		m.refreshWeakSet()
	}
}

func (m *Model) refreshWeakSet() {
	aggs, err := m.opts.Store.GetWeakWords(context.Background(), m.opts.Config.WeakWindow, m.opts.Config.Lang)
	if err != nil {
		logging.LogError("failed to load weak words: %v", err)
		return
	}
	m.opts.WeakSet = statsPkg.SelectWeakWords(aggs, m.opts.Config.WeakTop)
	if len(m.opts.WeakSet) == 0 && !m.weakNoticePrinted {
		logging.LogEvent("no weak words yet; using normal generator")
		m.weakNoticePrinted = true
	}
}
