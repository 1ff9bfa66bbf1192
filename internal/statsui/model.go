// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/stats"
)

const (
	tabOverview = iota
	tabWords
	tabWordCurves
)

const plotHeight = 8

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	src stats.ResultSource
	cfg model.StatsConfig

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	words     table.Model

	width  int
	height int

	filterMode  bool
	filterInput textinput.Model
	filterError string
}

// NewModel constructs a stats UI model.
func NewModel(src stats.ResultSource, cfg model.StatsConfig) *Model {
	m := &Model{
		src:  src,
		cfg:  cfg,
		tabs: []string{"Overview", "Words", "Word Curves"},
	}
	m.filterInput = textinput.New()
	m.filterInput.Prompt = "last N results: "
	m.filterInput.CharLimit = 6
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.words = table.New(table.WithFocused(true))
	m.refreshReport()
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
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "tab", "right", "l":
			m.activeTab = (m.activeTab + 1) % len(m.tabs)
			return m, nil
		case "shift+tab", "left", "h":
			m.activeTab = (m.activeTab + len(m.tabs) - 1) % len(m.tabs)
			return m, nil
		case "/", "f":
			m.filterMode = true
			m.filterError = ""
			if m.cfg.Last > 0 {
				m.filterInput.SetValue(strconv.Itoa(m.cfg.Last))
			} else {
				m.filterInput.SetValue("")
			}
			return m, m.filterInput.Focus()
		case "+", "=":
			m.cfg.CurveWindow++
			m.refreshReport()
			return m, nil
		case "-":
			if m.cfg.CurveWindow > 1 {
				m.cfg.CurveWindow--
				m.refreshReport()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.activeTab == tabWords {
		m.words, cmd = m.words.Update(msg)
	} else {
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
	}
	return m, cmd
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(m.filterInput.Value()); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m *Model) applyFilter(raw string) error {
	raw = strings.TrimSpace(raw)
	last := 0
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("enter a non-negative number")
		}
		last = n
	}
	m.cfg.Last = last
	m.refreshReport()
	return nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	header := m.renderHeader()
	footer := m.renderFooter()
	body := ""
	if m.errMsg != "" {
		body = errorStyle.Render(m.errMsg)
	} else if m.activeTab == tabWords {
		body = m.words.View()
	} else {
		body = m.viewports[m.activeTab].View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderHeader() string {
	tabs := make([]string, len(m.tabs))
	for i, name := range m.tabs {
		if i == m.activeTab {
			tabs[i] = activeNavStyle.Render(name)
		} else {
			tabs[i] = inactiveNavStyle.Render(name)
		}
	}
	nav := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return lipgloss.JoinVertical(lipgloss.Left, nav, headerStyle.Render(m.filterSummary()))
}

func (m *Model) filterSummary() string {
	parts := []string{}
	if m.cfg.Lang != "" {
		parts = append(parts, "lang "+m.cfg.Lang)
	}
	if m.cfg.Exam != "" {
		parts = append(parts, "exam "+m.cfg.Exam)
	}
	if m.cfg.Candidate != "" {
		parts = append(parts, "candidate "+m.cfg.Candidate)
	}
	if m.cfg.Since != nil {
		parts = append(parts, "since "+m.cfg.Since.Format("2006-01-02"))
	}
	if m.cfg.Last > 0 {
		parts = append(parts, fmt.Sprintf("last %d", m.cfg.Last))
	} else {
		parts = append(parts, "all results")
	}
	parts = append(parts, fmt.Sprintf("window %d", m.cfg.CurveWindow))
	return strings.Join(parts, " · ")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		line := m.filterInput.View()
		if m.filterError != "" {
			line += "  " + errorStyle.Render(m.filterError)
		}
		return line
	}
	return headerStyle.Render("tab: switch · /: last N · +/-: window · q: quit")
}

const (
	headerHeight = 4
	footerHeight = 1
)

func (m *Model) updateLayout() {
	bodyHeight := m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.words.SetWidth(m.width)
	m.words.SetHeight(bodyHeight)
	m.renderTabContents()
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.src, m.cfg)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load stats: %v", err)
		return
	}
	m.errMsg = ""
	m.report = report
	cols, rows := buildWordTableData(report.WordAggsWindow)
	m.words.SetRows(nil)
	m.words.SetColumns(cols)
	m.words.SetRows(rows)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report.Results, m.cfg.CurveWindow, width))
	m.viewports[tabWordCurves].SetContent(renderWordCurves(m.report, m.cfg.CurveWindow, width))
}

func renderOverview(results []model.ResultAggregate, window, width int) string {
	if len(results) == 0 {
		return "No results found. Finish a practice session first."
	}
	s := stats.Summarize(results)
	cards := []string{
		metricCard("Results", strconv.Itoa(s.Results)),
		metricCard("Avg net WPM", fmt.Sprintf("%.2f", s.AvgNetWPM)),
		metricCard("Best net WPM", fmt.Sprintf("%.2f", s.BestNetWPM)),
		metricCard("Avg gross WPM", fmt.Sprintf("%.2f", s.AvgGrossWPM)),
		metricCard("Avg accuracy", fmt.Sprintf("%.2f%%", s.AvgAccuracy)),
	}
	if s.Attempts > 0 {
		cards = append(cards, metricCard("Pass rate", fmt.Sprintf("%.0f%% (%d/%d)", s.PassRate(), s.Passed, s.Attempts)))
	}
	var buf bytes.Buffer
	if err := stats.RenderCurvesWithSize(&buf, results, window, width, plotHeight, true); err != nil {
		return errorStyle.Render(err.Error())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n\n" + buf.String()
}

func metricCard(label, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func renderWordCurves(report stats.Report, window, width int) string {
	if len(report.CurveWords) == 0 {
		return "No word stats yet."
	}
	var buf bytes.Buffer
	if err := stats.RenderWordCurves(&buf, report.Results, report.PerResultWords, report.CurveWords, window, width, plotHeight, true); err != nil {
		return errorStyle.Render(err.Error())
	}
	return buf.String()
}

func buildWordTableData(aggs []model.WordAggregate) ([]table.Column, []table.Row) {
	widths := make([]int, len(stats.WordHeaders))
	for i, h := range stats.WordHeaders {
		widths[i] = lipgloss.Width(h)
	}
	data := stats.WordRows(aggs)
	rows := make([]table.Row, 0, len(data))
	for _, r := range data {
		for i, cell := range r {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
		rows = append(rows, table.Row(r))
	}
	cols := make([]table.Column, len(widths))
	for i, h := range stats.WordHeaders {
		cols[i] = table.Column{Title: h, Width: widths[i] + 2}
	}
	return cols, rows
}
