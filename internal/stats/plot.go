package stats

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	axisLabelWidth      = 7
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

// Eighth-height blocks, empty first.
var blocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

var colorPalette = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
}

// PlotSeries renders one bar chart per series.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	return PlotSeriesWithColor(w, title, series, width, height, false)
}

// PlotSeriesWithColor renders bar charts with optional forced color output.
// Each series is scaled to its own range.
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	var nonEmpty []Series
	for _, s := range series {
		if len(s.Values) > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}
	useColor := shouldUseColor(w, forceColor)

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for i, s := range nonEmpty {
		color := ""
		if useColor {
			color = colorPalette[i%len(colorPalette)]
		}
		for _, line := range barChart(s, width, height, color) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func barChart(s Series, width, height int, color string) []string {
	values := resampleSeries(s.Values, width)
	lo, hi := minMax(values)
	if hi-lo < 1e-9 {
		lo--
		hi++
	}
	lines := make([]string, 0, height+1)
	lines = append(lines, fmt.Sprintf("%s: min=%.2f max=%.2f last=%.2f", s.Name, lo, hi, s.Values[len(s.Values)-1]))

	// Fill level of each column in eighths of a row.
	levels := make([]int, len(values))
	for i, v := range values {
		levels[i] = int((v - lo) / (hi - lo) * float64(height*8))
		if levels[i] < 1 {
			levels[i] = 1
		}
	}

	for row := height - 1; row >= 0; row-- {
		label := ""
		switch row {
		case height - 1:
			label = fmt.Sprintf("%.2f", hi)
		case 0:
			label = fmt.Sprintf("%.2f", lo)
		}
		var b strings.Builder
		b.WriteString(fmt.Sprintf("%*s%s", axisLabelWidth, label, axisSeparator))
		if color != "" {
			b.WriteString(color)
		}
		for _, level := range levels {
			b.WriteRune(blocks[clamp(level-row*8, 0, 8)])
		}
		if color != "" {
			b.WriteString(colorReset)
		}
		lines = append(lines, b.String())
	}
	return lines
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - axisLabelWidth - runewidth.StringWidth(axisSeparator)
	if plotWidth < minPlotWidth {
		return minPlotWidth
	}
	return plotWidth
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// resampleSeries averages buckets when there are more values than columns
// and repeats values when there are fewer.
func resampleSeries(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	if len(values) <= width {
		out := make([]float64, 0, width)
		for i := 0; i < width; i++ {
			out = append(out, values[i*len(values)/width])
		}
		return out
	}
	out := make([]float64, width)
	for i := range out {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		if end <= start {
			end = start + 1
		}
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}
