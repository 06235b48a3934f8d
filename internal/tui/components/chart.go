package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/feaso/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// span is the value range a chart is drawn over. It always includes zero.
type span struct {
	lo, hi float64
}

func spanOf(values []float64) span {
	var s span
	for _, v := range values {
		s.lo = min(s.lo, v)
		s.hi = max(s.hi, v)
	}
	return s
}

// level maps v onto 0..steps-1.
func (s span) level(v float64, steps int) int {
	w := s.hi - s.lo
	if w == 0 {
		return 0
	}
	idx := int((v - s.lo) / w * float64(steps-1))
	return max(0, min(idx, steps-1))
}

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a unicode sparkline from values, scaled between the
// lowest value (or zero) and the highest.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active
	s := spanOf(values)

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		buf.WriteRune(sparkBlocks[s.level(v, len(sparkBlocks))])
	}
	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// BarChart renders per-period amounts as bars around a zero axis: inflows
// rise above it in color, outflows hang below it in the theme's red. Both
// halves share one tick step, so bar lengths compare across the axis.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active
	s := spanOf(values)
	up, down := s.hi, -s.lo
	if up == 0 && down == 0 {
		up = 1
	}

	// One tick step for both halves, doubled until the ticks fit.
	step := chartTickStep(up + down)
	maxIntervals := max(2, height/2)
	above, below := 0, 0
	for {
		above = int(math.Ceil(up / step))
		below = int(math.Ceil(down / step))
		if above+below <= maxIntervals {
			break
		}
		step *= 2
	}
	rowsPerTick := max(1, height/max(1, above+below))
	aboveH, belowH := above*rowsPerTick, below*rowsPerTick
	top, bottom := float64(above)*step, float64(below)*step

	labelW := max(4, len(formatChartLabel(max(top, bottom)))+2)
	chartW := max(5, width-labelW-1)

	values, labels = fitBars(values, labels, chartW)
	n := len(values)
	gap := 1
	if n <= 1 {
		gap = 0
	}
	barW := chartW
	if n > 1 {
		barW = min(6, (chartW-(n-1))/n)
	}
	barW = max(2, min(barW, 6))
	axisLen := n*barW + max(0, n-1)*gap

	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)
	upStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	downStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)

	writeRow := func(b *strings.Builder, label string, cell func(v float64) (string, lipgloss.Style)) {
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", labelW, label)))
		b.WriteString(axisStyle.Render("│"))
		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(blank.Render(strings.Repeat(" ", gap)))
			}
			glyph, st := cell(v)
			b.WriteString(st.Render(strings.Repeat(glyph, barW)))
		}
		b.WriteString("\n")
	}

	var b strings.Builder
	for row := aboveH; row >= 1; row-- {
		hi := top * float64(row) / float64(aboveH)
		lo := top * float64(row-1) / float64(aboveH)
		label := ""
		if row%rowsPerTick == 0 {
			label = formatChartLabel(step * float64(row/rowsPerTick))
		}
		writeRow(&b, label, func(v float64) (string, lipgloss.Style) {
			switch {
			case v >= hi:
				return "█", upStyle
			case v > lo:
				idx := max(1, min(8, int((v-lo)/(hi-lo)*8)))
				return string(barBlocks[idx]), upStyle
			}
			return " ", blank
		})
	}

	corner := "└"
	if belowH > 0 {
		corner = "┼"
	}
	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", labelW, "0")))
	b.WriteString(axisStyle.Render(corner + strings.Repeat("─", axisLen)))

	for row := 1; row <= belowH; row++ {
		if row == 1 {
			b.WriteString("\n")
		}
		near := bottom * float64(row-1) / float64(belowH)
		far := bottom * float64(row) / float64(belowH)
		label := ""
		if row%rowsPerTick == 0 {
			label = "-" + formatChartLabel(step*float64(row/rowsPerTick))
		}
		writeRow(&b, label, func(v float64) (string, lipgloss.Style) {
			mag := -v
			switch {
			case mag >= far:
				return "█", downStyle
			case mag > near && (mag-near)/(far-near) >= 0.5:
				return "▀", downStyle
			case mag > near:
				return "▔", downStyle
			}
			return " ", blank
		})
	}
	out := strings.TrimSuffix(b.String(), "\n")

	if len(labels) == n && n > 0 {
		labelStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
		out += "\n" + blank.Render(strings.Repeat(" ", labelW+1)) +
			labelStyle.Render(axisLabels(labels, barW+gap, axisLen))
	}
	return out
}

var barBlocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// fitBars samples values down so every bar is at least two cells wide.
func fitBars(values []float64, labels []string, chartW int) ([]float64, []string) {
	n := len(values)
	if n <= 1 || (chartW-(n-1))/n >= 2 {
		return values, labels
	}
	keep := max(2, (chartW+1)/3)
	sampled := make([]float64, keep)
	var sampledLabels []string
	if len(labels) == n {
		sampledLabels = make([]string, keep)
	}
	for i := range sampled {
		src := i * (n - 1) / (keep - 1)
		sampled[i] = values[src]
		if sampledLabels != nil {
			sampledLabels[i] = labels[src]
		}
	}
	return sampled, sampledLabels
}

// axisLabels lays period labels under their bars, skipping any that would
// overlap, and always keeps the last one.
func axisLabels(labels []string, pitch, axisLen int) string {
	buf := []byte(strings.Repeat(" ", axisLen))
	n := len(labels)
	every := max(1, (n*8)/(axisLen+1))

	lastEnd := -1
	for i := 0; i < n; i += every {
		pos := i * pitch
		lbl := labels[i]
		if pos <= lastEnd || pos >= axisLen {
			continue
		}
		if pos+len(lbl) > axisLen {
			if axisLen-pos < 3 {
				continue
			}
			lbl = lbl[:axisLen-pos]
		}
		copy(buf[pos:], lbl)
		lastEnd = pos + len(lbl)
	}
	if n > 1 {
		lbl := labels[n-1]
		pos := min((n-1)*pitch, axisLen-len(lbl))
		if pos >= 0 && pos > lastEnd {
			copy(buf[pos:], lbl)
		}
	}
	return strings.TrimRight(string(buf), " ")
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	exp := math.Floor(math.Log10(rough))
	base := math.Pow(10, exp)
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func formatChartLabel(v float64) string {
	switch {
	case v >= 1e9:
		if v == math.Trunc(v/1e9)*1e9 {
			return fmt.Sprintf("%.0fB", v/1e9)
		}
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		if v == math.Trunc(v/1e6)*1e6 {
			return fmt.Sprintf("%.0fM", v/1e6)
		}
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		if v == math.Trunc(v/1e3)*1e3 {
			return fmt.Sprintf("%.0fk", v/1e3)
		}
		return fmt.Sprintf("%.1fk", v/1e3)
	case v >= 1:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
