package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nzmon/nzmon/internal/monitor"
)

const cardLabelWidth = 5

var cardDividerStyle = lipgloss.NewStyle().Foreground(ColorBorder)

func renderCardDivider(width int) string {
	return cardDividerStyle.Render(strings.Repeat("─", width))
}

// serverTitle is "S<id>" plus the server name when the dashboard sent one.
func serverTitle(s monitor.ServerSnapshot) string {
	title := fmt.Sprintf("S%d", s.ID)
	if s.Name != "" {
		title += " " + s.Name
	}
	return title
}

// renderCard renders one server card.
func (m Model) renderCard(s monitor.ServerSnapshot, width int, selected bool) string {
	style := CardStyle.Width(width)
	if selected {
		style = CardSelectedStyle.Width(width)
	}
	inner := width - 4

	glyph, glyphStyle := StatusGlyph(s.Status)
	title := glyphStyle.Render(glyph) + " " + ServerNameStyle.Render(truncate(serverTitle(s), inner-2))

	lines := []string{title, renderCardDivider(inner)}
	if s.Status == monitor.StatusOK {
		lines = append(lines, m.renderCardMetrics(s, inner)...)
	} else {
		lines = append(lines, m.renderCardPlaceholder(s, inner)...)
	}
	return style.Render(strings.Join(lines, "\n"))
}

// renderCardMetrics renders the four metric rows of a server with readings.
func (m Model) renderCardMetrics(s monitor.ServerSnapshot, width int) []string {
	hist := m.src.History()
	graphs := m.LayoutMode() != LayoutMinimal

	var lines []string
	percentRow := func(label, value string, percent float64, series []float64) {
		lines = append(lines, metricLine(label, MetricStyle(percent).Render(value)))
		if !graphs {
			return
		}
		barWidth := (width - cardLabelWidth) / 2
		spark := RenderSparkline(series, width-cardLabelWidth-barWidth-1, ScalePercent)
		lines = append(lines, strings.Repeat(" ", cardLabelWidth)+ProgressBar(barWidth, percent)+" "+spark)
	}

	percentRow("CPU", s.CPU, s.CPUPercent, hist.CPU(s.ID, width))
	percentRow("MEM", s.Memory, s.MemPercent, hist.Memory(s.ID, width))
	percentRow("DISK", s.Disk, s.DiskPercent, hist.Disk(s.ID, width))

	lines = append(lines, metricLine("NET", ValueStyle.Render(s.Network)))
	if graphs {
		spark := RenderSparkline(hist.Network(s.ID, width), width-cardLabelWidth, ScaleRate)
		lines = append(lines, strings.Repeat(" ", cardLabelWidth)+spark)
	}
	return lines
}

// renderCardPlaceholder renders a server that has no readings this cycle.
func (m Model) renderCardPlaceholder(s monitor.ServerSnapshot, width int) []string {
	lines := []string{LabelStyle.Render("  " + s.CPU)}
	if s.Error != "" {
		for _, l := range wrap(s.Error, width-2) {
			lines = append(lines, ErrorTextStyle.Render("  "+l))
		}
	}
	return lines
}

func metricLine(label, value string) string {
	return LabelStyle.Render(fmt.Sprintf("%-*s", cardLabelWidth, label)) + value
}

// wrap splits text into lines of at most width runes on word boundaries.
func wrap(text string, width int) []string {
	if width < 10 {
		width = 10
	}
	var lines []string
	var cur string
	for _, word := range strings.Fields(text) {
		switch {
		case cur == "":
			cur = word
		case len([]rune(cur))+1+len([]rune(word)) <= width:
			cur += " " + word
		default:
			lines = append(lines, cur)
			cur = word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	for i, l := range lines {
		lines[i] = truncate(l, width)
	}
	return lines
}
