package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nzmon/nzmon/internal/monitor"
)

const detailGraphHeight = 4

var detailContainerStyle = lipgloss.NewStyle().Padding(0, 2)

// renderDetailView renders the expanded view of the selected server.
func (m Model) renderDetailView() string {
	s, ok := m.SelectedServer()
	if !ok {
		return LabelStyle.Render("No server selected")
	}

	var b strings.Builder
	b.WriteString(m.renderDetailHeader(s))
	b.WriteString("\n\n")
	if m.viewportReady {
		b.WriteString(m.detailViewport.View())
	} else {
		b.WriteString(m.renderDetailContent())
	}
	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("esc back | ↑/↓ switch server | ? help"))
	return detailContainerStyle.Render(b.String())
}

func (m Model) renderDetailHeader(s monitor.ServerSnapshot) string {
	glyph, glyphStyle := StatusGlyph(s.Status)
	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render(serverTitle(s))
	return title + "  " + glyphStyle.Render(glyph+" "+string(s.Status))
}

func (m Model) detailWidth() int {
	w := m.width - 6
	if w < 40 {
		w = 40
	}
	return w
}

// renderDetailContent renders the scrollable sections of the detail view.
func (m Model) renderDetailContent() string {
	s, ok := m.SelectedServer()
	if !ok {
		return ""
	}
	width := m.detailWidth()

	if s.Status != monitor.StatusOK {
		lines := []string{SectionHeader("Status", s.CPU, width)}
		reason := s.Error
		if reason == "" {
			reason = "No readings yet"
		}
		for _, l := range wrap(reason, width-4) {
			lines = append(lines, SectionContentLine(LabelStyle.Render(l), width))
		}
		lines = append(lines, SectionFooter(width))
		return strings.Join(lines, "\n")
	}

	hist := m.src.History()
	graphWidth := width - 4
	samples := graphWidth * 2

	sections := []string{
		renderGraphSection("CPU", s.CPU, hist.CPU(s.ID, samples), ScalePercent, width),
		renderGraphSection("Memory", s.Memory, hist.Memory(s.ID, samples), ScalePercent, width),
		renderGraphSection("Disk", s.Disk, hist.Disk(s.ID, samples), ScalePercent, width),
		renderGraphSection("Network", s.Network, hist.Network(s.ID, samples), ScaleRate, width),
	}
	return strings.Join(sections, "\n")
}

// renderGraphSection renders a bordered section with a braille graph.
func renderGraphSection(title, value string, series []float64, scale Scale, width int) string {
	lines := []string{SectionHeader(title, value, width)}

	graph := RenderBrailleGraph(series, width-4, detailGraphHeight, scale, ColorGraph)
	if graph == "" {
		lines = append(lines, SectionContentLine(LabelStyle.Render("collecting history..."), width))
	} else {
		for _, row := range strings.Split(graph, "\n") {
			lines = append(lines, SectionContentLine(row, width))
		}
	}
	lines = append(lines, SectionContentLine(LabelStyle.Render(fmt.Sprintf("%d samples", len(series))), width))
	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}
