package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nzmon/nzmon/internal/util"
)

// renderDashboard renders the list view.
func (m Model) renderDashboard() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderCards())
	if m.ShowFooter() {
		b.WriteString("\n")
		b.WriteString(m.renderFooter())
	}
	return b.String()
}

// updatedText describes how long ago the last poll finished.
func (m Model) updatedText() string {
	if m.lastUpdate.IsZero() {
		return "never"
	}
	switch secs := m.SecondsSinceUpdate(); secs {
	case 0:
		return "just now"
	case 1:
		return "1s ago"
	default:
		return fmt.Sprintf("%ds ago", secs)
	}
}

// renderHeader renders the title line with summary stats.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("nzmon")

	stats := fmt.Sprintf(" | %s | %d online | total %s | %s | updated %s",
		util.CountNoun(len(m.snap.Servers), "server", "servers"), m.OnlineCount(), m.snap.TotalNetwork,
		m.src.ConnectionState(), m.updatedText())

	line := title + LabelStyle.Render(stats)
	if m.polling {
		line += " " + m.spinner.View()
	}
	return HeaderStyle.Render(line)
}

// cardWidth picks a card width for the current terminal width.
func (m Model) cardWidth() int {
	switch m.LayoutMode() {
	case LayoutWide:
		return 48
	case LayoutStandard, LayoutCompact:
		return 38
	default:
		if m.width == 0 {
			return 40
		}
		if m.width-4 < 20 {
			return 20
		}
		return m.width - 4
	}
}

// renderCards renders the grid of server cards.
func (m Model) renderCards() string {
	if len(m.order) == 0 {
		return LabelStyle.Render("No servers configured. Run 'nzmon settings' to add some.")
	}

	width := m.cardWidth()
	cards := make([]string, 0, len(m.order))
	for i, idx := range m.order {
		cards = append(cards, m.renderCard(m.snap.Servers[idx], width, i == m.clampSelected()))
	}
	return m.layoutCards(cards, width)
}

// layoutCards arranges cards in rows that fit the terminal width.
func (m Model) layoutCards(cards []string, width int) string {
	perRow := 1
	if m.width > 0 {
		// border and margin
		perRow = m.width / (width + 3)
		if perRow < 1 {
			perRow = 1
		}
	}

	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := i + perRow
		if end > len(cards) {
			end = len(cards)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderFooter renders key hints and the sort order.
func (m Model) renderFooter() string {
	hints := m.help.ShortHelpView(m.keys.ShortHelp())
	return FooterStyle.Render(hints + "  sort: " + m.sortOrder.String())
}

// truncate shortens s to limit runes with a trailing ellipsis.
func truncate(s string, limit int) string {
	r := []rune(s)
	if limit <= 3 || len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
