package tui

import (
	"fmt"
	"strings"
)

func (m Model) viewList() string {
	s := strings.Builder{}
	items := m.Result.Unified

	if len(items) == 0 {
		return "\n\n   " + iconSafe.Render() + subtle.Render("  No anomalies detected.")
	}

	start, end := m.calculateWindow(len(items))

	s.WriteString(dimStyle.Render(fmt.Sprintf("  %-4s %-9s %-6s %-7s %s", "#", "SEVERITY", "IMPACT", "SOURCES", "TITLE")) + "\n")
	s.WriteString(dimStyle.Render("  "+strings.Repeat("─", 70)) + "\n")

	for i := start; i < end; i++ {
		u := items[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		title := u.Title
		if len(title) > 55 {
			title = title[:52] + "..."
		}
		sev := severityStyle(u.Severity.String()).Render(fmt.Sprintf("%-9s", u.Severity.String()))
		line := cursor + fmt.Sprintf("%-4d %s %-6.0f %-7d %s", i+1, sev, u.ImpactScore, len(u.ContributingSources), title)

		if i == m.cursor {
			s.WriteString(listSelectedStyle.Render(line) + "\n")
		} else {
			s.WriteString(listNormalStyle.Render(line) + "\n")
		}
	}
	return s.String()
}

func (m Model) calculateWindow(total int) (int, int) {
	windowSize := max(5, m.height-8)

	start := max(0, m.cursor-windowSize/2)
	end := start + windowSize
	if end > total {
		end = total
		start = max(0, end-windowSize)
	}
	return start, end
}
