package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) viewDetails() string {
	if m.cursor < 0 || m.cursor >= len(m.Result.Unified) {
		return "No anomaly selected"
	}
	return detailsBoxStyle.Render(m.detail.View())
}

// detailContent renders the selected anomaly for the scrolling viewport.
func (m Model) detailContent() string {
	if m.cursor < 0 || m.cursor >= len(m.Result.Unified) {
		return ""
	}
	u := m.Result.Unified[m.cursor]

	header := detailsHeaderStyle.Render(fmt.Sprintf("%s : %s", u.Kind, u.Title))
	intel := lipgloss.JoinVertical(lipgloss.Left,
		severityStyle(u.Severity.String()).Render("SEVERITY:   "+u.Severity.String()),
		fmt.Sprintf("IMPACT:     %.0f/100", u.ImpactScore),
		fmt.Sprintf("CONFIDENCE: %.0f%%", u.Confidence*100),
		"FIELDS:     "+strings.Join(u.AffectedFields, ", "),
		"SOURCES:    "+strings.Join(u.ContributingSources, ", "),
	)

	parts := []string{header, "", intel, "", u.Description}
	if len(u.PossibleCauses) > 0 {
		parts = append(parts, "", highlight.Render("POSSIBLE CAUSES:"), bullets(u.PossibleCauses))
	}
	if len(u.Recommendations) > 0 {
		parts = append(parts, "", highlight.Render("RECOMMENDATIONS:"), bullets(u.Recommendations))
	}
	if len(u.AgentPerspectives) > 0 {
		parts = append(parts, "", highlight.Render("PERSPECTIVES:"))
		for _, p := range u.AgentPerspectives {
			parts = append(parts, special.Render(p.Source)+"  "+dimStyle.Render(p.Text))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func bullets(items []string) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  • " + it)
	}
	return b.String()
}
