package tui

import (
	"fmt"

	"github.com/DrSkyle/assetpulse/pkg/version"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) viewHUD() string {
	res := m.Result

	stateStyle := special
	switch res.HealthState {
	case "degraded":
		stateStyle = warning
	case "critical":
		stateStyle = danger
	}

	name := res.SystemName
	if name == "" {
		name = res.SystemType
	}

	segTitle := highlight.Render(fmt.Sprintf("%s %s", version.AppName, version.Current))
	segSystem := subtle.Render(fmt.Sprintf("[ %s ]", name))
	segHealth := hudLabelStyle.Render("HEALTH:") +
		m.gauge.ViewAs(res.HealthScore/100) + " " +
		stateStyle.Render(fmt.Sprintf("%.1f %s", res.HealthScore, res.HealthState))
	segCount := hudLabelStyle.Render("ANOMALIES:") + fmt.Sprintf("%d / %d unified", len(res.Anomalies), len(res.Unified))

	left := lipgloss.JoinHorizontal(lipgloss.Center, segTitle, "  ", segSystem)
	right := lipgloss.JoinHorizontal(lipgloss.Center, segHealth, "  |  ", segCount)

	width := max(0, m.width-4)
	spacer := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	content := lipgloss.JoinHorizontal(lipgloss.Top,
		left,
		lipgloss.NewStyle().Width(spacer).Render(""),
		right,
	)
	return hudStyle.Width(max(0, m.width-2)).Render(content)
}
