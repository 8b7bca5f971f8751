package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/engine/history"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/charmbracelet/lipgloss"
)

var (
	special = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF99")).Bold(true)
	danger  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0055")).Bold(true)
	warning = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	subtle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
	heading = lipgloss.NewStyle().Foreground(lipgloss.Color("#874BFD")).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)
)

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "healthy":
		return special
	case "degraded":
		return warning
	}
	return danger
}

func sevStyle(s model.Severity) lipgloss.Style {
	switch s {
	case model.SeverityCritical:
		return danger
	case model.SeverityHigh:
		return warning
	case model.SeverityLow:
		return subtle
	}
	return lipgloss.NewStyle()
}

// printResult renders the human-readable report.
func printResult(w io.Writer, res *model.AnalysisResult) {
	name := res.SystemName
	if name == "" {
		name = res.SystemType
	}
	header := lipgloss.JoinVertical(lipgloss.Left,
		heading.Render(fmt.Sprintf("%s (%s)", name, res.SystemType)),
		fmt.Sprintf("Health: %s", stateStyle(res.HealthState).Render(fmt.Sprintf("%.1f/100 %s", res.HealthScore, strings.ToUpper(res.HealthState)))),
		subtle.Render(res.Summary),
	)
	fmt.Fprintln(w, boxStyle.Render(header))

	fmt.Fprintln(w, heading.Render("\nANOMALIES"))
	if len(res.Unified) == 0 {
		fmt.Fprintln(w, special.Render("  No anomalies detected."))
	}
	for i, u := range res.Unified {
		fmt.Fprintf(w, "  %2d. %s %-60s impact %3.0f  [%s]\n",
			i+1,
			sevStyle(u.Severity).Render(fmt.Sprintf("%-8s", strings.ToUpper(u.Severity.String()))),
			u.Title,
			u.ImpactScore,
			strings.Join(u.ContributingSources, ", "))
	}

	if len(res.Margins) > 0 {
		fmt.Fprintln(w, heading.Render("\nENGINEERING MARGINS"))
		for _, m := range res.Margins {
			line := fmt.Sprintf("  %-28s %6.1f%% to limit %-10.2f (%s)", m.Parameter, m.MarginPercentage, m.DesignLimit, m.Trend)
			if m.MarginPercentage < 10 {
				line = danger.Render(line)
			}
			fmt.Fprintln(w, line)
		}
	}

	if len(res.BlindSpots) > 0 {
		fmt.Fprintln(w, heading.Render("\nBLIND SPOTS"))
		for _, b := range res.BlindSpots {
			fmt.Fprintf(w, "  %s %s\n", sevStyle(b.Severity).Render(fmt.Sprintf("%-8s", strings.ToUpper(b.Severity.String()))), b.Description)
		}
	}

	if len(res.Insights) > 0 {
		fmt.Fprintln(w, heading.Render("\nINSIGHTS"))
		for _, in := range res.Insights {
			fmt.Fprintf(w, "  • %s\n", in)
		}
	}

	if len(res.Recommendations) > 0 {
		fmt.Fprintln(w, heading.Render("\nRECOMMENDATIONS"))
		for _, r := range res.Recommendations {
			fmt.Fprintf(w, "  [%s] %s\n", r.Priority, r.Action)
		}
	}

	var failed []string
	for _, s := range res.Sources {
		if s.Outcome != model.OutcomeSuccess {
			failed = append(failed, fmt.Sprintf("%s (%s)", s.Name, s.Outcome))
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(w, warning.Render("\n[WARN] Partial source results: "+strings.Join(failed, ", ")))
	}
}

func printTrend(w io.Writer, t history.Trend) {
	fmt.Fprintln(w, heading.Render("\nHEALTH TREND"))
	fmt.Fprintf(w, "  velocity %+.2f pts/h, projected 24h %.1f\n", t.Velocity, t.Projected24h)
	for _, a := range t.Alerts {
		fmt.Fprintln(w, "  "+danger.Render(a))
	}
}
