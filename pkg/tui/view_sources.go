package tui

import (
	"fmt"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/model"
)

func (m Model) viewSources() string {
	s := strings.Builder{}
	statuses := m.Result.Sources
	if len(statuses) == 0 {
		return "\n   " + subtle.Render("No finding sources were registered.")
	}

	s.WriteString(dimStyle.Render(fmt.Sprintf("  %-28s %-10s %-8s %-9s %s", "SOURCE", "OUTCOME", "FINDINGS", "FALLBACK", "MESSAGE")) + "\n")
	s.WriteString(dimStyle.Render("  "+strings.Repeat("─", 70)) + "\n")
	for _, st := range statuses {
		outcome := fmt.Sprintf("%-10s", st.Outcome)
		switch st.Outcome {
		case model.OutcomeSuccess:
			outcome = special.Render(outcome)
		case model.OutcomeTimedOut:
			outcome = warning.Render(outcome)
		case model.OutcomeError:
			outcome = danger.Render(outcome)
		default:
			outcome = subtle.Render(outcome)
		}
		fallback := ""
		if st.UsedFallback {
			fallback = "yes"
		}
		s.WriteString(fmt.Sprintf("  %-28s %s %-8d %-9s %s\n", st.Name, outcome, st.Count, fallback, st.Message))
	}
	return s.String()
}

func (m Model) viewMargins() string {
	s := strings.Builder{}
	margins := m.Result.Margins
	if len(margins) == 0 {
		return "\n   " + subtle.Render("No parameters with design limits in this dataset.")
	}

	s.WriteString(dimStyle.Render(fmt.Sprintf("  %-24s %-10s %-10s %s", "PARAMETER", "CURRENT", "LIMIT", "MARGIN")) + "\n")
	for _, mg := range margins {
		trend := subtle.Render(string(mg.Trend))
		if mg.Trend == model.TrendDegrading {
			trend = danger.Render(string(mg.Trend))
		}
		s.WriteString(fmt.Sprintf("  %-24s %-10.2f %-10.2f %s %5.1f%% %s\n",
			mg.Parameter, mg.CurrentValue, mg.DesignLimit,
			m.gauge.ViewAs(mg.MarginPercentage/100), mg.MarginPercentage, trend))
	}
	return s.String()
}
