package detect

import (
	"sort"

	"github.com/DrSkyle/assetpulse/pkg/domain"
	"github.com/DrSkyle/assetpulse/pkg/model"
)

var genericCauses = map[model.Kind][]string{
	model.KindStatisticalOutlier: {"Transient process upset", "Sensor noise or intermittent wiring"},
	model.KindThresholdBreach:    {"Operation outside design envelope", "Control loop malfunction"},
	model.KindTrendChange:        {"Progressive component wear", "Change in operating regime"},
	model.KindCorrelationBreak:   {"Sensor miscalibration", "Decoupled mechanical linkage"},
	model.KindPatternAnomaly:     {"Failed or frozen sensor", "Data acquisition fault"},
	model.KindRateOfChange:       {"Unstable control response", "Sudden load change"},
}

var genericActions = map[model.Kind]string{
	model.KindStatisticalOutlier: "Review the outlying samples against the operating log.",
	model.KindThresholdBreach:    "Verify operating limits and inspect the affected component.",
	model.KindTrendChange:        "Schedule an inspection before the trend reaches a design limit.",
	model.KindCorrelationBreak:   "Cross-check both sensors against a reference instrument.",
	model.KindPatternAnomaly:     "Check sensor health and data acquisition wiring.",
	model.KindRateOfChange:       "Tune the control loop and review load transitions.",
}

// enrich attaches domain causes and recommendations, falling back to
// generic per-kind text, and stamps a content-derived ID.
func enrich(a *model.Anomaly, k *domain.Knowledge) {
	causes := k.CausesFor(a.Field)
	if len(causes) == 0 {
		causes = genericCauses[a.Kind]
	}
	a.PossibleCauses = append([]string(nil), causes...)

	a.Recommendations = nil
	if rec, ok := k.RecommendationFor(a.Field); ok {
		a.Recommendations = append(a.Recommendations, rec)
	}
	if g, ok := genericActions[a.Kind]; ok {
		a.Recommendations = append(a.Recommendations, g)
	}
	a.StampID()
}

var priorityRank = map[model.Priority]int{
	model.PriorityImmediate: 0,
	model.PriorityHigh:      1,
	model.PriorityMedium:    2,
	model.PriorityLow:       3,
}

// Recommendations derives one prioritised action per distinct
// (field, action), most urgent first.
func Recommendations(anoms []model.Anomaly) []model.Recommendation {
	seen := make(map[[2]string]bool)
	var out []model.Recommendation
	for _, a := range anoms {
		if len(a.Recommendations) == 0 {
			continue
		}
		key := [2]string{a.Field, a.Recommendations[0]}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Recommendation{
			Priority: model.PriorityFor(a.Severity),
			Field:    a.Field,
			Action:   a.Recommendations[0],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
	})
	return out
}
