package detect

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/model"
)

// strongCorrelation is the |r| above which a pair is reported as an
// insight.
const strongCorrelation = 0.8

// Insights produces short human-readable observations about the run.
func Insights(in *Input, res *Result) []string {
	var out []string
	rows := in.Dataset.Rows()
	if rows < in.Config.MinSamples {
		out = append(out, fmt.Sprintf("Insufficient data: %d records is below the %d-sample minimum, statistical layers were skipped.",
			rows, in.Config.MinSamples))
		return out
	}
	out = append(out, fmt.Sprintf("Analyzed %d records across %d numeric fields.", rows, len(in.Fields())))

	var volatile []string
	for _, f := range in.Fields() {
		if t, ok := res.Trends[f]; ok && t.Volatile {
			volatile = append(volatile, f)
		}
	}
	if len(volatile) > 0 {
		out = append(out, fmt.Sprintf("Volatility increased in the second half of the record for: %s.", strings.Join(volatile, ", ")))
	}

	pairs := make([]string, 0, len(res.Correlations))
	for k, r := range res.Correlations {
		if math.Abs(r) >= strongCorrelation {
			pairs = append(pairs, k)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ri, rj := math.Abs(res.Correlations[pairs[i]]), math.Abs(res.Correlations[pairs[j]])
		if ri != rj {
			return ri > rj
		}
		return pairs[i] < pairs[j]
	})
	for i, k := range pairs {
		if i == 3 {
			break
		}
		out = append(out, fmt.Sprintf("Strong correlation %s (r=%.2f).", k, res.Correlations[k]))
	}

	critical := 0
	for _, m := range res.Margins {
		if m.MarginPercentage < 10 {
			critical++
		}
	}
	if critical > 0 {
		out = append(out, fmt.Sprintf("%d parameter(s) are operating within 10%% of a design limit.", critical))
	}
	for _, l := range res.Layers {
		if l.Panicked {
			out = append(out, fmt.Sprintf("Detection layer %s failed and was skipped.", l.Name))
		}
	}
	if len(res.Anomalies) == 0 {
		out = append(out, "No statistical anomalies were detected.")
	}
	return out
}

// CountBySeverity tallies anomalies per severity.
func CountBySeverity(anoms []model.Anomaly) map[model.Severity]int {
	out := make(map[model.Severity]int)
	for _, a := range anoms {
		out[a.Severity]++
	}
	return out
}
