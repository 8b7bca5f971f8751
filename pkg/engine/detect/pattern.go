package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
)

// PatternLayer detects stuck sensors on any field and rare sudden jumps on
// critical parameters. A stuck sensor suppresses the jump check.
type PatternLayer struct{}

func (PatternLayer) Name() string { return "PatternAnomalies" }

func (PatternLayer) Detect(ctx context.Context, in *Input) []model.Anomaly {
	var out []model.Anomaly
	for _, f := range in.Fields() {
		x, ok := in.usable(f)
		if !ok {
			continue
		}
		n := len(x)
		unique := profile.UniqueCount(x)
		ratio := float64(unique) / float64(n)

		if n > in.Config.StuckMinSamples && ratio < in.Config.StuckUniqueRatio {
			out = append(out, model.Anomaly{
				Kind:     model.KindPatternAnomaly,
				Severity: model.SeverityHigh,
				Field:    f,
				Title:    fmt.Sprintf("Possible stuck sensor on %s", f),
				Description: fmt.Sprintf("%s reported only %d distinct values across %d samples (%.2f%% unique).",
					f, unique, n, ratio*100),
				Value:       model.PatternPayload{Pattern: model.PatternStuck, Count: n, UniqueRatio: ratio},
				Confidence:  0.9,
				ImpactScore: 70,
			})
			continue
		}

		if !in.Knowledge.IsCritical(f) {
			continue
		}
		steps := profile.Diff(x)
		for i := range steps {
			steps[i] = math.Abs(steps[i])
		}
		m, s := profile.Mean(steps), profile.StdDev(steps)
		if s == 0 {
			continue
		}
		limit := m + in.Config.JumpSigma*s
		jumps := 0
		for _, d := range steps {
			if d > limit {
				jumps++
			}
		}
		if jumps == 0 || float64(jumps)/float64(n) >= in.Config.JumpMaxShare {
			continue
		}
		out = append(out, model.Anomaly{
			Kind:     model.KindPatternAnomaly,
			Severity: model.SeverityMedium,
			Field:    f,
			Title:    fmt.Sprintf("Sudden jumps in %s", f),
			Description: fmt.Sprintf("%d sample-to-sample changes in %s exceed %.4g, more than %.0f standard deviations above the typical step.",
				jumps, f, limit, in.Config.JumpSigma),
			Value:       model.PatternPayload{Pattern: model.PatternJump, Count: jumps, UniqueRatio: ratio},
			Confidence:  0.7,
			ImpactScore: math.Min(100, 35+float64(jumps)*5),
		})
	}
	return out
}
