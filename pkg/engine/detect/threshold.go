package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/DrSkyle/assetpulse/pkg/config"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
)

// ThresholdLayer compares each field against the normal range of its
// matching domain parameter.
type ThresholdLayer struct{}

func (ThresholdLayer) Name() string { return "ThresholdBreaches" }

type breach struct {
	dir      model.Direction
	count    int
	observed float64
	limit    float64
	pct      float64
	sev      model.Severity
}

func (ThresholdLayer) Detect(ctx context.Context, in *Input) []model.Anomaly {
	var out []model.Anomaly
	for _, f := range in.Fields() {
		x, ok := in.usable(f)
		if !ok {
			continue
		}
		param, rg, ok := in.Knowledge.RangeFor(f)
		if !ok {
			continue
		}
		lo, hi := profile.MinMax(x)

		var candidates []breach
		if hi > rg.Max {
			b := breach{dir: model.DirectionAbove, observed: hi, limit: rg.Max}
			for _, v := range x {
				if v > rg.Max {
					b.count++
				}
			}
			b.pct = (hi - rg.Max) / limitDenominator(rg.Max, rg) * 100
			b.sev = breachSeverity(b.pct, in.Config)
			candidates = append(candidates, b)
		}
		if lo < rg.Min {
			b := breach{dir: model.DirectionBelow, observed: lo, limit: rg.Min}
			for _, v := range x {
				if v < rg.Min {
					b.count++
				}
			}
			b.pct = (rg.Min - lo) / limitDenominator(rg.Min, rg) * 100
			b.sev = breachSeverity(b.pct, in.Config)
			candidates = append(candidates, b)
		}
		if len(candidates) == 0 {
			continue
		}

		// Report only the worse direction.
		b := candidates[0]
		for _, c := range candidates[1:] {
			if c.sev > b.sev || (c.sev == b.sev && c.pct > b.pct) {
				b = c
			}
		}

		r := rg
		out = append(out, model.Anomaly{
			Kind:     model.KindThresholdBreach,
			Severity: b.sev,
			Field:    f,
			Title:    fmt.Sprintf("%s %s normal range", f, b.dir),
			Description: fmt.Sprintf("%d samples of %s went %s the %s limit of %.4g; the extreme reading %.4g is %.1f%% beyond it.",
				b.count, f, b.dir, param, b.limit, b.observed, b.pct),
			Value: model.ThresholdPayload{
				Observed:  b.observed,
				Limit:     b.limit,
				Count:     b.count,
				Direction: b.dir,
				Pct:       b.pct,
			},
			ExpectedRange: &r,
			Confidence:    0.9,
			ImpactScore:   math.Min(100, 40+b.pct),
		})
	}
	return out
}

// limitDenominator is |limit|, or the range width when the limit is zero.
func limitDenominator(limit float64, rg model.Range) float64 {
	if limit != 0 {
		return math.Abs(limit)
	}
	if w := rg.Width(); w > 0 {
		return w
	}
	return 1
}

func breachSeverity(pct float64, cfg config.DetectionConfig) model.Severity {
	switch {
	case pct > cfg.BreachCritical:
		return model.SeverityCritical
	case pct > cfg.BreachHigh:
		return model.SeverityHigh
	case pct > cfg.BreachMedium:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}
