package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
)

// RateLayer looks for abrupt accelerations in critical parameters using
// the second difference of the series.
type RateLayer struct{}

func (RateLayer) Name() string { return "RateOfChange" }

func (RateLayer) Detect(ctx context.Context, in *Input) []model.Anomaly {
	var out []model.Anomaly
	for _, f := range in.Fields() {
		if !in.Knowledge.IsCritical(f) {
			continue
		}
		x, ok := in.usable(f)
		if !ok {
			continue
		}
		accel := profile.Diff(profile.Diff(x))
		s := profile.StdDev(accel)
		if s == 0 {
			continue
		}
		limit := in.Config.RateSigma * s
		events := 0
		for _, a := range accel {
			if math.Abs(a) > limit {
				events++
			}
		}
		share := float64(events) / float64(len(x))
		if share <= in.Config.RateMinShare {
			continue
		}
		out = append(out, model.Anomaly{
			Kind:     model.KindRateOfChange,
			Severity: model.SeverityMedium,
			Field:    f,
			Title:    fmt.Sprintf("Abrupt rate changes in %s", f),
			Description: fmt.Sprintf("%d acceleration events (%.1f%% of samples) in %s exceed %.4g.",
				events, share*100, f, limit),
			Value:       model.RatePayload{Events: events, EventPct: share * 100, Threshold: limit},
			Confidence:  0.65,
			ImpactScore: math.Min(100, 25+share*300),
		})
	}
	return out
}
