package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/DrSkyle/assetpulse/pkg/config"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
)

// TrendLayer compares the first and second half means of critical
// parameters.
type TrendLayer struct{}

func (TrendLayer) Name() string { return "TrendChanges" }

// halves summarises one split series.
type halves struct {
	first, second    float64
	firstStd, secStd float64
	changePct        float64
	defined          bool
}

func splitHalves(x []float64) halves {
	mid := len(x) / 2
	if mid == 0 {
		return halves{}
	}
	h := halves{
		first:    profile.Mean(x[:mid]),
		second:   profile.Mean(x[mid:]),
		firstStd: profile.StdDev(x[:mid]),
		secStd:   profile.StdDev(x[mid:]),
	}
	if h.first != 0 {
		h.changePct = (h.second - h.first) / math.Abs(h.first) * 100
		h.defined = true
	}
	return h
}

func direction(changePct, stableBand float64) model.Direction {
	switch {
	case changePct > stableBand:
		return model.DirectionIncreasing
	case changePct < -stableBand:
		return model.DirectionDecreasing
	default:
		return model.DirectionStable
	}
}

func (h halves) volatile(cfg config.DetectionConfig) bool {
	return h.secStd > 0 && h.secStd > cfg.VolatilityRatio*h.firstStd
}

func (TrendLayer) Detect(ctx context.Context, in *Input) []model.Anomaly {
	var out []model.Anomaly
	for _, f := range in.Fields() {
		if !in.Knowledge.IsCritical(f) {
			continue
		}
		x, ok := in.usable(f)
		if !ok {
			continue
		}
		h := splitHalves(x)
		if !h.defined || math.Abs(h.changePct) <= in.Config.TrendAnomalyPct {
			continue
		}
		sev := model.SeverityMedium
		if math.Abs(h.changePct) > in.Config.TrendHighPct {
			sev = model.SeverityHigh
		}
		dir := direction(h.changePct, in.Config.TrendStablePct)
		out = append(out, model.Anomaly{
			Kind:     model.KindTrendChange,
			Severity: sev,
			Field:    f,
			Title:    fmt.Sprintf("Sustained %s trend in %s", dir, f),
			Description: fmt.Sprintf("The mean of %s moved from %.4g to %.4g (%+.1f%%) between the first and second half of the record.",
				f, h.first, h.second, h.changePct),
			Value: model.TrendPayload{
				FirstHalfMean:  h.first,
				SecondHalfMean: h.second,
				ChangePct:      h.changePct,
				Direction:      dir,
			},
			Confidence:  0.75,
			ImpactScore: math.Min(100, math.Abs(h.changePct)),
		})
	}
	return out
}

// Trends builds the per-field trend map over every usable numeric field.
func Trends(in *Input) map[string]model.TrendInfo {
	out := make(map[string]model.TrendInfo)
	for _, f := range in.Fields() {
		x, ok := in.usable(f)
		if !ok {
			continue
		}
		h := splitHalves(x)
		info := model.TrendInfo{Direction: model.DirectionStable, Volatile: h.volatile(in.Config)}
		if h.defined {
			info.ChangePct = h.changePct
			info.Direction = direction(h.changePct, in.Config.TrendStablePct)
		}
		out[f] = info
	}
	return out
}
