package detect

import (
	"fmt"
	"math"
	"sort"

	"github.com/DrSkyle/assetpulse/pkg/domain"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
)

// Margins computes, for each field with a normal range, how far the recent
// mean sits from the nearer limit as a percentage of the range width.
// Results are sorted tightest first.
func Margins(in *Input) []model.EngineeringMargin {
	var out []model.EngineeringMargin
	for _, f := range in.Fields() {
		x := in.Series(f)
		if len(x) == 0 {
			continue
		}
		param, rg, ok := in.Knowledge.RangeFor(f)
		if !ok || rg.Width() <= 0 {
			continue
		}

		w := in.Config.MarginWindow
		if w <= 0 || w > len(x) {
			w = len(x)
		}
		current := profile.Mean(x[len(x)-w:])

		toMax := (rg.Max - current) / rg.Width() * 100
		toMin := (current - rg.Min) / rg.Width() * 100
		nearMax := toMax <= toMin
		margin, limit := toMin, rg.Min
		if nearMax {
			margin, limit = toMax, rg.Max
		}
		margin = math.Max(0, math.Min(100, margin))

		out = append(out, model.EngineeringMargin{
			Component:        param,
			Parameter:        f,
			CurrentValue:     current,
			DesignLimit:      limit,
			MarginPercentage: margin,
			Trend:            marginTrend(x, rg, nearMax, in.Config.TrendStablePct),
			SafetyCritical:   in.Knowledge.IsCritical(f),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MarginPercentage < out[j].MarginPercentage
	})
	return out
}

// marginTrend reports Degrading when the series moves toward the nearer
// limit by more than the stable band.
func marginTrend(x []float64, rg model.Range, nearMax bool, stableBand float64) model.MarginTrend {
	mid := len(x) / 2
	if mid == 0 {
		return model.TrendStable
	}
	first, second := profile.Mean(x[:mid]), profile.Mean(x[mid:])
	var change float64
	if first != 0 {
		change = (second - first) / math.Abs(first) * 100
	} else {
		change = (second - first) / rg.Width() * 100
	}
	if math.Abs(change) <= stableBand {
		return model.TrendStable
	}
	if (change > 0) == nearMax {
		return model.TrendDegrading
	}
	return model.TrendImproving
}

// BlindSpots lists critical parameters with no matching column, then the
// worst data-quality gaps (columns whose null share exceeds the limit).
func BlindSpots(in *Input) []model.BlindSpot {
	var out []model.BlindSpot
	names := in.Dataset.Names()

	if in.Knowledge != nil {
		for _, p := range in.Knowledge.CriticalParameters {
			if _, ok := domain.ColumnFor(p, names); ok {
				continue
			}
			out = append(out, model.BlindSpot{
				Kind:        model.BlindSpotMissingParameter,
				Parameter:   p,
				Severity:    model.SeverityHigh,
				Description: fmt.Sprintf("Critical parameter %s is not present in the data; failures it would reveal cannot be detected.", p),
			})
		}
	}

	var gaps []model.BlindSpot
	if in.Dataset != nil {
		for _, c := range in.Dataset.Columns {
			pct := c.NullFraction() * 100
			if pct <= in.Config.NullGapPct {
				continue
			}
			sev := model.SeverityMedium
			if pct > 50 {
				sev = model.SeverityHigh
			}
			gaps = append(gaps, model.BlindSpot{
				Kind:           model.BlindSpotDataQuality,
				Parameter:      c.Name,
				Severity:       sev,
				NullPercentage: pct,
				Description:    fmt.Sprintf("%s is missing in %.1f%% of records.", c.Name, pct),
			})
		}
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].NullPercentage > gaps[j].NullPercentage
	})
	if limit := in.Config.MaxQualityGaps; limit > 0 && len(gaps) > limit {
		gaps = gaps[:limit]
	}
	return append(out, gaps...)
}
