package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
)

// OutlierLayer flags samples far from the mean in standard deviations. The
// first configured threshold (strictest first) with at least one hit
// decides the severity.
type OutlierLayer struct{}

func (OutlierLayer) Name() string { return "StatisticalOutliers" }

func (OutlierLayer) Detect(ctx context.Context, in *Input) []model.Anomaly {
	var out []model.Anomaly
	for _, f := range in.Fields() {
		x, ok := in.usable(f)
		if !ok {
			continue
		}
		mean, std := profile.Mean(x), profile.StdDev(x)
		if std == 0 {
			continue
		}

		z := make([]float64, len(x))
		maxZ := 0.0
		for i, v := range x {
			z[i] = math.Abs(v-mean) / std
			maxZ = math.Max(maxZ, z[i])
		}

		for _, th := range in.Config.OutlierThresholds {
			count := 0
			for _, zi := range z {
				if zi > th.Z {
					count++
				}
			}
			if count == 0 {
				continue
			}
			sev, err := model.ParseSeverity(th.Severity)
			if err != nil {
				sev = model.SeverityLow
			}
			share := float64(count) / float64(len(x))
			out = append(out, model.Anomaly{
				Kind:     model.KindStatisticalOutlier,
				Severity: sev,
				Field:    f,
				Title:    fmt.Sprintf("Statistical outliers in %s", f),
				Description: fmt.Sprintf("%d of %d samples (%.1f%%) lie more than %.1f standard deviations from the mean %.3g (max |z| %.2f).",
					count, len(x), share*100, th.Z, mean, maxZ),
				Value:         model.OutlierPayload{Count: count, MaxZ: maxZ},
				ExpectedRange: &model.Range{Min: mean - th.Z*std, Max: mean + th.Z*std},
				Confidence:    math.Min(0.95, 0.7+th.Z/10),
				ImpactScore:   math.Min(100, share*100*th.Z),
			})
			break
		}
	}
	return out
}
