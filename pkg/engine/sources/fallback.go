package sources

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
)

// FallbackFunc derives findings from the profile alone. focus restricts
// the fields considered; an empty focus means every numeric field.
type FallbackFunc func(req Request, focus []string) []model.Finding

// Combine runs each generator in order and concatenates the results.
func Combine(gens ...FallbackFunc) FallbackFunc {
	return func(req Request, focus []string) []model.Finding {
		var out []model.Finding
		for _, g := range gens {
			out = append(out, g(req, focus)...)
		}
		return out
	}
}

func focused(p profile.DataProfile, focus []string) []profile.FieldProfile {
	fields := p.NumericFields()
	if len(focus) == 0 {
		return fields
	}
	var out []profile.FieldProfile
	for _, f := range fields {
		name := strings.ToLower(f.Name)
		for _, kw := range focus {
			if strings.Contains(name, strings.ToLower(kw)) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func finding(kind model.Kind, sev model.Severity, field, title, desc string, conf, impact float64) model.Finding {
	return model.Finding{Anomaly: model.Anomaly{
		Kind:        kind,
		Severity:    sev,
		Field:       field,
		Title:       title,
		Description: desc,
		Confidence:  conf,
		ImpactScore: impact,
	}}
}

// RangeExcursion flags fields whose extremes sit more than three standard
// deviations from the mean.
func RangeExcursion(req Request, focus []string) []model.Finding {
	var out []model.Finding
	for _, f := range focused(req.Profile, focus) {
		if *f.Std == 0 {
			continue
		}
		up := (*f.Max - *f.Mean) / *f.Std
		down := (*f.Mean - *f.Min) / *f.Std
		z := math.Max(up, down)
		if z <= 3 {
			continue
		}
		sev := model.SeverityMedium
		if z > 5 {
			sev = model.SeverityHigh
		}
		out = append(out, finding(model.KindStatisticalOutlier, sev, f.Name,
			fmt.Sprintf("Extreme excursion in %s", f.Name),
			fmt.Sprintf("%s reaches %.1f standard deviations from its mean (min %.4g, max %.4g, mean %.4g).", f.Name, z, *f.Min, *f.Max, *f.Mean),
			0.6, math.Min(100, z*10)))
	}
	return out
}

// Variability flags fields whose coefficient of variation exceeds 0.5.
func Variability(req Request, focus []string) []model.Finding {
	var out []model.Finding
	for _, f := range focused(req.Profile, focus) {
		if *f.Mean == 0 {
			continue
		}
		cv := *f.Std / math.Abs(*f.Mean)
		if cv <= 0.5 {
			continue
		}
		sev := model.SeverityLow
		if cv > 1 {
			sev = model.SeverityMedium
		}
		out = append(out, finding(model.KindPatternAnomaly, sev, f.Name,
			fmt.Sprintf("High variability in %s", f.Name),
			fmt.Sprintf("%s has a coefficient of variation of %.2f.", f.Name, cv),
			0.5, math.Min(100, cv*30)))
	}
	return out
}

// StrongCoupling reports field pairs with |r| above 0.9 where at least one
// field is in focus.
func StrongCoupling(req Request, focus []string) []model.Finding {
	inFocus := map[string]bool{}
	for _, f := range focused(req.Profile, focus) {
		inFocus[f.Name] = true
	}
	keys := make([]string, 0, len(req.Profile.Correlations))
	for k := range req.Profile.Correlations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []model.Finding
	for _, k := range keys {
		r := req.Profile.Correlations[k]
		if math.Abs(r) <= 0.9 {
			continue
		}
		a, b, ok := strings.Cut(k, " vs ")
		if !ok || (!inFocus[a] && !inFocus[b]) {
			continue
		}
		f := finding(model.KindCorrelationBreak, model.SeverityLow, a,
			fmt.Sprintf("Tight coupling between %s and %s", a, b),
			fmt.Sprintf("%s and %s move together with r=%.2f; a fault in one is likely to propagate to the other.", a, b, r),
			0.55, math.Abs(r)*40)
		f.RelatedFields = []string{b}
		out = append(out, f)
	}
	return out
}

// DataQuality flags fields with more than 10% missing values.
func DataQuality(req Request, focus []string) []model.Finding {
	if req.Profile.RecordCount == 0 {
		return nil
	}
	var out []model.Finding
	for _, f := range req.Profile.Fields {
		if len(focus) > 0 && len(focused(profile.DataProfile{Fields: []profile.FieldProfile{f}}, focus)) == 0 {
			continue
		}
		share := float64(f.NullCount) / float64(req.Profile.RecordCount)
		if share <= 0.1 {
			continue
		}
		sev := model.SeverityLow
		if share > 0.3 {
			sev = model.SeverityMedium
		}
		out = append(out, finding(model.KindPatternAnomaly, sev, f.Name,
			fmt.Sprintf("Missing data in %s", f.Name),
			fmt.Sprintf("%.1f%% of %s readings are missing.", share*100, f.Name),
			0.8, share*60))
	}
	return out
}

// DistributionSkew flags fields whose mean and median disagree by more
// than half a standard deviation.
func DistributionSkew(req Request, focus []string) []model.Finding {
	var out []model.Finding
	for _, f := range focused(req.Profile, focus) {
		if *f.Std == 0 {
			continue
		}
		skew := (*f.Mean - *f.Median) / *f.Std
		if math.Abs(skew) <= 0.5 {
			continue
		}
		side := "high"
		if skew < 0 {
			side = "low"
		}
		out = append(out, finding(model.KindStatisticalOutlier, model.SeverityLow, f.Name,
			fmt.Sprintf("Skewed distribution in %s", f.Name),
			fmt.Sprintf("%s has a long %s tail: mean %.4g versus median %.4g.", f.Name, side, *f.Mean, *f.Median),
			0.5, math.Min(100, math.Abs(skew)*30)))
	}
	return out
}
