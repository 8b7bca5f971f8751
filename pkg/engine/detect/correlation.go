package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/DrSkyle/assetpulse/pkg/domain"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
)

// CorrelationLayer checks that domain-declared relationships still hold.
// A positive pair observed with r below -threshold is High; a negative
// pair observed with r above +threshold is Medium.
type CorrelationLayer struct{}

func (CorrelationLayer) Name() string { return "CorrelationBreaks" }

func (CorrelationLayer) Detect(ctx context.Context, in *Input) []model.Anomaly {
	if in.Knowledge == nil {
		return nil
	}
	var out []model.Anomaly
	for _, ec := range in.Knowledge.Correlations {
		colA, ok := domain.ColumnFor(ec.A, in.Fields())
		if !ok {
			continue
		}
		colB, ok := domain.ColumnFor(ec.B, without(in.Fields(), colA))
		if !ok {
			continue
		}
		if _, ok := in.usable(colA); !ok {
			continue
		}
		if _, ok := in.usable(colB); !ok {
			continue
		}
		r, ok := lookupCorrelation(in.correlations, colA, colB)
		if !ok {
			continue
		}

		var sev model.Severity
		switch {
		case ec.Sign > 0 && r < -in.Config.CorrelationBreak:
			sev = model.SeverityHigh
		case ec.Sign < 0 && r > in.Config.CorrelationBreak:
			sev = model.SeverityMedium
		default:
			continue
		}

		expected := "positive"
		if ec.Sign < 0 {
			expected = "negative"
		}
		out = append(out, model.Anomaly{
			Kind:     model.KindCorrelationBreak,
			Severity: sev,
			Field:    colA,
			Title:    fmt.Sprintf("Correlation break between %s and %s", colA, colB),
			Description: fmt.Sprintf("%s and %s are expected to have a %s relationship but the observed correlation is r=%.2f.",
				colA, colB, expected, r),
			Value: model.CorrelationPayload{
				FieldA:   colA,
				FieldB:   colB,
				Expected: ec.Sign,
				Observed: r,
			},
			RelatedFields: []string{colB},
			Confidence:    math.Min(0.95, 0.6+math.Abs(r)*0.35),
			ImpactScore:   math.Min(100, 30+math.Abs(r)*60),
		})
	}
	return out
}

func lookupCorrelation(m map[string]float64, a, b string) (float64, bool) {
	if r, ok := m[profile.PairKey(a, b)]; ok {
		return r, true
	}
	r, ok := m[profile.PairKey(b, a)]
	return r, ok
}

func without(names []string, drop string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != drop {
			out = append(out, n)
		}
	}
	return out
}
