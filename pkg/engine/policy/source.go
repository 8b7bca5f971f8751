package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/engine/sources"
	"github.com/DrSkyle/assetpulse/pkg/model"
)

// RuleSource schedules a compiled rule set as a finding source.
type RuleSource struct {
	name        string
	perspective string
	engine      *CELEngine
}

// NewRuleSource compiles every rule in f.
func NewRuleSource(f *RuleFile) (*RuleSource, error) {
	e, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	if err := e.Compile(f.Rules); err != nil {
		return nil, err
	}
	return &RuleSource{name: f.Name, perspective: f.Perspective, engine: e}, nil
}

var _ sources.Source = (*RuleSource)(nil)
var _ sources.Fallbacker = (*RuleSource)(nil)

func (s *RuleSource) Name() string        { return s.name }
func (s *RuleSource) Perspective() string { return s.perspective }

// Analyze emits one finding per (rule, field) match.
func (s *RuleSource) Analyze(ctx context.Context, req sources.Request) ([]model.Finding, error) {
	var out []model.Finding
	for _, f := range req.Profile.NumericFields() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		for _, r := range s.engine.Evaluate(ctx, FieldVars(f, req.Profile.RecordCount)) {
			if !fieldSelected(f.Name, r.Fields) {
				continue
			}
			out = append(out, s.finding(r, f.Name))
		}
	}
	return out, nil
}

// Fallback re-runs the rules without a deadline; evaluation is pure.
func (s *RuleSource) Fallback(req sources.Request) []model.Finding {
	out, _ := s.Analyze(context.Background(), req)
	return out
}

func (s *RuleSource) finding(r Rule, field string) model.Finding {
	kind, _ := model.ParseKind(r.Kind)
	sev, _ := model.ParseSeverity(r.Severity)
	desc := r.Description
	if desc == "" {
		desc = fmt.Sprintf("Rule %s matched %s.", r.ID, field)
	}
	f := model.Finding{
		Anomaly: model.Anomaly{
			Kind:        kind,
			Severity:    sev,
			Field:       field,
			Title:       fmt.Sprintf("%s: %s", r.Title, field),
			Description: desc,
			Confidence:  1,
			ImpactScore: impactFor(sev),
		},
		SourceName:   s.name,
		Perspective:  s.perspective,
		RawReasoning: r.Condition,
	}
	if r.Recommendation != "" {
		f.Recommendations = []string{r.Recommendation}
	}
	f.ID = model.ContentID(s.name, r.ID, field)
	return f
}

func impactFor(s model.Severity) float64 {
	return float64(s+1) * 20
}

func fieldSelected(name string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, f := range filter {
		if strings.Contains(lower, strings.ToLower(f)) {
			return true
		}
	}
	return false
}
