package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/model"
)

// Executor runs one Spec against a Completer. It is the only Source
// implementation the catalog needs.
type Executor struct {
	spec      Spec
	completer Completer
	logger    *slog.Logger
}

// NewExecutor wraps spec. A nil completer makes Analyze serve the
// deterministic fallback.
func NewExecutor(spec Spec, c Completer, logger *slog.Logger) *Executor {
	if spec.Prompt == nil {
		spec.Prompt = DefaultPrompt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{spec: spec, completer: c, logger: logger}
}

func (e *Executor) Name() string        { return e.spec.Name }
func (e *Executor) Perspective() string { return e.spec.Perspective }

// Analyze asks the completer for findings from this perspective.
func (e *Executor) Analyze(ctx context.Context, req Request) ([]model.Finding, error) {
	if e.completer == nil {
		return e.Fallback(req), nil
	}
	prompt, err := e.spec.Prompt(e.spec, req)
	if err != nil {
		return nil, err
	}
	text, err := e.completer.Complete(ctx, Completion{System: systemPrompt, Prompt: prompt, MaxTokens: 2048})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.spec.Name, err)
	}
	findings, err := ParseFindings(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.spec.Name, err)
	}
	e.logger.Debug("source completed", "source", e.spec.Name, "findings", len(findings))
	return e.stamp(findings), nil
}

// Fallback runs the spec's deterministic generator.
func (e *Executor) Fallback(req Request) []model.Finding {
	if e.spec.Fallback == nil {
		return nil
	}
	return e.stamp(e.spec.Fallback(req, e.spec.Focus))
}

func (e *Executor) stamp(findings []model.Finding) []model.Finding {
	for i := range findings {
		f := &findings[i]
		f.SourceName = e.spec.Name
		f.Perspective = e.spec.Perspective
		f.ID = model.ContentID(e.spec.Name, string(f.Kind), f.Field, f.Title)
	}
	return findings
}

// ErrMalformedResponse is returned when a completion holds no JSON object.
var ErrMalformedResponse = errors.New("malformed source response")

type wireFinding struct {
	Kind            string   `json:"kind"`
	Severity        string   `json:"severity"`
	Field           string   `json:"field"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Confidence      float64  `json:"confidence"`
	ImpactScore     float64  `json:"impact_score"`
	RelatedFields   []string `json:"related_fields"`
	PossibleCauses  []string `json:"possible_causes"`
	Recommendations []string `json:"recommendations"`
	Reasoning       string   `json:"reasoning"`
	References      []string `json:"references"`
}

type wireResponse struct {
	Findings []wireFinding `json:"findings"`
}

// ParseFindings extracts the JSON object from a completion, tolerating
// surrounding prose or code fences. Entries without a title are dropped;
// unknown kinds and severities degrade to pattern_anomaly and medium.
func ParseFindings(text string) ([]model.Finding, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, ErrMalformedResponse
	}
	var resp wireResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := make([]model.Finding, 0, len(resp.Findings))
	for _, w := range resp.Findings {
		if strings.TrimSpace(w.Title) == "" {
			continue
		}
		kind, err := model.ParseKind(w.Kind)
		if err != nil {
			kind = model.KindPatternAnomaly
		}
		sev, err := model.ParseSeverity(w.Severity)
		if err != nil {
			sev = model.SeverityMedium
		}
		out = append(out, model.Finding{
			Anomaly: model.Anomaly{
				Kind:            kind,
				Severity:        sev,
				Field:           w.Field,
				Title:           w.Title,
				Description:     w.Description,
				Confidence:      clamp(w.Confidence, 0, 1),
				ImpactScore:     clamp(w.ImpactScore, 0, 100),
				RelatedFields:   w.RelatedFields,
				PossibleCauses:  w.PossibleCauses,
				Recommendations: w.Recommendations,
			},
			RawReasoning:  w.Reasoning,
			WebReferences: w.References,
		})
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
