package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind classifies what a detector saw.
type Kind string

const (
	KindStatisticalOutlier Kind = "statistical_outlier"
	KindThresholdBreach    Kind = "threshold_breach"
	KindTrendChange        Kind = "trend_change"
	KindCorrelationBreak   Kind = "correlation_break"
	KindPatternAnomaly     Kind = "pattern_anomaly"
	KindRateOfChange       Kind = "rate_of_change"
)

// Kinds lists every anomaly kind in pipeline layer order.
var Kinds = []Kind{
	KindStatisticalOutlier,
	KindThresholdBreach,
	KindTrendChange,
	KindCorrelationBreak,
	KindPatternAnomaly,
	KindRateOfChange,
}

// ParseKind accepts the snake_case kind names.
func ParseKind(v string) (Kind, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, k := range Kinds {
		if string(k) == v {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown anomaly kind %q", v)
}

// Range is a closed [Min, Max] interval.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Width returns Max-Min.
func (r Range) Width() float64 { return r.Max - r.Min }

// Anomaly is one detector output for one field.
type Anomaly struct {
	ID              string   `json:"id"`
	Kind            Kind     `json:"kind"`
	Severity        Severity `json:"severity"`
	Field           string   `json:"field"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Value           Payload  `json:"value,omitempty"`
	ExpectedRange   *Range   `json:"expected_range,omitempty"`
	Confidence      float64  `json:"confidence"`
	ImpactScore     float64  `json:"impact_score"`
	RelatedFields   []string `json:"related_fields,omitempty"`
	PossibleCauses  []string `json:"possible_causes,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Finding is an anomaly-shaped output of a single finding source, before
// deduplication.
type Finding struct {
	Anomaly
	SourceName    string   `json:"source_name"`
	Perspective   string   `json:"perspective,omitempty"`
	RawReasoning  string   `json:"raw_reasoning,omitempty"`
	WebReferences []string `json:"web_references,omitempty"`
	Context       string   `json:"context,omitempty"`
}

// Fields returns the field plus related fields, without duplicates or
// empty names.
func (a Anomaly) Fields() []string {
	seen := make(map[string]bool, len(a.RelatedFields)+1)
	var out []string
	for _, f := range append([]string{a.Field}, a.RelatedFields...) {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

var idNamespace = uuid.MustParse("6f1c8a52-3d4e-4b8f-9a41-2c7d5e0b9f13")

// ContentID derives a stable identifier from the given parts.
func ContentID(parts ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(parts, "\x1f"))).String()
}

// StampID fills a.ID from its kind, field and title.
func (a *Anomaly) StampID() {
	a.ID = ContentID(string(a.Kind), a.Field, a.Title)
}

// AgentPerspective is one source's take on a unified anomaly.
type AgentPerspective struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// UnifiedAnomaly merges one or more overlapping findings.
type UnifiedAnomaly struct {
	ID                  string             `json:"id"`
	Kind                Kind               `json:"kind"`
	Severity            Severity           `json:"severity"`
	Title               string             `json:"title"`
	Description         string             `json:"description"`
	PossibleCauses      []string           `json:"possible_causes,omitempty"`
	Recommendations     []string           `json:"recommendations,omitempty"`
	AffectedFields      []string           `json:"affected_fields"`
	Confidence          float64            `json:"confidence"`
	ImpactScore         float64            `json:"impact_score"`
	ContributingSources []string           `json:"contributing_sources"`
	AgentPerspectives   []AgentPerspective `json:"agent_perspectives,omitempty"`
	MemberCount         int                `json:"member_count"`
}
