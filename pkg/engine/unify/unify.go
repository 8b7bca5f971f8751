// Package unify merges overlapping findings from many sources into a ranked
// list of unified anomalies.
package unify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/config"
	"github.com/DrSkyle/assetpulse/pkg/model"
)

// PipelineSource names findings converted from pipeline anomalies.
const PipelineSource = "statistical-pipeline"

// FromAnomalies wraps pipeline anomalies as findings from source.
func FromAnomalies(anoms []model.Anomaly, source string) []model.Finding {
	out := make([]model.Finding, len(anoms))
	for i, a := range anoms {
		out[i] = model.Finding{
			Anomaly:     a,
			SourceName:  source,
			Perspective: "Statistical detection pipeline",
		}
	}
	return out
}

// Unifier groups and merges findings.
type Unifier struct {
	cfg config.UnifyConfig
}

// New returns a unifier with cfg normalized.
func New(cfg config.UnifyConfig) *Unifier {
	return &Unifier{cfg: cfg.Normalize()}
}

// Unify merges findings with the default caps, keeping the topK most
// impactful groups.
func Unify(findings []model.Finding, topK int) []model.UnifiedAnomaly {
	cfg := config.DefaultUnifyConfig()
	cfg.TopK = topK
	return New(cfg).Unify(findings)
}

type group struct {
	members []model.Finding
	fields  []string
	words   map[string]struct{}
}

// Unify makes a single left-to-right pass: each finding joins the first
// group whose first member has the same field set (and, for findings with
// no fields, the same kind) or a sufficiently overlapping title. Groups are
// ranked by impact, ties keeping first-seen order.
func (u *Unifier) Unify(findings []model.Finding) []model.UnifiedAnomaly {
	var groups []*group
	for _, f := range findings {
		fields := f.Fields()
		words := titleWords(f.Title)
		var target *group
		for _, g := range groups {
			if u.matches(g, f, fields, words) {
				target = g
				break
			}
		}
		if target == nil {
			target = &group{fields: fields, words: words}
			groups = append(groups, target)
		}
		target.members = append(target.members, f)
	}

	out := make([]model.UnifiedAnomaly, len(groups))
	for i, g := range groups {
		out[i] = u.merge(g.members)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ImpactScore > out[j].ImpactScore
	})
	if len(out) > u.cfg.TopK {
		out = out[:u.cfg.TopK]
	}
	return out
}

func (u *Unifier) matches(g *group, f model.Finding, fields []string, words map[string]struct{}) bool {
	first := g.members[0]
	if sameSet(g.fields, fields) {
		if len(fields) > 0 || first.Kind == f.Kind {
			return true
		}
	}
	return overlap(g.words, words) > u.cfg.TitleOverlap
}

func (u *Unifier) merge(members []model.Finding) model.UnifiedAnomaly {
	primary := members[0]
	for _, m := range members[1:] {
		if m.Severity > primary.Severity {
			primary = m
		}
	}

	ua := model.UnifiedAnomaly{
		Kind:        primary.Kind,
		Severity:    primary.Severity,
		Title:       primary.Title,
		Description: primary.Description,
		MemberCount: len(members),
	}

	causes := newDedup(u.cfg.MaxCauses)
	recs := newDedup(u.cfg.MaxCauses)
	fieldSeen := map[string]bool{}
	sourceSeen := map[string]bool{}
	for _, m := range members {
		ua.Confidence = max(ua.Confidence, m.Confidence)
		ua.ImpactScore = max(ua.ImpactScore, m.ImpactScore)
		causes.add(m.PossibleCauses...)
		recs.add(m.Recommendations...)
		for _, f := range m.Fields() {
			if !fieldSeen[f] {
				fieldSeen[f] = true
				ua.AffectedFields = append(ua.AffectedFields, f)
			}
		}
		if m.SourceName == "" || sourceSeen[m.SourceName] {
			continue
		}
		sourceSeen[m.SourceName] = true
		ua.ContributingSources = append(ua.ContributingSources, m.SourceName)
		if len(ua.AgentPerspectives) < u.cfg.MaxPerspective {
			text := m.RawReasoning
			if text == "" {
				text = m.Description
			}
			ua.AgentPerspectives = append(ua.AgentPerspectives, model.AgentPerspective{Source: m.SourceName, Text: text})
		}
	}
	ua.PossibleCauses = causes.items
	ua.Recommendations = recs.items
	if ua.AffectedFields == nil {
		ua.AffectedFields = []string{}
	}

	if len(members) > 1 && len(ua.ContributingSources) > 0 {
		sentence := fmt.Sprintf("Corroborated by %d sources: %s.", len(ua.ContributingSources), strings.Join(ua.ContributingSources, ", "))
		if ua.Description == "" {
			ua.Description = sentence
		} else {
			ua.Description = strings.TrimSpace(ua.Description) + " " + sentence
		}
	}

	ua.ID = model.ContentID("unified", string(ua.Kind), ua.Title, strings.Join(ua.AffectedFields, ","))
	return ua
}

type dedup struct {
	limit int
	seen  map[string]bool
	items []string
}

func newDedup(limit int) *dedup {
	return &dedup{limit: limit, seen: map[string]bool{}}
}

// add keeps the first spelling of each case-insensitive value.
func (d *dedup) add(values ...string) {
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || d.seen[key] || len(d.items) >= d.limit {
			continue
		}
		d.seen[key] = true
		d.items = append(d.items, v)
	}
}

func titleWords(title string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(title)) {
		out[w] = struct{}{}
	}
	return out
}

// overlap is the shared word count relative to the smaller word set.
func overlap(a, b map[string]struct{}) float64 {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	if len(small) == 0 {
		return 0
	}
	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if !set[v] {
			return false
		}
	}
	return true
}
