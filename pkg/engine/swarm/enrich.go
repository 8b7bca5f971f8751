package swarm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/DrSkyle/assetpulse/pkg/engine/sources"
	"github.com/DrSkyle/assetpulse/pkg/model"
)

// Enrichment is the extra context attached to a finding.
type Enrichment struct {
	Context       string   `json:"context"`
	WebReferences []string `json:"references"`
}

// Enricher adds external context to a single finding.
type Enricher interface {
	Enrich(ctx context.Context, f model.Finding, req sources.Request) (Enrichment, error)
}

// Enrich sends the EnrichmentTopK most impactful findings to e
// concurrently, each under EnrichmentTimeout. Failures leave the finding
// untouched. Only Context and WebReferences change; the input slice is not
// modified.
func (o *Orchestrator) Enrich(ctx context.Context, findings []model.Finding, req sources.Request, e Enricher) []model.Finding {
	out := make([]model.Finding, len(findings))
	copy(out, findings)
	if e == nil || o.cfg.EnrichmentTopK == 0 || len(out) == 0 {
		return out
	}

	ctx, span := o.tracer.Start(ctx, "Orchestrator.Enrich")
	defer span.End()

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return out[idx[a]].ImpactScore > out[idx[b]].ImpactScore
	})
	if len(idx) > o.cfg.EnrichmentTopK {
		idx = idx[:o.cfg.EnrichmentTopK]
	}

	results := make([]Result[Enrichment], len(idx))
	var wg sync.WaitGroup
	for n, i := range idx {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[n] = WithTimeout(ctx, o.cfg.EnrichmentTimeout, func(c context.Context) (Enrichment, error) {
				return e.Enrich(c, out[i], req)
			})
		}()
	}
	wg.Wait()

	enriched := 0
	for n, i := range idx {
		r := results[n]
		if r.Err != nil {
			o.logger.Debug("enrichment failed", "finding", out[i].Title, "error", r.Err)
			continue
		}
		out[i].Context = r.Value.Context
		out[i].WebReferences = append([]string(nil), r.Value.WebReferences...)
		enriched++
	}
	o.logger.Debug("enrichment complete", "requested", len(idx), "enriched", enriched)
	return out
}

// CompleterEnricher asks a Completer for background on a finding.
type CompleterEnricher struct {
	Completer sources.Completer
}

const enrichSystem = `You research industrial equipment faults. Reply with a single JSON object and nothing else.`

// Enrich implements Enricher.
func (c CompleterEnricher) Enrich(ctx context.Context, f model.Finding, req sources.Request) (Enrichment, error) {
	if c.Completer == nil {
		return Enrichment{}, sources.ErrNoCompleter
	}
	prompt := fmt.Sprintf(`System type: %s
Finding: %s (%s, severity %s) on field %q.
%s
Give engineering background, typical causes on this kind of equipment and public references as:
{"context":"...","references":["https://..."]}`,
		req.SystemType, f.Title, f.Kind, f.Severity, f.Field, f.Description)

	text, err := c.Completer.Complete(ctx, sources.Completion{System: enrichSystem, Prompt: prompt, MaxTokens: 800})
	if err != nil {
		return Enrichment{}, err
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Enrichment{}, sources.ErrMalformedResponse
	}
	var en Enrichment
	if err := json.Unmarshal([]byte(text[start:end+1]), &en); err != nil {
		return Enrichment{}, fmt.Errorf("%w: %v", sources.ErrMalformedResponse, err)
	}
	return en, nil
}
