package sources

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"text/template"

	"github.com/DrSkyle/assetpulse/pkg/model"
)

// PromptBuilder renders the user prompt for a spec.
type PromptBuilder func(s Spec, req Request) (string, error)

const systemPrompt = `You are a reliability engineer reviewing telemetry from industrial equipment.
Reply with a single JSON object and nothing else.`

var promptTmpl = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`System: {{.SystemName}} (type {{.SystemType}})
Perspective: {{.Perspective}}
{{- if .Focus}}
Focus on fields related to: {{join .Focus ", "}}
{{- end}}

Dataset: {{.Records}} records, {{.FieldCount}} fields.
Field statistics:
{{- range .Fields}}
- {{.}}
{{- end}}
{{- if .Correlations}}
Strongest correlations:
{{- range .Correlations}}
- {{.}}
{{- end}}
{{- end}}
{{- if .Samples}}
Sample rows:
{{- range .Samples}}
- {{.}}
{{- end}}
{{- end}}
{{- if .Context}}
Operator context:
{{- range .Context}}
- {{.}}
{{- end}}
{{- end}}

Report anomalies visible from this perspective as:
{"findings":[{"kind":"{{.Kinds}}","severity":"critical|high|medium|low|info","field":"...","title":"...","description":"...","confidence":0.0,"impact_score":0,"related_fields":[],"possible_causes":[],"recommendations":[],"reasoning":"...","references":[]}]}
Return {"findings":[]} when nothing stands out.`))

type promptData struct {
	SystemName   string
	SystemType   string
	Perspective  string
	Focus        []string
	Records      int
	FieldCount   int
	Fields       []string
	Correlations []string
	Samples      []string
	Context      []string
	Kinds        string
}

const promptCorrelations = 8

// DefaultPrompt renders the shared template for any spec.
func DefaultPrompt(s Spec, req Request) (string, error) {
	d := promptData{
		SystemName:  req.SystemName,
		SystemType:  req.SystemType,
		Perspective: s.Perspective,
		Focus:       s.Focus,
		Records:     req.Profile.RecordCount,
		FieldCount:  req.Profile.FieldCount,
	}
	for _, f := range req.Profile.Fields {
		d.Fields = append(d.Fields, f.Describe())
	}
	d.Correlations = strongest(req.Profile.Correlations, promptCorrelations)
	for _, row := range req.Profile.SampleRows {
		d.Samples = append(d.Samples, sortedPairs(row))
	}
	keys := make([]string, 0, len(req.Context))
	for k := range req.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.Context = append(d.Context, k+": "+req.Context[k])
	}
	kinds := make([]string, len(model.Kinds))
	for i, k := range model.Kinds {
		kinds[i] = string(k)
	}
	d.Kinds = strings.Join(kinds, "|")

	var b strings.Builder
	if err := promptTmpl.Execute(&b, d); err != nil {
		return "", fmt.Errorf("render prompt for %s: %w", s.Name, err)
	}
	return b.String(), nil
}

func strongest(m map[string]float64, n int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := math.Abs(m[keys[i]]), math.Abs(m[keys[j]])
		if a != b {
			return a > b
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("%s: r=%.2f", k, m[k])
	}
	return out
}

func sortedPairs(row map[string]string) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + row[k]
	}
	return strings.Join(parts, ", ")
}

