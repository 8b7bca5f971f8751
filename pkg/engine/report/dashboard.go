package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/version"
)

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>AssetPulse · {{.Result.SystemName}}</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
    <style>
        :root {
            --bg: #050505;
            --surface: rgba(255, 255, 255, 0.03);
            --border: rgba(255, 255, 255, 0.1);
            --primary: #00FF99;
            --warn: #FFB020;
            --danger: #FF3366;
            --text: #F8FAFC;
            --text-dim: #94A3B8;
        }
        * { box-sizing: border-box; }
        body {
            background: var(--bg);
            color: var(--text);
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
            margin: 0;
            padding: 40px;
            font-size: 14px;
        }
        .header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 32px; }
        .score { font-size: 48px; font-weight: 700; }
        .healthy { color: var(--primary); }
        .degraded { color: var(--warn); }
        .critical { color: var(--danger); }
        .card { background: var(--surface); border: 1px solid var(--border); border-radius: 12px; padding: 20px; margin-bottom: 24px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid var(--border); }
        th { color: var(--text-dim); font-weight: 500; }
        .dim { color: var(--text-dim); }
    </style>
</head>
<body>
    <div class="header">
        <div>
            <h1>{{.Result.SystemName}}</h1>
            <div class="dim">{{.Result.SystemType}} · {{.Result.Timestamp.Format "2006-01-02 15:04 MST"}} · assetpulse {{.Version}}</div>
        </div>
        <div class="score {{.Result.HealthState}}">{{printf "%.0f" .Result.HealthScore}}</div>
    </div>

    <div class="card">
        <p>{{.Result.Summary}}</p>
    </div>

    <div class="card">
        <h2>Anomalies</h2>
        <table>
            <tr><th>#</th><th>Severity</th><th>Title</th><th>Fields</th><th>Impact</th><th>Sources</th></tr>
            {{- range .Items}}
            <tr>
                <td>{{.Rank}}</td>
                <td class="{{.Severity}}">{{.Severity}}</td>
                <td>{{.Title}}</td>
                <td>{{join .AffectedFields ", "}}</td>
                <td>{{printf "%.0f" .ImpactScore}}</td>
                <td class="dim">{{join .Sources ", "}}</td>
            </tr>
            {{- end}}
        </table>
    </div>

    <div class="card">
        <h2>Engineering margins</h2>
        <canvas id="margins" height="120"></canvas>
    </div>

    <script>
        const labels = {{.MarginLabels}};
        const values = {{.MarginValues}};
        new Chart(document.getElementById('margins'), {
            type: 'bar',
            data: { labels: labels, datasets: [{ label: 'Margin %', data: values, backgroundColor: '#874BFD' }] },
            options: { indexAxis: 'y', scales: { x: { min: 0, max: 100 } } }
        });
    </script>
</body>
</html>`

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(dashboardHTML))

type dashboardData struct {
	Result       *model.AnalysisResult
	Items        []ExportItem
	Version      string
	MarginLabels template.JS
	MarginValues template.JS
}

// WriteHTML renders a standalone dashboard page. All result text is
// escaped by html/template; chart data is embedded as JSON, whose encoder
// escapes HTML metacharacters.
func WriteHTML(w io.Writer, res *model.AnalysisResult) error {
	labels := make([]string, len(res.Margins))
	values := make([]float64, len(res.Margins))
	for i, m := range res.Margins {
		labels[i] = m.Parameter
		values[i] = m.MarginPercentage
	}
	lj, err := json.Marshal(labels)
	if err != nil {
		return err
	}
	vj, err := json.Marshal(values)
	if err != nil {
		return err
	}

	data := dashboardData{
		Result:       res,
		Items:        Items(res),
		Version:      version.Current,
		MarginLabels: template.JS(lj),
		MarginValues: template.JS(vj),
	}
	if err := dashboardTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}
