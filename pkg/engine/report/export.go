// Package report renders an AnalysisResult as JSON, CSV or a standalone
// HTML page.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/model"
)

// Format selects an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// ParseFormat accepts json, csv and html.
func ParseFormat(v string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(v))); f {
	case FormatJSON, FormatCSV, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q", v)
}

// ExportItem is one row of the ranked anomaly table.
type ExportItem struct {
	Rank           int      `json:"rank"`
	ID             string   `json:"id"`
	Severity       string   `json:"severity"`
	Kind           string   `json:"kind"`
	Title          string   `json:"title"`
	AffectedFields []string `json:"affected_fields"`
	ImpactScore    float64  `json:"impact_score"`
	Confidence     float64  `json:"confidence"`
	Sources        []string `json:"sources"`
	Recommendation string   `json:"recommendation"`
}

// Items flattens the unified anomalies in rank order.
func Items(res *model.AnalysisResult) []ExportItem {
	items := make([]ExportItem, 0, len(res.Unified))
	for i, u := range res.Unified {
		rec := ""
		if len(u.Recommendations) > 0 {
			rec = u.Recommendations[0]
		}
		items = append(items, ExportItem{
			Rank:           i + 1,
			ID:             u.ID,
			Severity:       u.Severity.String(),
			Kind:           string(u.Kind),
			Title:          u.Title,
			AffectedFields: u.AffectedFields,
			ImpactScore:    u.ImpactScore,
			Confidence:     u.Confidence,
			Sources:        u.ContributingSources,
			Recommendation: rec,
		})
	}
	return items
}

// Write encodes res in the given format.
func Write(w io.Writer, res *model.AnalysisResult, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatCSV:
		return WriteCSV(w, res)
	case FormatHTML:
		return WriteHTML(w, res)
	}
	return fmt.Errorf("unknown report format %q", f)
}

// WriteFile writes res to path in the given format.
func WriteFile(path string, res *model.AnalysisResult, f Format) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(file, res, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteCSV writes the ranked anomaly table.
func WriteCSV(w io.Writer, res *model.AnalysisResult) error {
	cw := csv.NewWriter(w)

	header := []string{
		"rank",
		"id",
		"severity",
		"kind",
		"title",
		"affected_fields",
		"impact_score",
		"confidence",
		"sources",
		"recommendation",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, item := range Items(res) {
		record := []string{
			fmt.Sprintf("%d", item.Rank),
			item.ID,
			item.Severity,
			item.Kind,
			item.Title,
			strings.Join(item.AffectedFields, ";"),
			fmt.Sprintf("%.1f", item.ImpactScore),
			fmt.Sprintf("%.2f", item.Confidence),
			strings.Join(item.Sources, ";"),
			item.Recommendation,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the full result, indented.
func WriteJSON(w io.Writer, res *model.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
