package report

import (
	"time"

	"github.com/DrSkyle/assetpulse/pkg/model"
)

// Summary is the headline view of a result used by notifiers and the CLI.
type Summary struct {
	SystemName    string
	SystemType    string
	HealthScore   float64
	HealthState   string
	Anomalies     int
	Critical      int
	High          int
	Unified       int
	SourcesOK     int
	SourcesFailed int
	SourcesNotRun int
	Top           []model.UnifiedAnomaly
	Timestamp     time.Time
}

// summaryTop is how many unified anomalies a Summary carries.
const summaryTop = 5

// Summarize condenses res.
func Summarize(res *model.AnalysisResult) Summary {
	s := Summary{
		SystemName:  res.SystemName,
		SystemType:  res.SystemType,
		HealthScore: res.HealthScore,
		HealthState: res.HealthState,
		Anomalies:   len(res.Anomalies),
		Unified:     len(res.Unified),
		Timestamp:   res.Timestamp,
	}
	for _, u := range res.Unified {
		switch u.Severity {
		case model.SeverityCritical:
			s.Critical++
		case model.SeverityHigh:
			s.High++
		}
	}
	for _, st := range res.Sources {
		switch st.Outcome {
		case model.OutcomeSuccess:
			s.SourcesOK++
		case model.OutcomeNotRun:
			s.SourcesNotRun++
		default:
			s.SourcesFailed++
		}
	}
	n := min(summaryTop, len(res.Unified))
	s.Top = res.Unified[:n]
	return s
}
