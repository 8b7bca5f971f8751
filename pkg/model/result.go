package model

import "time"

// MarginTrend describes how a margin is moving.
type MarginTrend string

const (
	TrendImproving MarginTrend = "improving"
	TrendStable    MarginTrend = "stable"
	TrendDegrading MarginTrend = "degrading"
)

// EngineeringMargin is the distance between recent behaviour and a
// design limit.
type EngineeringMargin struct {
	Component        string      `json:"component"`
	Parameter        string      `json:"parameter"`
	CurrentValue     float64     `json:"current_value"`
	DesignLimit      float64     `json:"design_limit"`
	MarginPercentage float64     `json:"margin_percentage"`
	Trend            MarginTrend `json:"trend"`
	SafetyCritical   bool        `json:"safety_critical"`
}

// BlindSpotKind distinguishes coverage gaps from data quality gaps.
type BlindSpotKind string

const (
	BlindSpotMissingParameter BlindSpotKind = "missing_parameter"
	BlindSpotDataQuality      BlindSpotKind = "data_quality"
)

// BlindSpot is something the analysis could not see.
type BlindSpot struct {
	Kind           BlindSpotKind `json:"kind"`
	Parameter      string        `json:"parameter"`
	Severity       Severity      `json:"severity"`
	NullPercentage float64       `json:"null_percentage,omitempty"`
	Description    string        `json:"description"`
}

// Recommendation is a prioritised follow-up action.
type Recommendation struct {
	Priority Priority `json:"priority"`
	Field    string   `json:"field,omitempty"`
	Action   string   `json:"action"`
}

// TrendInfo is the per-field trend map entry.
type TrendInfo struct {
	Direction Direction `json:"direction"`
	ChangePct float64   `json:"change_pct"`
	Volatile  bool      `json:"volatile"`
}

// Outcome of one finding source in one run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeError    Outcome = "error"
	OutcomeTimedOut Outcome = "timed_out"
	OutcomeNotRun   Outcome = "not_run"
)

// SourceStatus reports what happened to one registered source.
type SourceStatus struct {
	Name         string        `json:"name"`
	Outcome      Outcome       `json:"outcome"`
	Count        int           `json:"count"`
	Message      string        `json:"message,omitempty"`
	Perspective  string        `json:"perspective,omitempty"`
	UsedFallback bool          `json:"used_fallback"`
	Duration     time.Duration `json:"duration"`
}

// AnalysisResult is the immutable output of one run.
type AnalysisResult struct {
	ID              string               `json:"id"`
	SystemType      string               `json:"system_type"`
	SystemName      string               `json:"system_name"`
	HealthScore     float64              `json:"health_score"`
	HealthState     string               `json:"health_state"`
	Anomalies       []Anomaly            `json:"anomalies"`
	Unified         []UnifiedAnomaly     `json:"unified_anomalies"`
	Margins         []EngineeringMargin  `json:"engineering_margins"`
	BlindSpots      []BlindSpot          `json:"blind_spots"`
	Correlations    map[string]float64   `json:"correlations"`
	Trends          map[string]TrendInfo `json:"trends"`
	Insights        []string             `json:"insights"`
	Summary         string               `json:"summary"`
	Recommendations []Recommendation     `json:"recommendations"`
	Sources         []SourceStatus       `json:"sources"`
	Timestamp       time.Time            `json:"timestamp"`
}
