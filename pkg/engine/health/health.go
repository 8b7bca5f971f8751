// Package health folds anomalies and engineering margins into a single
// 0-100 health score.
package health

import (
	"math"

	"github.com/DrSkyle/assetpulse/pkg/config"
	"github.com/DrSkyle/assetpulse/pkg/model"
)

// Health states.
const (
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateCritical = "critical"
)

// State boundaries.
const (
	HealthyFloor  = 85.0
	DegradedFloor = 60.0
)

// Score starts at 100, subtracts a penalty per anomaly by severity and per
// margin by the first band it falls below, and clamps to [0, 100]. Nil
// penalty tables in cfg take their defaults.
func Score(anoms []model.Anomaly, margins []model.EngineeringMargin, cfg config.HealthConfig) float64 {
	cfg = cfg.Normalize()
	score := 100.0
	for _, a := range anoms {
		score -= cfg.SeverityPenalty[a.Severity.String()]
	}
	for _, m := range margins {
		score -= marginPenalty(m.MarginPercentage, cfg.MarginPenalties)
	}
	return math.Max(0, math.Min(100, score))
}

// marginPenalty expects bands ordered by BelowPct ascending.
func marginPenalty(pct float64, bands []config.MarginPenalty) float64 {
	for _, b := range bands {
		if pct < b.BelowPct {
			return b.Penalty
		}
	}
	return 0
}

// State maps a score to healthy (>= 85), degraded (>= 60) or critical.
func State(score float64) string {
	switch {
	case score >= HealthyFloor:
		return StateHealthy
	case score >= DegradedFloor:
		return StateDegraded
	default:
		return StateCritical
	}
}
