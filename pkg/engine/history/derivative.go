package history

import (
	"fmt"
	"time"

	"github.com/DrSkyle/assetpulse/pkg/engine/health"
)

// Alert thresholds.
const (
	dropAlertPerHour  = 1.0 // health points lost per hour
	accelAlertPerHour = 0.5 // points/h²
)

// Trend contains derived health signals across runs.
type Trend struct {
	Current      float64
	Velocity     float64 // points per hour, negative when degrading
	Acceleration float64 // change of velocity per hour

	Projected24h float64
	// TimeToCritical is -1 when the score is not heading below the
	// critical floor.
	TimeToCritical time.Duration

	Alerts []string
}

// Analyze derives the health trend from snapshots ordered oldest first.
func Analyze(snaps []Snapshot) Trend {
	if len(snaps) == 0 {
		return Trend{TimeToCritical: -1}
	}
	current := snaps[len(snaps)-1]
	if len(snaps) < 2 {
		return Trend{Current: current.HealthScore, Projected24h: current.HealthScore, TimeToCritical: -1}
	}
	prev := snaps[len(snaps)-2]

	hours := current.Timestamp.Sub(prev.Timestamp).Hours()
	if hours <= 0 {
		return Trend{Current: current.HealthScore, Projected24h: current.HealthScore, TimeToCritical: -1}
	}
	velocity := (current.HealthScore - prev.HealthScore) / hours

	acceleration := 0.0
	if len(snaps) >= 3 {
		prev2 := snaps[len(snaps)-3]
		if h2 := prev.Timestamp.Sub(prev2.Timestamp).Hours(); h2 > 0 {
			prevVelocity := (prev.HealthScore - prev2.HealthScore) / h2
			acceleration = (velocity - prevVelocity) / hours
		}
	}

	projected := current.HealthScore + velocity*24 + 0.5*acceleration*24*24
	projected = max(0, min(100, projected))

	var ttc time.Duration = -1
	if velocity < 0 {
		headroom := current.HealthScore - health.DegradedFloor
		if headroom > 0 {
			ttc = time.Duration(headroom / -velocity * float64(time.Hour))
		} else {
			ttc = 0
		}
	}

	var alerts []string
	if velocity <= -dropAlertPerHour {
		alerts = append(alerts, fmt.Sprintf("[CRITICAL] HEALTH DROP: score falling %.1f points per hour", -velocity))
	}
	if acceleration <= -accelAlertPerHour {
		alerts = append(alerts, fmt.Sprintf("[WARNING] ACCELERATING DEGRADATION: decline steepening by %.1f points/h²", -acceleration))
	}
	if ttc > 0 && ttc < 24*time.Hour {
		alerts = append(alerts, fmt.Sprintf("[CRITICAL] CRITICAL STATE AHEAD: health predicted below %.0f in %s", health.DegradedFloor, ttc.Round(time.Minute)))
	}

	return Trend{
		Current:        current.HealthScore,
		Velocity:       velocity,
		Acceleration:   acceleration,
		Projected24h:   projected,
		TimeToCritical: ttc,
		Alerts:         alerts,
	}
}
