package model

// Payload is the kind-specific measurement attached to an anomaly. The set
// of implementations is closed; switch on the concrete type.
type Payload interface {
	PayloadKind() Kind
	payload()
}

// OutlierPayload backs KindStatisticalOutlier.
type OutlierPayload struct {
	Count int     `json:"outlier_count"`
	MaxZ  float64 `json:"max_z"`
}

// Direction of a breach or trend.
type Direction string

const (
	DirectionAbove      Direction = "above"
	DirectionBelow      Direction = "below"
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// ThresholdPayload backs KindThresholdBreach.
type ThresholdPayload struct {
	Observed  float64   `json:"observed"`
	Limit     float64   `json:"limit"`
	Count     int       `json:"count"`
	Direction Direction `json:"direction"`
	Pct       float64   `json:"pct_beyond"`
}

// TrendPayload backs KindTrendChange.
type TrendPayload struct {
	FirstHalfMean  float64   `json:"first_half_mean"`
	SecondHalfMean float64   `json:"second_half_mean"`
	ChangePct      float64   `json:"change_pct"`
	Direction      Direction `json:"direction"`
}

// CorrelationPayload backs KindCorrelationBreak.
type CorrelationPayload struct {
	FieldA   string  `json:"field_a"`
	FieldB   string  `json:"field_b"`
	Expected int     `json:"expected_sign"`
	Observed float64 `json:"observed_r"`
}

// Pattern names used by PatternPayload.
const (
	PatternJump  = "jump"
	PatternStuck = "stuck"
)

// PatternPayload backs KindPatternAnomaly.
type PatternPayload struct {
	Pattern     string  `json:"pattern"`
	Count       int     `json:"count"`
	UniqueRatio float64 `json:"unique_ratio"`
}

// RatePayload backs KindRateOfChange.
type RatePayload struct {
	Events    int     `json:"events"`
	EventPct  float64 `json:"event_pct"`
	Threshold float64 `json:"threshold"`
}

func (OutlierPayload) PayloadKind() Kind     { return KindStatisticalOutlier }
func (ThresholdPayload) PayloadKind() Kind   { return KindThresholdBreach }
func (TrendPayload) PayloadKind() Kind       { return KindTrendChange }
func (CorrelationPayload) PayloadKind() Kind { return KindCorrelationBreak }
func (PatternPayload) PayloadKind() Kind     { return KindPatternAnomaly }
func (RatePayload) PayloadKind() Kind        { return KindRateOfChange }

func (OutlierPayload) payload()     {}
func (ThresholdPayload) payload()   {}
func (TrendPayload) payload()       {}
func (CorrelationPayload) payload() {}
func (PatternPayload) payload()     {}
func (RatePayload) payload()        {}
