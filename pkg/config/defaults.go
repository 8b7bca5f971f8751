// Package config defines the tunable thresholds, budgets and penalties of
// an analysis run together with their defaults.
package config

import "time"

// OrchestratorConfig bounds how finding sources are scheduled.
type OrchestratorConfig struct {
	// BatchSize is the number of sources launched concurrently.
	BatchSize int `mapstructure:"batch_size"`
	// SourceTimeout caps one source call.
	SourceTimeout time.Duration `mapstructure:"source_timeout"`
	// GlobalTimeout is the wall-clock budget for all batches.
	GlobalTimeout time.Duration `mapstructure:"global_timeout"`
	// MinBatchBudget is the floor of the per-batch wait.
	MinBatchBudget time.Duration `mapstructure:"min_batch_budget"`
	// BatchCooldown is slept between consecutive batches.
	BatchCooldown time.Duration `mapstructure:"batch_cooldown"`
	// EnrichmentTopK is how many findings get external context. 0 disables.
	EnrichmentTopK int `mapstructure:"enrichment_top_k"`
	// EnrichmentTimeout caps one enrichment call.
	EnrichmentTimeout time.Duration `mapstructure:"enrichment_timeout"`
}

// OutlierThreshold pairs a z-score with the severity it implies.
type OutlierThreshold struct {
	Severity string  `mapstructure:"severity"`
	Z        float64 `mapstructure:"z"`
}

// DetectionConfig holds the fixed heuristics of the statistical layers.
type DetectionConfig struct {
	// MinSamples is the per-field floor below which a layer skips the field.
	MinSamples int `mapstructure:"min_samples"`
	// OutlierThresholds must be sorted by Z descending.
	OutlierThresholds []OutlierThreshold `mapstructure:"outlier_thresholds"`
	// BreachBands are pct-beyond-limit cut points (exclusive) for
	// Critical, High and Medium; anything else is Low.
	BreachCritical float64 `mapstructure:"breach_critical_pct"`
	BreachHigh     float64 `mapstructure:"breach_high_pct"`
	BreachMedium   float64 `mapstructure:"breach_medium_pct"`
	// TrendStablePct is the +/- band of a stable direction.
	TrendStablePct float64 `mapstructure:"trend_stable_pct"`
	// TrendAnomalyPct flags critical parameters whose half-means move more.
	TrendAnomalyPct float64 `mapstructure:"trend_anomaly_pct"`
	// TrendHighPct raises a trend anomaly to High.
	TrendHighPct float64 `mapstructure:"trend_high_pct"`
	// VolatilityRatio flags second-half std above this multiple.
	VolatilityRatio float64 `mapstructure:"volatility_ratio"`
	// CorrelationBreak is the |r| an inverted relationship must exceed.
	CorrelationBreak float64 `mapstructure:"correlation_break"`
	// JumpSigma is the number of std above mean |delta| for a jump.
	JumpSigma float64 `mapstructure:"jump_sigma"`
	// JumpMaxShare keeps only rare jumps (fraction of samples).
	JumpMaxShare float64 `mapstructure:"jump_max_share"`
	// StuckUniqueRatio and StuckMinSamples define a stuck sensor.
	StuckUniqueRatio float64 `mapstructure:"stuck_unique_ratio"`
	StuckMinSamples  int     `mapstructure:"stuck_min_samples"`
	// RateSigma and RateMinShare define second-derivative events.
	RateSigma    float64 `mapstructure:"rate_sigma"`
	RateMinShare float64 `mapstructure:"rate_min_share"`
	// MarginWindow is the number of trailing samples averaged as "current".
	MarginWindow int `mapstructure:"margin_window"`
	// NullGapPct marks columns with more nulls as data quality gaps.
	NullGapPct float64 `mapstructure:"null_gap_pct"`
	// MaxQualityGaps bounds the data-quality blind spot list.
	MaxQualityGaps int `mapstructure:"max_quality_gaps"`
}

// HealthConfig holds the penalties folded into the health score.
type HealthConfig struct {
	SeverityPenalty map[string]float64 `mapstructure:"severity_penalty"`
	// MarginPenalties apply to the first band a margin falls below.
	MarginPenalties []MarginPenalty `mapstructure:"margin_penalties"`
}

// MarginPenalty subtracts Penalty when a margin is below BelowPct.
type MarginPenalty struct {
	BelowPct float64 `mapstructure:"below_pct"`
	Penalty  float64 `mapstructure:"penalty"`
}

// UnifyConfig bounds the merged anomaly list.
type UnifyConfig struct {
	TopK           int     `mapstructure:"top_k"`
	MaxCauses      int     `mapstructure:"max_causes"`
	MaxPerspective int     `mapstructure:"max_perspectives"`
	TitleOverlap   float64 `mapstructure:"title_overlap"`
}

// Config is the full analysis configuration.
type Config struct {
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Detection    DetectionConfig    `mapstructure:"detection"`
	Health       HealthConfig       `mapstructure:"health"`
	Unify        UnifyConfig        `mapstructure:"unify"`
}

// Defaults.
const (
	DefaultBatchSize     = 5
	DefaultSourceTimeout = 90 * time.Second
	DefaultGlobalTimeout = 300 * time.Second
	DefaultBatchCooldown = 12 * time.Second
	DefaultTopK          = 15
)

// DefaultOrchestratorConfig returns the production scheduling budget.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		BatchSize:         DefaultBatchSize,
		SourceTimeout:     DefaultSourceTimeout,
		GlobalTimeout:     DefaultGlobalTimeout,
		MinBatchBudget:    30 * time.Second,
		BatchCooldown:     DefaultBatchCooldown,
		EnrichmentTopK:    5,
		EnrichmentTimeout: 30 * time.Second,
	}
}

// DefaultDetectionConfig returns the fixed layer heuristics.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		MinSamples: 10,
		OutlierThresholds: []OutlierThreshold{
			{Severity: "critical", Z: 4.0},
			{Severity: "high", Z: 3.0},
			{Severity: "medium", Z: 2.5},
			{Severity: "low", Z: 2.0},
		},
		BreachCritical:   50,
		BreachHigh:       30,
		BreachMedium:     15,
		TrendStablePct:   5,
		TrendAnomalyPct:  20,
		TrendHighPct:     50,
		VolatilityRatio:  1.5,
		CorrelationBreak: 0.3,
		JumpSigma:        4,
		JumpMaxShare:     0.01,
		StuckUniqueRatio: 0.01,
		StuckMinSamples:  100,
		RateSigma:        3,
		RateMinShare:     0.02,
		MarginWindow:     10,
		NullGapPct:       20,
		MaxQualityGaps:   5,
	}
}

// DefaultHealthConfig returns the health score penalties.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		SeverityPenalty: map[string]float64{
			"critical": 25,
			"high":     15,
			"medium":   8,
			"low":      3,
			"info":     1,
		},
		MarginPenalties: []MarginPenalty{
			{BelowPct: 10, Penalty: 10},
			{BelowPct: 20, Penalty: 5},
			{BelowPct: 30, Penalty: 2},
		},
	}
}

// DefaultUnifyConfig returns the merge caps.
func DefaultUnifyConfig() UnifyConfig {
	return UnifyConfig{
		TopK:           DefaultTopK,
		MaxCauses:      5,
		MaxPerspective: 5,
		TitleOverlap:   0.5,
	}
}

// Default returns a Config with every section defaulted.
func Default() Config {
	return Config{
		Orchestrator: DefaultOrchestratorConfig(),
		Detection:    DefaultDetectionConfig(),
		Health:       DefaultHealthConfig(),
		Unify:        DefaultUnifyConfig(),
	}
}

// Normalize replaces unusable values with defaults. Zero cooldown and zero
// minimum batch budget are valid and kept.
func (c OrchestratorConfig) Normalize() OrchestratorConfig {
	d := DefaultOrchestratorConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = d.SourceTimeout
	}
	if c.GlobalTimeout <= 0 {
		c.GlobalTimeout = d.GlobalTimeout
	}
	if c.MinBatchBudget < 0 {
		c.MinBatchBudget = 0
	}
	if c.BatchCooldown < 0 {
		c.BatchCooldown = 0
	}
	if c.EnrichmentTopK < 0 {
		c.EnrichmentTopK = 0
	}
	if c.EnrichmentTimeout <= 0 {
		c.EnrichmentTimeout = d.EnrichmentTimeout
	}
	return c
}

// Normalize fills the caps of an unset UnifyConfig.
func (c UnifyConfig) Normalize() UnifyConfig {
	d := DefaultUnifyConfig()
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.MaxCauses <= 0 {
		c.MaxCauses = d.MaxCauses
	}
	if c.MaxPerspective <= 0 {
		c.MaxPerspective = d.MaxPerspective
	}
	if c.TitleOverlap <= 0 || c.TitleOverlap >= 1 {
		c.TitleOverlap = d.TitleOverlap
	}
	return c
}

// Normalize fills unset heuristics from DefaultDetectionConfig. A zero or
// negative value is treated as unset.
func (c DetectionConfig) Normalize() DetectionConfig {
	d := DefaultDetectionConfig()
	if c.MinSamples <= 0 {
		c.MinSamples = d.MinSamples
	}
	if len(c.OutlierThresholds) == 0 {
		c.OutlierThresholds = d.OutlierThresholds
	}
	if c.BreachCritical <= 0 || c.BreachHigh <= 0 || c.BreachMedium <= 0 {
		c.BreachCritical, c.BreachHigh, c.BreachMedium = d.BreachCritical, d.BreachHigh, d.BreachMedium
	}
	fill := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&c.TrendStablePct, d.TrendStablePct)
	fill(&c.TrendAnomalyPct, d.TrendAnomalyPct)
	fill(&c.TrendHighPct, d.TrendHighPct)
	fill(&c.VolatilityRatio, d.VolatilityRatio)
	fill(&c.CorrelationBreak, d.CorrelationBreak)
	fill(&c.JumpSigma, d.JumpSigma)
	fill(&c.JumpMaxShare, d.JumpMaxShare)
	fill(&c.StuckUniqueRatio, d.StuckUniqueRatio)
	fill(&c.RateSigma, d.RateSigma)
	fill(&c.RateMinShare, d.RateMinShare)
	fill(&c.NullGapPct, d.NullGapPct)
	if c.StuckMinSamples <= 0 {
		c.StuckMinSamples = d.StuckMinSamples
	}
	if c.MarginWindow <= 0 {
		c.MarginWindow = d.MarginWindow
	}
	if c.MaxQualityGaps <= 0 {
		c.MaxQualityGaps = d.MaxQualityGaps
	}
	return c
}

// Normalize fills nil penalty tables from DefaultHealthConfig. An empty
// non-nil table is kept and disables that penalty.
func (c HealthConfig) Normalize() HealthConfig {
	d := DefaultHealthConfig()
	if c.SeverityPenalty == nil {
		c.SeverityPenalty = d.SeverityPenalty
	}
	if c.MarginPenalties == nil {
		c.MarginPenalties = d.MarginPenalties
	}
	return c
}

// Normalize normalizes every section.
func (c Config) Normalize() Config {
	c.Orchestrator = c.Orchestrator.Normalize()
	c.Detection = c.Detection.Normalize()
	c.Health = c.Health.Normalize()
	c.Unify = c.Unify.Normalize()
	return c
}
