package sources

// Spec declares one analysis perspective. The orchestrator treats every
// spec identically; only the data differs.
type Spec struct {
	Name        string
	Perspective string
	Focus       []string
	Prompt      PromptBuilder
	Fallback    FallbackFunc
}

var (
	statsFallback   = Combine(RangeExcursion, DistributionSkew)
	healthFallback  = Combine(RangeExcursion, Variability)
	qualityFallback = Combine(DataQuality, Variability)
)

// Catalog returns the built-in perspectives in scheduling order.
func Catalog() []Spec {
	return []Spec{
		{Name: "thermal", Perspective: "Thermal behaviour: overheating, cooling effectiveness and heat soak.",
			Focus: []string{"temp", "heat", "cool"}, Fallback: healthFallback},
		{Name: "vibration", Perspective: "Vibration and mechanical condition of rotating equipment.",
			Focus: []string{"vib", "accel", "rpm", "speed"}, Fallback: healthFallback},
		{Name: "electrical", Perspective: "Electrical supply, current draw and insulation health.",
			Focus: []string{"volt", "current", "amp", "power"}, Fallback: healthFallback},
		{Name: "hydraulic", Perspective: "Hydraulic and pneumatic pressure and flow integrity.",
			Focus: []string{"pressure", "flow", "psi", "bar"}, Fallback: healthFallback},
		{Name: "fatigue", Perspective: "Structural fatigue from cyclic load and stress accumulation.",
			Focus: []string{"load", "torque", "stress", "strain", "force"}, Fallback: statsFallback},
		{Name: "sensor-integrity", Perspective: "Sensor faults: stuck readings, drift, dropouts and noise.",
			Fallback: qualityFallback},
		{Name: "control-loop", Perspective: "Control loop stability, setpoint tracking and oscillation.",
			Focus: []string{"setpoint", "error", "position", "speed"}, Fallback: Combine(Variability, RangeExcursion)},
		{Name: "energy-efficiency", Perspective: "Energy use relative to useful output.",
			Focus: []string{"power", "energy", "current", "efficiency"}, Fallback: Combine(StrongCoupling, Variability)},
		{Name: "safety-compliance", Perspective: "Operation against safety limits and protective functions.",
			Fallback: RangeExcursion},
		{Name: "predictive-maintenance", Perspective: "Early indicators of component wear and remaining life.",
			Fallback: healthFallback},
		{Name: "root-cause", Perspective: "Causal chains linking symptoms across parameters.",
			Fallback: StrongCoupling},
		{Name: "data-quality", Perspective: "Completeness and plausibility of the recorded data.",
			Fallback: DataQuality},
		{Name: "pattern-recognition", Perspective: "Recurring patterns, cycles and regime changes.",
			Fallback: Combine(Variability, DistributionSkew)},
		{Name: "statistical-review", Perspective: "Distribution shape, outliers and summary statistics.",
			Fallback: statsFallback},
		{Name: "correlation", Perspective: "Relationships between parameters and their consistency.",
			Fallback: StrongCoupling},
		{Name: "lifecycle", Perspective: "Asset lifecycle stage and ageing signatures.",
			Focus: []string{"hours", "cycles", "age", "count"}, Fallback: statsFallback},
		{Name: "environmental", Perspective: "Ambient conditions influencing equipment behaviour.",
			Focus: []string{"ambient", "humid", "wind", "outdoor"}, Fallback: healthFallback},
		{Name: "operational-efficiency", Perspective: "Throughput, utilisation and idle time.",
			Focus: []string{"rate", "output", "throughput", "speed"}, Fallback: Combine(Variability, StrongCoupling)},
		{Name: "reliability", Perspective: "Failure likelihood and reliability trends.",
			Fallback: healthFallback},
		{Name: "cross-system", Perspective: "Interactions between subsystems and integration faults.",
			Fallback: StrongCoupling},
		{Name: "failure-mode", Perspective: "Known failure modes of this system type and their signatures.",
			Fallback: statsFallback},
		{Name: "forecasting", Perspective: "Where parameters are heading and when limits may be reached.",
			Fallback: Combine(DistributionSkew, Variability)},
		{Name: "load-profile", Perspective: "Duty cycle and load distribution.",
			Focus: []string{"load", "current", "torque", "power"}, Fallback: Combine(DistributionSkew, RangeExcursion)},
		{Name: "calibration", Perspective: "Calibration offsets, scaling errors and unit mismatches.",
			Fallback: Combine(DistributionSkew, DataQuality)},
		{Name: "regulatory", Perspective: "Evidence relevant to inspection and regulatory reporting.",
			Fallback: Combine(RangeExcursion, DataQuality)},
	}
}
