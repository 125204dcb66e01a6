package triage

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ScoringConfig carries the empirically tuned blend constants. They have no
// analytic derivation; keeping them as data lets clinical staff recalibrate
// without a code change. Defaults reproduce the values the models were
// validated against.
type ScoringConfig struct {
	// Blend weights applied to the normalized components. Expected to sum
	// to 100 but not enforced; the final score is clamped regardless.
	ModelWeight   float64 `yaml:"model_weight"`
	VitalWeight   float64 `yaml:"vital_weight"`
	SymptomWeight float64 `yaml:"symptom_weight"`
	ChronicWeight float64 `yaml:"chronic_weight"`

	// Probability-band adjustments.
	LowProbability     float64 `yaml:"low_probability"`
	LowProbabilityCut  float64 `yaml:"low_probability_cut"`
	HighProbability    float64 `yaml:"high_probability"`
	HighProbabilityAdd float64 `yaml:"high_probability_add"`

	// Neuro compensation for stroke-history presentations that otherwise
	// score near zero under the base formula.
	NeuroModifier float64 `yaml:"neuro_modifier"`
	NeuroFloor    float64 `yaml:"neuro_floor"`

	// Hard floor for unconsciousness or hypoxic respiratory distress.
	CriticalFloor float64 `yaml:"critical_floor"`

	// Sub-score caps (points totals divide by these).
	VitalCap   float64 `yaml:"vital_cap"`
	SymptomCap float64 `yaml:"symptom_cap"`
	ChronicCap float64 `yaml:"chronic_cap"`

	// Risk level cutoffs, evaluated after all adjustments.
	HighCutoff   float64 `yaml:"high_cutoff"`
	MediumCutoff float64 `yaml:"medium_cutoff"`

	// Department override confidences and the score-based Emergency trigger.
	RuleFallbackConfidence float64 `yaml:"rule_fallback_confidence"`
	CardiacOverrideFloor   float64 `yaml:"cardiac_override_floor"`
	NeuroOverrideFloor     float64 `yaml:"neuro_override_floor"`
	EmergencyOverrideFloor float64 `yaml:"emergency_override_floor"`
	EmergencyScoreCutoff   float64 `yaml:"emergency_score_cutoff"`
}

// DefaultScoringConfig returns the calibrated production constants.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		ModelWeight:   55,
		VitalWeight:   25,
		SymptomWeight: 15,
		ChronicWeight: 5,

		LowProbability:     0.30,
		LowProbabilityCut:  8,
		HighProbability:    0.75,
		HighProbabilityAdd: 6,

		NeuroModifier: 0.2,
		NeuroFloor:    45,
		CriticalFloor: 78,

		VitalCap:   43,
		SymptomCap: 45,
		ChronicCap: 40,

		HighCutoff:   68,
		MediumCutoff: 35,

		RuleFallbackConfidence: 0.55,
		CardiacOverrideFloor:   0.7,
		NeuroOverrideFloor:     0.7,
		EmergencyOverrideFloor: 0.8,
		EmergencyScoreCutoff:   85,
	}
}

// LoadScoringConfig reads overrides from a YAML file on top of the defaults.
func LoadScoringConfig(path string) (ScoringConfig, error) {
	cfg := DefaultScoringConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read scoring config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse scoring config: %w", err)
	}
	return cfg, nil
}

// vitalAbnormalityScore totals the abnormal-vital points and normalizes by
// the configured cap.
func vitalAbnormalityScore(f *FeatureVector, cfg *ScoringConfig) float64 {
	points := 0.0
	if f.SystolicBP > 160 {
		points += 10
	}
	if f.OxygenSaturation < 90 {
		points += 15
	}
	if f.HeartRate > 120 {
		points += 10
	}
	if f.Temperature > 39 {
		points += 8
	}
	return capRatio(points, cfg.VitalCap)
}

func criticalSymptomScore(f *FeatureVector, cfg *ScoringConfig) float64 {
	points := 0.0
	if f.LossOfConsciousness == 1 {
		points += 15
	}
	if f.ChestPain == 1 {
		points += 10
	}
	if f.DifficultyBreathing == 1 {
		points += 12
	}
	if f.Confusion == 1 {
		points += 8
	}
	if f.SevereHeadache == 1 {
		points += 6
	}
	if f.Dizziness == 1 {
		points += 4
	}
	return capRatio(points, cfg.SymptomCap)
}

func chronicConditionScore(f *FeatureVector, cfg *ScoringConfig) float64 {
	points := 0.0
	if f.HeartDisease == 1 {
		points += 10
	}
	if f.KidneyDisease == 1 {
		points += 8
	}
	if f.Diabetes == 1 {
		points += 6
	}
	if f.Hypertension == 1 {
		points += 5
	}
	if f.Cancer == 1 {
		points += 7
	}
	if f.Asthma == 1 {
		points += 4
	}
	return capRatio(points, cfg.ChronicCap)
}

func neuroModifier(f *FeatureVector, ctx *Context, cfg *ScoringConfig) float64 {
	if ctx.StrokeHistory && ctx.AnyNeuroSignal(f) {
		return cfg.NeuroModifier
	}
	return 0
}

// criticalPresentation is the red-flag combination that floors priority and
// forces Emergency: unconsciousness, or respiratory distress with hypoxia.
func criticalPresentation(f *FeatureVector) bool {
	return f.LossOfConsciousness == 1 || (f.DifficultyBreathing == 1 && f.OxygenSaturation < 90)
}

// blendPriority combines the model probability with the rule-based
// components into the final 0-100 priority score. Adjustments apply in a
// fixed order; the floors override the blend, never the reverse.
func blendPriority(prob float64, f *FeatureVector, ctx *Context, cfg *ScoringConfig) (float64, SubScores) {
	subs := SubScores{
		ModelProbabilityHighRisk: prob,
		VitalAbnormalityScore:    vitalAbnormalityScore(f, cfg),
		CriticalSymptomScore:     criticalSymptomScore(f, cfg),
		ChronicConditionScore:    chronicConditionScore(f, cfg),
		NeuroModifier:            neuroModifier(f, ctx, cfg),
	}

	priority := prob*cfg.ModelWeight +
		subs.VitalAbnormalityScore*cfg.VitalWeight +
		subs.CriticalSymptomScore*cfg.SymptomWeight +
		subs.ChronicConditionScore*cfg.ChronicWeight

	switch {
	case prob < cfg.LowProbability:
		priority -= cfg.LowProbabilityCut
	case prob > cfg.HighProbability:
		priority += cfg.HighProbabilityAdd
	}

	priority += subs.NeuroModifier * 10
	if subs.NeuroModifier > 0 && priority < cfg.NeuroFloor {
		priority = cfg.NeuroFloor
	}
	if criticalPresentation(f) && priority < cfg.CriticalFloor {
		priority = cfg.CriticalFloor
	}

	priority = math.Round(clamp(priority, 0, 100)*100) / 100
	return priority, subs
}

// riskLevelFor maps the post-adjustment score onto the discrete level.
func riskLevelFor(score float64, cfg *ScoringConfig) RiskLevel {
	switch {
	case score >= cfg.HighCutoff:
		return RiskHigh
	case score >= cfg.MediumCutoff:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ruleDepartment is the deterministic fallback mirroring the trained
// department classifier's decision boundaries. It takes the same vector and
// context as the classifier adapter so both paths test against the same
// fixtures. Evaluated in fixed priority order.
func ruleDepartment(f *FeatureVector, ctx *Context) string {
	switch {
	case f.LossOfConsciousness == 1,
		f.DifficultyBreathing == 1 && f.OxygenSaturation < 90,
		f.ChestPain == 1 && f.SystolicBP > 180:
		return DeptEmergency
	case f.ChestPain == 1, f.HeartDisease == 1, f.Hypertension == 1, ctx.CardiacToken:
		return DeptCardiology
	case f.SevereHeadache == 1, f.Dizziness == 1, f.Confusion == 1, ctx.StrokeHistory, ctx.NeuroToken:
		return DeptNeurology
	case f.DifficultyBreathing == 1, f.OxygenSaturation < 92, f.Asthma == 1, ctx.COPDHistory:
		return DeptPulmonology
	case f.AbdominalPain == 1, f.Nausea == 1, f.Fever == 1:
		return DeptGastroenterology
	default:
		return DeptGeneralMedicine
	}
}

// applyDepartmentOverrides layers the deterministic safety overrides on top
// of whatever the classifier (or fallback cascade) produced. Each override
// may raise confidence to its floor; the Emergency override runs last and
// unconditionally.
func applyDepartmentOverrides(dept string, conf float64, f *FeatureVector, ctx *Context, score float64, cfg *ScoringConfig) (string, float64) {
	if ctx.CardiacToken && dept == DeptGeneralMedicine {
		dept = DeptCardiology
		conf = math.Max(conf, cfg.CardiacOverrideFloor)
	}
	if ctx.StrokeHistory && (dept == DeptGeneralMedicine || dept == DeptGastroenterology) {
		dept = DeptNeurology
		conf = math.Max(conf, cfg.NeuroOverrideFloor)
	}
	if criticalPresentation(f) ||
		(f.ChestPain == 1 && f.SystolicBP > 180) ||
		score >= cfg.EmergencyScoreCutoff {
		dept = DeptEmergency
		conf = math.Max(conf, cfg.EmergencyOverrideFloor)
	}
	return dept, conf
}

// departmentTestPanels are the workup panels appended after the baseline
// labs for the routed department.
var departmentTestPanels = map[string][]string{
	DeptCardiology:       {"ECG", "Troponin", "Echocardiogram"},
	DeptNeurology:        {"Neuro Exam", "CT Brain", "MRI Brain"},
	DeptPulmonology:      {"Chest X-ray", "ABG", "Spirometry"},
	DeptGastroenterology: {"LFT", "Abdominal Ultrasound", "Serum Lipase"},
	DeptEmergency:        {"ECG", "Chest X-ray", "Emergency Panel", "POC Ultrasound"},
}

// recommendedTests assembles the ordered, deduplicated workup list.
func recommendedTests(dept string, f *FeatureVector) []string {
	tests := []string{"CBC", "Basic Metabolic Panel"}
	tests = append(tests, departmentTestPanels[dept]...)
	if f.OxygenSaturation < 90 {
		tests = append(tests, "Oxygen Therapy Protocol", "ABG")
	}
	if f.LossOfConsciousness == 1 {
		tests = append(tests, "Airway Monitoring", "CT Brain")
	}
	return dedupePreserve(tests)
}

func capRatio(points, cap float64) float64 {
	if cap <= 0 {
		return 0
	}
	return math.Min(points/cap, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
