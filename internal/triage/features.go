package triage

import (
	"math"
	"strconv"
	"strings"
)

// Clinically neutral defaults substituted for missing or malformed vitals.
// These are contractual: the classifiers were trained against data coerced
// with the same policy.
const (
	defaultSystolicBP       = 120
	defaultHeartRate        = 0
	defaultRespiratoryRate  = 16
	defaultOxygenSaturation = 98
	defaultTemperature      = 37.0
	defaultAge              = 0
)

// FeatureNames lists the classifier input columns in training order.
// The order is a hard contract with the model artifacts: both the risk and
// department classifiers consume the vector positionally. Do not reorder.
var FeatureNames = []string{
	"age",
	"gender_male",
	"gender_female",
	"systolic_bp",
	"heart_rate",
	"temperature",
	"oxygen_saturation",
	"respiratory_rate",
	"chest_pain",
	"difficulty_breathing",
	"severe_headache",
	"abdominal_pain",
	"fever",
	"nausea",
	"dizziness",
	"confusion",
	"loss_of_consciousness",
	"diabetes",
	"hypertension",
	"heart_disease",
	"asthma",
	"cancer",
	"kidney_disease",
	"other_symptom",
	"other_condition",
}

// FeatureVector is the fixed-width numeric input to the classifiers.
type FeatureVector struct {
	Age          int
	GenderMale   int
	GenderFemale int

	SystolicBP       int
	HeartRate        int
	Temperature      float64
	OxygenSaturation int
	RespiratoryRate  int

	ChestPain           int
	DifficultyBreathing int
	SevereHeadache      int
	AbdominalPain       int
	Fever               int
	Nausea              int
	Dizziness           int
	Confusion           int
	LossOfConsciousness int

	Diabetes      int
	Hypertension  int
	HeartDisease  int
	Asthma        int
	Cancer        int
	KidneyDisease int

	OtherSymptom   int
	OtherCondition int
}

// Values returns the vector in FeatureNames order for positional inference.
func (f *FeatureVector) Values() []float32 {
	return []float32{
		float32(f.Age),
		float32(f.GenderMale),
		float32(f.GenderFemale),
		float32(f.SystolicBP),
		float32(f.HeartRate),
		float32(f.Temperature),
		float32(f.OxygenSaturation),
		float32(f.RespiratoryRate),
		float32(f.ChestPain),
		float32(f.DifficultyBreathing),
		float32(f.SevereHeadache),
		float32(f.AbdominalPain),
		float32(f.Fever),
		float32(f.Nausea),
		float32(f.Dizziness),
		float32(f.Confusion),
		float32(f.LossOfConsciousness),
		float32(f.Diabetes),
		float32(f.Hypertension),
		float32(f.HeartDisease),
		float32(f.Asthma),
		float32(f.Cancer),
		float32(f.KidneyDisease),
		float32(f.OtherSymptom),
		float32(f.OtherCondition),
	}
}

// valueByName returns the raw value for a feature column, for explainability.
func (f *FeatureVector) valueByName(name string) float64 {
	vals := f.Values()
	for i, n := range FeatureNames {
		if n == name {
			return float64(vals[i])
		}
	}
	return 0
}

// BuildFeatures normalizes a raw submission into the fixed-order feature
// vector plus its diagnostic context. It never fails: malformed fields are
// individually replaced with neutral defaults.
func BuildFeatures(sub *Submission) (*FeatureVector, *Context) {
	ctx := &Context{
		MatchedSymptoms:   make(map[string][]string),
		MatchedConditions: make(map[string][]string),
	}

	symptoms := append([]string(nil), sub.Symptoms...)
	conditions := append([]string(nil), sub.PreviousConditions...)

	// Merge pre-extracted EHR content. Explicit lists win over re-extraction
	// so an upstream extractor's output is not silently recomputed.
	ehrSymptoms := append([]string(nil), sub.EHRSymptoms...)
	ehrConditions := append([]string(nil), sub.EHRConditions...)
	if strings.TrimSpace(sub.EHRText) != "" {
		if len(ehrSymptoms) == 0 {
			ehrSymptoms = matchText(sub.EHRText, symptomKeywords)
		}
		if len(ehrConditions) == 0 {
			ehrConditions = matchText(sub.EHRText, conditionKeywords)
		}
	} else if sub.EHRText != "" {
		ctx.EHRNote = "no readable text in attached document"
	}
	symptoms = dedupePreserve(append(symptoms, ehrSymptoms...))
	conditions = dedupePreserve(append(conditions, ehrConditions...))

	symptomTokens := tokenize(symptoms)
	conditionTokens := tokenize(conditions)

	matchedSymptoms, unmatchedSymptoms := matchTokens(symptomTokens, symptomKeywords)
	matchedConditions, unmatchedConditions := matchTokens(conditionTokens, conditionKeywords)

	ctx.MatchedSymptoms = matchedSymptoms
	ctx.MatchedConditions = matchedConditions
	ctx.UnmatchedSymptoms = unmatchedSymptoms
	ctx.UnmatchedConditions = unmatchedConditions
	_, ctx.StrokeHistory = matchedConditions["stroke history"]
	_, ctx.COPDHistory = matchedConditions["copd"]
	ctx.CardiacToken = containsAnyToken(symptomTokens, cardiacTokens)
	ctx.NeuroToken = containsAnyToken(symptomTokens, neuroTokens)

	f := &FeatureVector{
		Age:              sub.Age.IntOr(defaultAge),
		HeartRate:        sub.HeartRate.IntOr(defaultHeartRate),
		Temperature:      sub.Temperature.FloatOr(defaultTemperature),
		OxygenSaturation: sub.OxygenSaturation.IntOr(defaultOxygenSaturation),
		RespiratoryRate:  sub.RespiratoryRate.IntOr(defaultRespiratoryRate),
	}

	switch strings.ToLower(strings.TrimSpace(sub.Gender)) {
	case "male", "m":
		f.GenderMale = 1
	case "female", "f":
		f.GenderFemale = 1
	}

	f.SystolicBP = parseSystolic(sub.BloodPressure)

	mergeEHRVitals(f, sub)

	flag := func(m map[string][]string, canonical string) int {
		if _, ok := m[canonical]; ok {
			return 1
		}
		return 0
	}
	f.ChestPain = flag(matchedSymptoms, "chest pain")
	f.DifficultyBreathing = flag(matchedSymptoms, "difficulty breathing")
	f.SevereHeadache = flag(matchedSymptoms, "severe headache")
	f.AbdominalPain = flag(matchedSymptoms, "abdominal pain")
	f.Fever = flag(matchedSymptoms, "fever")
	f.Nausea = flag(matchedSymptoms, "nausea")
	f.Dizziness = flag(matchedSymptoms, "dizziness")
	f.Confusion = flag(matchedSymptoms, "confusion")
	f.LossOfConsciousness = flag(matchedSymptoms, "loss of consciousness")

	f.Diabetes = flag(matchedConditions, "diabetes")
	f.Hypertension = flag(matchedConditions, "hypertension")
	f.HeartDisease = flag(matchedConditions, "heart disease")
	f.Asthma = flag(matchedConditions, "asthma")
	f.Cancer = flag(matchedConditions, "cancer")
	f.KidneyDisease = flag(matchedConditions, "kidney disease")

	if len(unmatchedSymptoms) > 0 {
		f.OtherSymptom = 1
	}
	if len(unmatchedConditions) > 0 {
		f.OtherCondition = 1
	}

	return f, ctx
}

// parseSystolic extracts the systolic value from an "S/D" blood pressure
// string, defaulting on any parse failure.
func parseSystolic(bp string) int {
	s := strings.TrimSpace(bp)
	if s == "" {
		return defaultSystolicBP
	}
	if i := strings.IndexAny(s, "/\\"); i >= 0 {
		s = s[:i]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return defaultSystolicBP
	}
	return int(v)
}

// mergeEHRVitals fills vitals from the extracted document only when the
// submitted value is still at its default or conventional placeholder, so a
// nurse-entered reading always wins over the document scan.
func mergeEHRVitals(f *FeatureVector, sub *Submission) {
	if len(sub.EHRVitals) == 0 {
		return
	}
	bpPlaceholder := strings.TrimSpace(sub.BloodPressure) == "" || strings.TrimSpace(sub.BloodPressure) == "120/80"
	if bpPlaceholder {
		if bp, ok := sub.EHRVitals["blood_pressure"]; ok {
			if v := parseSystolic(stringify(bp)); v != defaultSystolicBP {
				f.SystolicBP = v
			}
		}
	}
	if f.HeartRate == 0 || f.HeartRate == 72 {
		if v, ok := anyToInt(sub.EHRVitals["heart_rate"]); ok {
			f.HeartRate = v
		}
	}
	if r := math.Round(f.Temperature*10) / 10; r == 37.0 || r == 98.6 {
		if v, ok := anyToFloat(sub.EHRVitals["temperature"]); ok {
			f.Temperature = v
		}
	}
	if f.RespiratoryRate == defaultRespiratoryRate {
		if v, ok := anyToInt(sub.EHRVitals["respiratory_rate"]); ok {
			f.RespiratoryRate = v
		}
	}
	if f.OxygenSaturation == defaultOxygenSaturation {
		if v, ok := anyToInt(sub.EHRVitals["oxygen_saturation"]); ok {
			f.OxygenSaturation = v
		}
	}
}

func anyToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func anyToInt(v any) (int, bool) {
	f, ok := anyToFloat(v)
	if !ok || f < 0 {
		return 0, false
	}
	return int(f), true
}
