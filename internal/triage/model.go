package triage

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Status tracks where an assessment is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet seen by a clinician
	StatusPending Status = "pending"

	// StatusInProgress means the patient is being seen
	StatusInProgress Status = "in_progress"

	// StatusCompleted means the assessment is done
	StatusCompleted Status = "completed"
)

// RiskLevel is the discrete urgency bucket derived from the priority score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Department labels the classifier and the rule cascade route to.
const (
	DeptEmergency        = "Emergency"
	DeptCardiology       = "Cardiology"
	DeptNeurology        = "Neurology"
	DeptPulmonology      = "Pulmonology"
	DeptGastroenterology = "Gastroenterology"
	DeptGeneralMedicine  = "General Medicine"
)

// Departments lists every routable department.
var Departments = []string{
	DeptEmergency,
	DeptCardiology,
	DeptNeurology,
	DeptPulmonology,
	DeptGastroenterology,
	DeptGeneralMedicine,
}

// Submission is a raw triage intake as received from the API. Numeric fields
// tolerate strings, nulls, and garbage: anything that does not parse falls
// back to a clinically neutral default during feature building. The engine
// never rejects a submission over a malformed field.
type Submission struct {
	PatientID string `json:"patient_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Age       Number `json:"age,omitempty"`

	// Vitals. BloodPressure is the conventional "S/D" string.
	BloodPressure    string `json:"blood_pressure,omitempty"`
	HeartRate        Number `json:"heart_rate,omitempty"`
	Temperature      Number `json:"temperature,omitempty"`
	RespiratoryRate  Number `json:"respiratory_rate,omitempty"`
	OxygenSaturation Number `json:"oxygen_saturation,omitempty"`

	Symptoms           StringList `json:"symptoms,omitempty"`
	Duration           string     `json:"duration,omitempty"`
	Severity           Number     `json:"severity,omitempty"`
	PreviousConditions StringList `json:"previous_conditions,omitempty"`
	CurrentMedications StringList `json:"current_medications,omitempty"`

	// Pre-extracted EHR document content. PDF/OCR extraction happens
	// upstream; the engine only consumes the plain text and vitals dict.
	EHRText       string         `json:"ehr_text,omitempty"`
	EHRVitals     map[string]any `json:"ehr_extracted_vitals,omitempty"`
	EHRSymptoms   StringList     `json:"ehr_extracted_symptoms,omitempty"`
	EHRConditions StringList     `json:"ehr_extracted_conditions,omitempty"`

	BloodGroup      string `json:"blood_group,omitempty"`
	ContactNumber   string `json:"contact_number,omitempty"`
	GuardianName    string `json:"guardian_name,omitempty"`
	GuardianContact string `json:"guardian_contact,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// Number is a JSON number that also accepts numeric strings and null.
// Unparseable input leaves the value unset rather than failing the decode.
type Number struct {
	Value float64
	Valid bool
}

// Num builds a set Number; mostly for tests and internal construction.
func Num(v float64) Number { return Number{Value: v, Valid: true} }

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*n = Number{}
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		*n = Number{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = Number{}
		return nil
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// IntOr returns the value as a non-negative int, or def when unset or negative.
func (n Number) IntOr(def int) int {
	if !n.Valid {
		return def
	}
	v := int(n.Value)
	if v < 0 {
		return def
	}
	return v
}

// FloatOr returns the value, or def when unset.
func (n Number) FloatOr(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// StringList is a JSON array of strings that also accepts a single
// delimited string ("fever; chills") or a JSON-encoded array inside a
// string, mirroring how intake forms submit list fields.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(b []byte) error {
	var arr []any
	if err := json.Unmarshal(b, &arr); err == nil {
		*l = coerceAnyList(arr)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = splitListString(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err == nil && v != nil {
		*l = splitListString(stringify(v))
		return nil
	}
	*l = nil
	return nil
}

func coerceAnyList(arr []any) []string {
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s := strings.TrimSpace(stringify(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitListString(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// Forms sometimes submit a JSON array inside a string field.
	if strings.HasPrefix(s, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			return coerceAnyList(arr)
		}
	}
	s = strings.ReplaceAll(s, ";", ",")
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// Context is the keyword-matching side channel produced alongside the
// feature vector: which raw tokens mapped to which canonical term, the
// context-only condition flags, and whether anything went unrecognized.
type Context struct {
	MatchedSymptoms   map[string][]string `json:"matched_symptoms"`
	MatchedConditions map[string][]string `json:"matched_conditions"`

	// Raw tokens that mapped to no canonical term. Their presence sets the
	// other_* feature flags so the classifiers see that they are operating
	// on an incomplete vocabulary instead of silently losing information.
	UnmatchedSymptoms   []string `json:"unmatched_symptoms,omitempty"`
	UnmatchedConditions []string `json:"unmatched_conditions,omitempty"`

	// Conditions tracked outside the numeric feature vector.
	StrokeHistory bool `json:"stroke_history"`
	COPDHistory   bool `json:"copd_history"`

	// Auxiliary token matches feeding the department cascade and overrides.
	CardiacToken bool `json:"cardiac_token"`
	NeuroToken   bool `json:"neuro_token"`

	// EHRNote records how the extracted document text was handled.
	EHRNote string `json:"ehr_note,omitempty"`
}

// AnyNeuroSignal reports whether any neurological indicator is present in
// the matched symptom flags or the auxiliary neuro tokens.
func (c *Context) AnyNeuroSignal(f *FeatureVector) bool {
	return f.SevereHeadache == 1 || f.Dizziness == 1 || f.Confusion == 1 || c.NeuroToken
}

// SubScores are the normalized components that blend into the priority score.
type SubScores struct {
	ModelProbabilityHighRisk float64 `json:"model_probability_high_risk"`
	VitalAbnormalityScore    float64 `json:"vital_abnormality_score"`
	CriticalSymptomScore     float64 `json:"critical_symptom_score"`
	ChronicConditionScore    float64 `json:"chronic_condition_score"`
	NeuroModifier            float64 `json:"neuro_modifier"`
}

// FeatureContribution is one ranked entry in the explainability output.
type FeatureContribution struct {
	Feature      string  `json:"feature"`
	Label        string  `json:"label"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// Explanation is the human-readable account of an assessment.
type Explanation struct {
	TopContributingFeatures []FeatureContribution `json:"top_contributing_features"`
	Reasoning               string                `json:"reasoning"`
}

// Assessment is the pure output of the scoring engine for one submission.
// It carries no identity or persistence state; Service wraps it in a Result.
type Assessment struct {
	RiskLevel             RiskLevel   `json:"risk_level"`
	PriorityScore         float64     `json:"priority_score"`
	RecommendedDepartment string      `json:"recommended_department"`
	Confidence            float64     `json:"confidence"`
	SubScores             SubScores   `json:"component_scores"`
	Explainability        Explanation `json:"explainability"`
	RecommendedTests      []string    `json:"recommended_tests"`
	Context               Context     `json:"context"`

	// Degradation markers: false means the neutral probability or the rule
	// cascade stood in for the corresponding model.
	RiskModelUsed       bool `json:"risk_model_used"`
	DepartmentModelUsed bool `json:"department_model_used"`
}

// Result is a persisted triage assessment for one patient encounter.
// Computed fresh on every submission and never mutated after return;
// a re-submission archives the prior version and replaces it in place.
type Result struct {
	ID         string `json:"id"`
	HospitalID string `json:"hospital_id"`
	PatientID  string `json:"patient_id"`
	NurseID    string `json:"nurse_id"`
	Status     Status `json:"status"`

	Submission Submission `json:"submission"`
	Assessment Assessment `json:"assessment"`

	AssignedDoctorID string `json:"assigned_doctor_id,omitempty"`
	Notes            string `json:"notes,omitempty"`

	// Narrative is an optional clinician-facing summary generated after the
	// assessment persists. Empty when no narrator is configured.
	Narrative string `json:"narrative,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
