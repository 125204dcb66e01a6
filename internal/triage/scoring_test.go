package triage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBlendPriority_NeutralBaseline(t *testing.T) {
	t.Parallel()

	cfg := DefaultScoringConfig()
	f, ctx := BuildFeatures(&Submission{})

	// Neutral probability, normal vitals, no symptoms: model term only.
	score, subs := blendPriority(0.5, f, ctx, &cfg)
	if score != 27.5 {
		t.Errorf("score = %v, want 27.5", score)
	}
	if subs.VitalAbnormalityScore != 0 || subs.CriticalSymptomScore != 0 || subs.ChronicConditionScore != 0 {
		t.Errorf("unexpected sub-scores: %+v", subs)
	}
}

func TestBlendPriority_ProbabilityBands(t *testing.T) {
	t.Parallel()

	cfg := DefaultScoringConfig()
	f, ctx := BuildFeatures(&Submission{})

	// Below the low band the cut applies: 0.2*55 - 8 = 3.
	low, _ := blendPriority(0.2, f, ctx, &cfg)
	if low != 3 {
		t.Errorf("low-band score = %v, want 3", low)
	}

	// Above the high band the bonus applies: 0.9*55 + 6 = 55.5.
	high, _ := blendPriority(0.9, f, ctx, &cfg)
	if high != 55.5 {
		t.Errorf("high-band score = %v, want 55.5", high)
	}
}

func TestBlendPriority_ClampsToRange(t *testing.T) {
	t.Parallel()

	cfg := DefaultScoringConfig()

	// Probability 0 with no findings would go negative after the low cut.
	f, ctx := BuildFeatures(&Submission{})
	score, _ := blendPriority(0, f, ctx, &cfg)
	if score < 0 {
		t.Errorf("score = %v, want >= 0", score)
	}

	// Everything maxed must stay at or below 100.
	worst, wctx := BuildFeatures(&Submission{
		BloodPressure:      "200/120",
		HeartRate:          Num(150),
		Temperature:        Num(40.5),
		OxygenSaturation:   Num(80),
		Symptoms:           StringList{"loss of consciousness", "chest pain", "difficulty breathing", "confusion", "severe headache", "dizziness"},
		PreviousConditions: StringList{"heart disease", "kidney disease", "diabetes", "hypertension", "cancer", "asthma"},
	})
	score, _ = blendPriority(1.0, worst, wctx, &cfg)
	if score > 100 {
		t.Errorf("score = %v, want <= 100", score)
	}
}

func TestBlendPriority_NeuroFloor(t *testing.T) {
	t.Parallel()

	cfg := DefaultScoringConfig()

	// Stroke history plus an active neuro symptom floors the score even when
	// the model probability is near zero.
	f, ctx := BuildFeatures(&Submission{
		Symptoms:           StringList{"dizziness"},
		PreviousConditions: StringList{"stroke"},
	})
	score, subs := blendPriority(0.05, f, ctx, &cfg)
	if subs.NeuroModifier != cfg.NeuroModifier {
		t.Errorf("NeuroModifier = %v, want %v", subs.NeuroModifier, cfg.NeuroModifier)
	}
	if score < cfg.NeuroFloor {
		t.Errorf("score = %v, want >= neuro floor %v", score, cfg.NeuroFloor)
	}

	// Stroke history without any neuro signal does not fire.
	f2, ctx2 := BuildFeatures(&Submission{
		Symptoms:           StringList{"fever"},
		PreviousConditions: StringList{"stroke"},
	})
	_, subs2 := blendPriority(0.05, f2, ctx2, &cfg)
	if subs2.NeuroModifier != 0 {
		t.Errorf("NeuroModifier = %v, want 0 without neuro signal", subs2.NeuroModifier)
	}
}

func TestBlendPriority_CriticalFloor(t *testing.T) {
	t.Parallel()

	cfg := DefaultScoringConfig()

	tests := []struct {
		name string
		sub  Submission
	}{
		{"unconscious", Submission{Symptoms: StringList{"passed out"}}},
		{"hypoxic distress", Submission{
			Symptoms:         StringList{"difficulty breathing"},
			OxygenSaturation: Num(85),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, ctx := BuildFeatures(&tt.sub)
			score, _ := blendPriority(0.1, f, ctx, &cfg)
			if score < cfg.CriticalFloor {
				t.Errorf("score = %v, want >= critical floor %v", score, cfg.CriticalFloor)
			}
		})
	}
}

func TestRiskLevelFor(t *testing.T) {
	t.Parallel()

	cfg := DefaultScoringConfig()
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskLow},
		{34.99, RiskLow},
		{35, RiskMedium},
		{67.99, RiskMedium},
		{68, RiskHigh},
		{100, RiskHigh},
	}

	for _, tt := range tests {
		if got := riskLevelFor(tt.score, &cfg); got != tt.want {
			t.Errorf("riskLevelFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestRuleDepartment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sub  Submission
		want string
	}{
		{"unconscious", Submission{Symptoms: StringList{"syncope"}}, DeptEmergency},
		{"hypoxic distress", Submission{
			Symptoms:         StringList{"breathless"},
			OxygenSaturation: Num(85),
		}, DeptEmergency},
		{"hypertensive chest pain", Submission{
			Symptoms:      StringList{"chest pain"},
			BloodPressure: "190/110",
		}, DeptEmergency},
		{"chest pain", Submission{Symptoms: StringList{"chest tightness"}}, DeptCardiology},
		{"cardiac token", Submission{Symptoms: StringList{"palpitations"}}, DeptCardiology},
		{"headache", Submission{Symptoms: StringList{"migraine"}}, DeptNeurology},
		{"stroke history", Submission{PreviousConditions: StringList{"cva"}}, DeptNeurology},
		{"breathing", Submission{Symptoms: StringList{"wheezing"}}, DeptPulmonology},
		{"low saturation alone", Submission{OxygenSaturation: Num(91)}, DeptPulmonology},
		{"copd history", Submission{PreviousConditions: StringList{"copd"}}, DeptPulmonology},
		{"abdominal", Submission{Symptoms: StringList{"stomach pain"}}, DeptGastroenterology},
		{"fever", Submission{Symptoms: StringList{"fever"}}, DeptGastroenterology},
		{"nothing", Submission{}, DeptGeneralMedicine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, ctx := BuildFeatures(&tt.sub)
			if got := ruleDepartment(f, ctx); got != tt.want {
				t.Errorf("ruleDepartment = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyDepartmentOverrides(t *testing.T) {
	t.Parallel()

	cfg := DefaultScoringConfig()

	t.Run("cardiac token upgrades general medicine", func(t *testing.T) {
		t.Parallel()
		f, ctx := BuildFeatures(&Submission{Symptoms: StringList{"racing heart"}})
		dept, conf := applyDepartmentOverrides(DeptGeneralMedicine, 0.4, f, ctx, 30, &cfg)
		if dept != DeptCardiology {
			t.Errorf("dept = %q, want Cardiology", dept)
		}
		if conf != cfg.CardiacOverrideFloor {
			t.Errorf("conf = %v, want floor %v", conf, cfg.CardiacOverrideFloor)
		}
	})

	t.Run("stroke history redirects gastro", func(t *testing.T) {
		t.Parallel()
		f, ctx := BuildFeatures(&Submission{
			Symptoms:           StringList{"nausea"},
			PreviousConditions: StringList{"stroke"},
		})
		dept, conf := applyDepartmentOverrides(DeptGastroenterology, 0.5, f, ctx, 30, &cfg)
		if dept != DeptNeurology {
			t.Errorf("dept = %q, want Neurology", dept)
		}
		if conf != cfg.NeuroOverrideFloor {
			t.Errorf("conf = %v, want floor %v", conf, cfg.NeuroOverrideFloor)
		}
	})

	t.Run("override keeps higher confidence", func(t *testing.T) {
		t.Parallel()
		f, ctx := BuildFeatures(&Submission{Symptoms: StringList{"racing heart"}})
		_, conf := applyDepartmentOverrides(DeptGeneralMedicine, 0.95, f, ctx, 30, &cfg)
		if conf != 0.95 {
			t.Errorf("conf = %v, want 0.95 preserved", conf)
		}
	})

	t.Run("score cutoff forces emergency", func(t *testing.T) {
		t.Parallel()
		f, ctx := BuildFeatures(&Submission{})
		dept, conf := applyDepartmentOverrides(DeptCardiology, 0.6, f, ctx, 90, &cfg)
		if dept != DeptEmergency {
			t.Errorf("dept = %q, want Emergency", dept)
		}
		if conf != cfg.EmergencyOverrideFloor {
			t.Errorf("conf = %v, want floor %v", conf, cfg.EmergencyOverrideFloor)
		}
	})

	t.Run("critical presentation forces emergency", func(t *testing.T) {
		t.Parallel()
		f, ctx := BuildFeatures(&Submission{Symptoms: StringList{"unconscious"}})
		dept, _ := applyDepartmentOverrides(DeptNeurology, 0.9, f, ctx, 50, &cfg)
		if dept != DeptEmergency {
			t.Errorf("dept = %q, want Emergency", dept)
		}
	})

	t.Run("no override leaves classifier result", func(t *testing.T) {
		t.Parallel()
		f, ctx := BuildFeatures(&Submission{Symptoms: StringList{"fever"}})
		dept, conf := applyDepartmentOverrides(DeptGastroenterology, 0.8, f, ctx, 40, &cfg)
		if dept != DeptGastroenterology || conf != 0.8 {
			t.Errorf("got (%q, %v), want (Gastroenterology, 0.8)", dept, conf)
		}
	})
}

func TestRecommendedTests(t *testing.T) {
	t.Parallel()

	t.Run("baseline plus department panel", func(t *testing.T) {
		t.Parallel()
		f, _ := BuildFeatures(&Submission{Symptoms: StringList{"chest pain"}})
		tests := recommendedTests(DeptCardiology, f)
		want := []string{"CBC", "Basic Metabolic Panel", "ECG", "Troponin", "Echocardiogram"}
		if len(tests) != len(want) {
			t.Fatalf("tests = %v, want %v", tests, want)
		}
		for i := range want {
			if tests[i] != want[i] {
				t.Errorf("test %d = %q, want %q", i, tests[i], want[i])
			}
		}
	})

	t.Run("hypoxia adds oxygen protocol without duplicating ABG", func(t *testing.T) {
		t.Parallel()
		f, _ := BuildFeatures(&Submission{OxygenSaturation: Num(85)})
		tests := recommendedTests(DeptPulmonology, f)
		seen := map[string]int{}
		for _, x := range tests {
			seen[x]++
		}
		if seen["ABG"] != 1 {
			t.Errorf("ABG count = %d, want 1", seen["ABG"])
		}
		if seen["Oxygen Therapy Protocol"] != 1 {
			t.Error("expected Oxygen Therapy Protocol")
		}
	})

	t.Run("unconsciousness adds airway monitoring", func(t *testing.T) {
		t.Parallel()
		f, _ := BuildFeatures(&Submission{Symptoms: StringList{"blackout"}})
		tests := recommendedTests(DeptEmergency, f)
		found := false
		for _, x := range tests {
			if x == "Airway Monitoring" {
				found = true
			}
		}
		if !found {
			t.Errorf("tests = %v, want Airway Monitoring", tests)
		}
	})
}

func TestLoadScoringConfig(t *testing.T) {
	t.Parallel()

	t.Run("overrides on top of defaults", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "scoring.yaml")
		if err := os.WriteFile(path, []byte("high_cutoff: 75\nmodel_weight: 60\n"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}

		cfg, err := LoadScoringConfig(path)
		if err != nil {
			t.Fatalf("LoadScoringConfig: %v", err)
		}
		if cfg.HighCutoff != 75 {
			t.Errorf("HighCutoff = %v, want 75", cfg.HighCutoff)
		}
		if cfg.ModelWeight != 60 {
			t.Errorf("ModelWeight = %v, want 60", cfg.ModelWeight)
		}
		// Untouched fields keep their defaults.
		if cfg.MediumCutoff != 35 {
			t.Errorf("MediumCutoff = %v, want default 35", cfg.MediumCutoff)
		}
	})

	t.Run("missing file errors", func(t *testing.T) {
		t.Parallel()
		if _, err := LoadScoringConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("bad yaml errors", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "scoring.yaml")
		if err := os.WriteFile(path, []byte("high_cutoff: [not a number"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadScoringConfig(path); err == nil {
			t.Fatal("expected error for bad yaml")
		}
	})
}
