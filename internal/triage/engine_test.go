package triage

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/go-core/log"
)

// fakeModels is a configurable Models implementation for engine tests.
type fakeModels struct {
	prob     float64
	riskConf float64
	riskOK   bool

	dept     string
	deptConf float64
	deptOK   bool

	importances []float64

	riskCalls int
	deptCalls int
	gotWidth  int
}

func (m *fakeModels) PredictHighRisk(_ context.Context, features []float32) (float64, float64, bool) {
	m.riskCalls++
	m.gotWidth = len(features)
	if !m.riskOK {
		return 0.5, 0.5, false
	}
	return m.prob, m.riskConf, true
}

func (m *fakeModels) PredictDepartment(_ context.Context, _ []float32) (string, float64, bool) {
	m.deptCalls++
	if !m.deptOK {
		return "", 0, false
	}
	return m.dept, m.deptConf, true
}

func (m *fakeModels) RiskImportances() ([]float64, bool) {
	if m.importances == nil {
		return nil, false
	}
	return m.importances, true
}

func TestEngine_AssessWithModels(t *testing.T) {
	t.Parallel()

	models := &fakeModels{
		prob: 0.9, riskConf: 0.85, riskOK: true,
		dept: DeptCardiology, deptConf: 0.8, deptOK: true,
	}
	e := NewEngine(models, DefaultScoringConfig(), log.Nop())

	a := e.Assess(context.Background(), &Submission{
		Symptoms:      StringList{"chest pain"},
		BloodPressure: "150/95",
	})

	if !a.RiskModelUsed {
		t.Error("expected RiskModelUsed")
	}
	if !a.DepartmentModelUsed {
		t.Error("expected DepartmentModelUsed")
	}
	if a.RecommendedDepartment != DeptCardiology {
		t.Errorf("department = %q, want Cardiology", a.RecommendedDepartment)
	}
	if a.SubScores.ModelProbabilityHighRisk != 0.9 {
		t.Errorf("model probability = %v, want 0.9", a.SubScores.ModelProbabilityHighRisk)
	}
	if want := (0.85 + 0.8) / 2; a.Confidence != want {
		t.Errorf("confidence = %v, want %v", a.Confidence, want)
	}
	if models.gotWidth != len(FeatureNames) {
		t.Errorf("feature width = %d, want %d", models.gotWidth, len(FeatureNames))
	}
	if a.Explainability.Reasoning == "" {
		t.Error("expected reasoning text")
	}
}

func TestEngine_AssessWithoutModels(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	cfg := DefaultScoringConfig()
	e := NewEngine(models, cfg, log.Nop())

	a := e.Assess(context.Background(), &Submission{
		Symptoms: StringList{"severe headache"},
	})

	if a.RiskModelUsed {
		t.Error("RiskModelUsed should be false without a model")
	}
	if a.DepartmentModelUsed {
		t.Error("DepartmentModelUsed should be false without a model")
	}
	if a.SubScores.ModelProbabilityHighRisk != 0.5 {
		t.Errorf("model probability = %v, want neutral 0.5", a.SubScores.ModelProbabilityHighRisk)
	}
	// Rule cascade routes the headache.
	if a.RecommendedDepartment != DeptNeurology {
		t.Errorf("department = %q, want Neurology from rule cascade", a.RecommendedDepartment)
	}
	if want := (0.5 + cfg.RuleFallbackConfidence) / 2; a.Confidence != want {
		t.Errorf("confidence = %v, want %v", a.Confidence, want)
	}
}

func TestEngine_OverridesApplyToModelOutput(t *testing.T) {
	t.Parallel()

	// The department model says General Medicine, but the critical
	// presentation override must force Emergency regardless.
	models := &fakeModels{
		prob: 0.95, riskConf: 0.9, riskOK: true,
		dept: DeptGeneralMedicine, deptConf: 0.9, deptOK: true,
	}
	e := NewEngine(models, DefaultScoringConfig(), log.Nop())

	a := e.Assess(context.Background(), &Submission{
		Symptoms: StringList{"unconscious"},
	})

	if a.RecommendedDepartment != DeptEmergency {
		t.Errorf("department = %q, want Emergency", a.RecommendedDepartment)
	}
	if a.RiskLevel != RiskHigh {
		t.Errorf("risk level = %q, want High", a.RiskLevel)
	}
	if a.PriorityScore < 78 {
		t.Errorf("score = %v, want >= critical floor", a.PriorityScore)
	}
}

func TestEngine_ExplanationUsesImportances(t *testing.T) {
	t.Parallel()

	importances := make([]float64, len(FeatureNames))
	for i, name := range FeatureNames {
		if name == "oxygen_saturation" {
			importances[i] = 0.9
		} else {
			importances[i] = 0.01
		}
	}
	models := &fakeModels{
		prob: 0.8, riskConf: 0.8, riskOK: true,
		importances: importances,
	}
	e := NewEngine(models, DefaultScoringConfig(), log.Nop())

	a := e.Assess(context.Background(), &Submission{
		OxygenSaturation: Num(85),
	})

	if len(a.Explainability.TopContributingFeatures) == 0 {
		t.Fatal("expected contributing features")
	}
	top := a.Explainability.TopContributingFeatures[0]
	if top.Feature != "oxygen_saturation" {
		t.Errorf("top feature = %q, want oxygen_saturation", top.Feature)
	}
	if !strings.Contains(top.Label, "85") {
		t.Errorf("label = %q, want embedded value", top.Label)
	}
	if len(a.Explainability.TopContributingFeatures) > 4 {
		t.Errorf("contributors = %d, want <= 4", len(a.Explainability.TopContributingFeatures))
	}
}

func TestEngine_GenericExplanationWithoutImportances(t *testing.T) {
	t.Parallel()

	e := NewEngine(&fakeModels{}, DefaultScoringConfig(), log.Nop())

	a := e.Assess(context.Background(), &Submission{})

	feats := a.Explainability.TopContributingFeatures
	if len(feats) != 4 {
		t.Fatalf("contributors = %d, want 4 generic entries", len(feats))
	}
	if feats[0].Feature != "oxygen_saturation" {
		t.Errorf("first generic feature = %q, want oxygen_saturation", feats[0].Feature)
	}
}

func TestEngine_NeverRejectsGarbage(t *testing.T) {
	t.Parallel()

	e := NewEngine(&fakeModels{}, DefaultScoringConfig(), log.Nop())

	a := e.Assess(context.Background(), &Submission{
		BloodPressure: "garbage",
		Symptoms:      StringList{"\x00\x01", strings.Repeat("x", 10000)},
	})

	if a == nil {
		t.Fatal("Assess returned nil")
	}
	if a.PriorityScore < 0 || a.PriorityScore > 100 {
		t.Errorf("score = %v, want within [0,100]", a.PriorityScore)
	}
	if a.RecommendedDepartment == "" {
		t.Error("expected a routed department")
	}
}

func TestEngine_AssessCreatesSpan(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	e := NewEngine(&fakeModels{
		prob: 0.9, riskConf: 0.85, riskOK: true,
		dept: DeptCardiology, deptConf: 0.8, deptOK: true,
	}, DefaultScoringConfig(), log.Nop())

	e.Assess(context.Background(), &Submission{Symptoms: StringList{"chest pain"}})

	spans := exporter.GetSpans()
	var found bool
	for _, s := range spans {
		if s.Name != "engine.assess" {
			continue
		}
		found = true

		attrs := make(map[attribute.Key]attribute.Value)
		for _, kv := range s.Attributes {
			attrs[kv.Key] = kv.Value
		}
		if got := attrs["triage.department"].AsString(); got != DeptCardiology {
			t.Errorf("triage.department = %q, want %q", got, DeptCardiology)
		}
		if !attrs["triage.risk_model_used"].AsBool() {
			t.Error("triage.risk_model_used = false, want true")
		}
		if score := attrs["triage.priority_score"].AsFloat64(); score <= 0 {
			t.Errorf("triage.priority_score = %v, want > 0", score)
		}
	}
	if !found {
		t.Fatal("no engine.assess span recorded")
	}
}
