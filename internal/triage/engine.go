package triage

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/linnemanlabs/go-core/log"
)

var tracer = otel.Tracer("github.com/linnemanlabs/ward/internal/triage")

// Models is the classifier surface the engine scores against. The registry
// in internal/classifier satisfies it; tests substitute fakes.
type Models interface {
	PredictHighRisk(ctx context.Context, features []float32) (prob, conf float64, usedModel bool)
	PredictDepartment(ctx context.Context, features []float32) (dept string, conf float64, ok bool)
	RiskImportances() ([]float64, bool)
}

// Engine computes a full assessment from a raw submission. It is pure with
// respect to storage: no identity, no persistence, no side effects beyond
// logging, so the same engine serves live intake and read-only previews.
type Engine struct {
	models Models
	cfg    ScoringConfig
	logger log.Logger
}

// NewEngine creates an engine over the given model set and scoring constants.
func NewEngine(models Models, cfg ScoringConfig, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{models: models, cfg: cfg, logger: logger}
}

// Config returns the scoring constants the engine was built with.
func (e *Engine) Config() ScoringConfig { return e.cfg }

// Assess scores one submission. It never fails: malformed fields coerce to
// defaults during feature building, and missing or broken models degrade to
// the documented fallbacks.
func (e *Engine) Assess(ctx context.Context, sub *Submission) *Assessment {
	ctx, span := tracer.Start(ctx, "engine.assess")
	defer span.End()

	f, kctx := BuildFeatures(sub)
	features := f.Values()

	prob, riskConf, riskModelUsed := e.models.PredictHighRisk(ctx, features)

	dept, deptConf, deptModelUsed := e.models.PredictDepartment(ctx, features)
	if !deptModelUsed {
		dept = ruleDepartment(f, kctx)
		deptConf = e.cfg.RuleFallbackConfidence
	}

	score, subs := blendPriority(prob, f, kctx, &e.cfg)
	level := riskLevelFor(score, &e.cfg)
	dept, deptConf = applyDepartmentOverrides(dept, deptConf, f, kctx, score, &e.cfg)

	a := &Assessment{
		RiskLevel:             level,
		PriorityScore:         score,
		RecommendedDepartment: dept,
		Confidence:            clamp((riskConf+deptConf)/2, 0, 1),
		SubScores:             subs,
		RecommendedTests:      recommendedTests(dept, f),
		Context:               *kctx,
		RiskModelUsed:         riskModelUsed,
		DepartmentModelUsed:   deptModelUsed,
	}

	importances, _ := e.models.RiskImportances()
	a.Explainability = buildExplanation(f, importances, a)

	span.SetAttributes(
		attribute.String("triage.risk_level", string(level)),
		attribute.Float64("triage.priority_score", score),
		attribute.String("triage.department", dept),
		attribute.Bool("triage.risk_model_used", riskModelUsed),
		attribute.Bool("triage.department_model_used", deptModelUsed),
	)

	e.logger.Info(ctx, "assessment computed",
		"patient_id", sub.PatientID,
		"risk_level", level,
		"priority_score", score,
		"department", dept,
		"risk_model_used", riskModelUsed,
		"department_model_used", deptModelUsed,
	)

	return a
}
