// Package classifier owns the trained model lifecycle for the triage engine:
// an explicit registry the process loads at start (no lazy global state),
// scikit-learn-style probability adapters backed by ONNX Runtime, and the
// documented neutral fallbacks when a model is missing or broken.
package classifier

import (
	"context"
	"sync"

	"github.com/linnemanlabs/go-core/log"
)

// Neutral fallback returned when no usable risk model is available.
const (
	NeutralProbability = 0.5
	NeutralConfidence  = 0.5
)

// RiskModel estimates P(high-risk) from the positional feature vector.
type RiskModel interface {
	// PredictHighRisk returns the high-risk class probability and the
	// maximum class probability (the adapter's confidence).
	PredictHighRisk(ctx context.Context, features []float32) (probability, confidence float64, err error)

	// FeatureImportances returns per-feature importances in input-column
	// order, or nil when the artifact does not carry them.
	FeatureImportances() []float64
}

// DepartmentModel estimates the most likely department for a presentation.
type DepartmentModel interface {
	PredictDepartment(ctx context.Context, features []float32) (department string, confidence float64, err error)
}

// Registry holds the process-wide model set. Models load once at startup
// and are shared by concurrent requests; inference is side-effect-free.
// A model whose inference fails is unloaded for the remaining process
// lifetime so a broken artifact cannot fail every request.
type Registry struct {
	mu     sync.RWMutex
	risk   RiskModel
	dept   DepartmentModel
	logger log.Logger
}

// NewRegistry creates an empty registry. With no models loaded, risk
// predictions are neutral and department routing uses the rule cascade.
func NewRegistry(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.Nop()
	}
	return &Registry{logger: logger}
}

// LoadRisk installs (or replaces) the risk model.
func (r *Registry) LoadRisk(m RiskModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.risk = m
}

// LoadDepartment installs (or replaces) the department model.
func (r *Registry) LoadDepartment(m DepartmentModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dept = m
}

// UnloadRisk removes the risk model; predictions fall back to neutral.
func (r *Registry) UnloadRisk() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.risk = nil
}

// UnloadDepartment removes the department model; routing falls back to
// the rule cascade.
func (r *Registry) UnloadDepartment() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dept = nil
}

// PredictHighRisk returns the model's high-risk probability, or the neutral
// 0.5/0.5 pair when no model is loaded or inference fails. usedModel is
// false on the fallback path so callers can meter degradation.
func (r *Registry) PredictHighRisk(ctx context.Context, features []float32) (prob, conf float64, usedModel bool) {
	r.mu.RLock()
	m := r.risk
	r.mu.RUnlock()
	if m == nil {
		return NeutralProbability, NeutralConfidence, false
	}

	prob, conf, err := m.PredictHighRisk(ctx, features)
	if err != nil {
		r.logger.Error(ctx, err, "risk model inference failed, unloading for process lifetime")
		r.UnloadRisk()
		return NeutralProbability, NeutralConfidence, false
	}
	return prob, conf, true
}

// PredictDepartment returns the model's routing, or ok=false when the caller
// must use the rule cascade.
func (r *Registry) PredictDepartment(ctx context.Context, features []float32) (dept string, conf float64, ok bool) {
	r.mu.RLock()
	m := r.dept
	r.mu.RUnlock()
	if m == nil {
		return "", 0, false
	}

	dept, conf, err := m.PredictDepartment(ctx, features)
	if err != nil {
		r.logger.Error(ctx, err, "department model inference failed, unloading for process lifetime")
		r.UnloadDepartment()
		return "", 0, false
	}
	return dept, conf, true
}

// RiskImportances exposes the risk model's feature importances for the
// explainability formatter.
func (r *Registry) RiskImportances() ([]float64, bool) {
	r.mu.RLock()
	m := r.risk
	r.mu.RUnlock()
	if m == nil {
		return nil, false
	}
	imp := m.FeatureImportances()
	if imp == nil {
		return nil, false
	}
	return imp, true
}
