package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	AssessmentsTotal   *prometheus.CounterVec
	PriorityScore      prometheus.Histogram
	RiskFallbacks      prometheus.Counter
	DeptFallbacks      prometheus.Counter
	SubmitsTotal       *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ward_assessments_total",
			Help: "Total assessments by risk level and routed department.",
		}, []string{"risk_level", "department"}),
		PriorityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ward_priority_score",
			Help:    "Distribution of computed priority scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 .. 100
		}),
		RiskFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ward_risk_model_fallbacks_total",
			Help: "Assessments scored with the neutral probability instead of the risk model.",
		}),
		DeptFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ward_department_rule_fallbacks_total",
			Help: "Assessments routed by the rule cascade instead of the department model.",
		}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ward_triage_submits_total",
			Help: "Total triage submissions by result.",
		}, []string{"result"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ward_notifications_total",
			Help: "Total high-priority notifications by delivery result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.AssessmentsTotal,
		m.PriorityScore,
		m.RiskFallbacks,
		m.DeptFallbacks,
		m.SubmitsTotal,
		m.NotificationsTotal,
	)

	return m
}

// ObserveAssessment records the per-assessment metrics.
func (m *Metrics) ObserveAssessment(a *Assessment) {
	if m == nil {
		return
	}
	m.AssessmentsTotal.WithLabelValues(string(a.RiskLevel), a.RecommendedDepartment).Inc()
	m.PriorityScore.Observe(a.PriorityScore)
	if !a.RiskModelUsed {
		m.RiskFallbacks.Inc()
	}
	if !a.DepartmentModelUsed {
		m.DeptFallbacks.Inc()
	}
}
