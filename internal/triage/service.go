package triage

import (
	"context"
	"errors"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when the requested result does not exist within
// the caller's hospital.
var ErrNotFound = errors.New("triage result not found")

// PatientDirectory resolves or creates patient records during intake.
type PatientDirectory interface {
	EnsurePatient(ctx context.Context, hospitalID string, sub *Submission) (patientID string, err error)
}

// Notifier fans out high-priority assessments to on-call channels.
type Notifier interface {
	NotifyHighPriority(ctx context.Context, result *Result) error
}

// Narrator optionally produces a clinician-facing narrative for a
// persisted result.
type Narrator interface {
	Narrate(ctx context.Context, result *Result) (string, error)
}

// Patch is a field-masked update to a persisted result. Nil fields are
// left untouched.
type Patch struct {
	Status           *Status
	Notes            *string
	AssignedDoctorID *string
}

// Service is the business boundary for triage operations: intake with
// patient resolution and versioning, reads scoped by hospital, and the
// post-persist side effects (notification, narrative).
type Service struct {
	store     Store
	engine    *Engine
	directory PatientDirectory
	notifier  Notifier
	narrator  Narrator
	metrics   *Metrics
	logger    log.Logger
}

// NewService creates a new triage service. notifier, narrator, and metrics
// may be nil.
func NewService(store Store, engine *Engine, directory PatientDirectory, notifier Notifier, narrator Narrator, metrics *Metrics, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:     store,
		engine:    engine,
		directory: directory,
		notifier:  notifier,
		narrator:  narrator,
		metrics:   metrics,
		logger:    logger,
	}
}

// Create runs a full intake: resolve the patient, score the submission,
// archive any prior assessment for that patient, and persist the new
// version. High-priority notification and narrative generation run
// asynchronously after the result is durable.
func (s *Service) Create(ctx context.Context, hospitalID, nurseID string, sub *Submission) (*Result, error) {
	patientID, err := s.directory.EnsurePatient(ctx, hospitalID, sub)
	if err != nil {
		s.countSubmit("patient_error")
		return nil, err
	}
	sub.PatientID = patientID

	assessment := s.engine.Assess(ctx, sub)

	now := time.Now().UTC()
	result := &Result{
		ID:         ulid.Make().String(),
		HospitalID: hospitalID,
		PatientID:  patientID,
		NurseID:    nurseID,
		Status:     StatusPending,
		Submission: *sub,
		Assessment: *assessment,
		Notes:      sub.Notes,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// A re-submission supersedes the patient's current assessment: the old
	// version is archived and the record updated in place, keeping one live
	// result per patient.
	if prior, ok, err := s.store.GetLatestByPatient(ctx, hospitalID, patientID); err != nil {
		s.countSubmit("store_error")
		return nil, err
	} else if ok {
		if err := s.store.Archive(ctx, prior); err != nil {
			s.countSubmit("store_error")
			return nil, err
		}
		result.ID = prior.ID
		result.Version = prior.Version + 1
		result.CreatedAt = prior.CreatedAt
	}

	if err := s.store.Put(ctx, result); err != nil {
		s.countSubmit("store_error")
		return nil, err
	}

	s.countSubmit("created")
	s.metrics.ObserveAssessment(assessment)

	s.logger.Info(ctx, "triage created",
		"triage_id", result.ID,
		"hospital_id", hospitalID,
		"patient_id", patientID,
		"risk_level", assessment.RiskLevel,
		"priority_score", assessment.PriorityScore,
		"department", assessment.RecommendedDepartment,
		"version", result.Version,
	)

	go s.afterCreate(context.WithoutCancel(ctx), result)

	return result, nil
}

// Preview scores a submission without persisting anything.
func (s *Service) Preview(ctx context.Context, sub *Submission) *Assessment {
	return s.engine.Assess(ctx, sub)
}

// Get retrieves a result by ID within a hospital.
func (s *Service) Get(ctx context.Context, hospitalID, id string) (*Result, error) {
	result, ok, err := s.store.Get(ctx, hospitalID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return result, nil
}

// List returns a page of results plus the unpaged total.
func (s *Service) List(ctx context.Context, f Filter) ([]*Result, int, error) {
	f.Normalize()
	return s.store.List(ctx, f)
}

// Update applies a field-masked patch to an existing result.
func (s *Service) Update(ctx context.Context, hospitalID, id string, patch Patch) (*Result, error) {
	result, ok, err := s.store.Get(ctx, hospitalID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	if patch.Status != nil {
		result.Status = *patch.Status
	}
	if patch.Notes != nil {
		result.Notes = *patch.Notes
	}
	if patch.AssignedDoctorID != nil {
		result.AssignedDoctorID = *patch.AssignedDoctorID
	}
	result.UpdatedAt = time.Now().UTC()

	if err := s.store.Put(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// History returns the archived prior versions for a patient, newest first.
func (s *Service) History(ctx context.Context, hospitalID, patientID string) ([]*Result, error) {
	return s.store.ListArchived(ctx, hospitalID, patientID)
}

// afterCreate runs the post-persist side effects. Failures here never fail
// the intake; they are logged and metered.
func (s *Service) afterCreate(ctx context.Context, result *Result) {
	L := s.logger.With("triage_id", result.ID, "patient_id", result.PatientID)

	if s.notifier != nil && result.Assessment.RiskLevel == RiskHigh {
		if err := s.notifier.NotifyHighPriority(ctx, result); err != nil {
			L.Error(ctx, err, "high-priority notification failed")
			s.countNotify("error")
		} else {
			s.countNotify("sent")
		}
	}

	if s.narrator == nil {
		return
	}
	narrative, err := s.narrator.Narrate(ctx, result)
	if err != nil {
		L.Error(ctx, err, "narrative generation failed")
		return
	}
	if narrative == "" {
		return
	}

	// Re-read before writing: the clinician may have patched the record
	// while the narrative was generating.
	current, ok, err := s.store.Get(ctx, result.HospitalID, result.ID)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch result for narrative")
		return
	}
	if current.Version != result.Version {
		return
	}
	current.Narrative = narrative
	current.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(ctx, current); err != nil {
		L.Error(ctx, err, "failed to persist narrative")
	}
}

func (s *Service) countSubmit(result string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countNotify(result string) {
	if s.metrics != nil {
		s.metrics.NotificationsTotal.WithLabelValues(result).Inc()
	}
}
