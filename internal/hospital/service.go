package hospital

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/ward/internal/triage"
)

// ErrNotFound is returned when the requested record does not exist within
// the caller's hospital.
var ErrNotFound = errors.New("hospital record not found")

// ID prefixes for generated record identifiers.
const (
	patientIDPrefix     = "PAT-"
	doctorIDPrefix      = "DOC-"
	nurseIDPrefix       = "NUR-"
	appointmentIDPrefix = "APT-"
)

// Service is the business boundary for the hospital directory.
type Service struct {
	store  Store
	logger log.Logger
}

// NewService creates a new hospital directory service.
func NewService(store Store, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{store: store, logger: logger}
}

// newID generates a prefixed record identifier, e.g. "PAT-9FC41A07".
func newID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + strings.ToUpper(raw[:8])
}

// EnsurePatient resolves the patient a triage submission belongs to,
// registering a new record when the submission carries no known ID. It
// implements triage.PatientDirectory.
func (s *Service) EnsurePatient(ctx context.Context, hospitalID string, sub *triage.Submission) (string, error) {
	if id := strings.TrimSpace(sub.PatientID); id != "" {
		if _, ok, err := s.store.GetPatient(ctx, hospitalID, id); err != nil {
			return "", err
		} else if ok {
			return id, nil
		}
	}

	now := time.Now().UTC()
	p := &Patient{
		ID:              newID(patientIDPrefix),
		HospitalID:      hospitalID,
		Name:            sub.Name,
		Gender:          sub.Gender,
		Age:             sub.Age.IntOr(0),
		BloodGroup:      sub.BloodGroup,
		ContactNumber:   sub.ContactNumber,
		GuardianName:    sub.GuardianName,
		GuardianContact: sub.GuardianContact,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.PutPatient(ctx, p); err != nil {
		return "", err
	}

	s.logger.Info(ctx, "patient registered",
		"hospital_id", hospitalID,
		"patient_id", p.ID,
	)
	return p.ID, nil
}

// CreatePatient registers a patient, assigning its ID and timestamps.
func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	now := time.Now().UTC()
	p.ID = newID(patientIDPrefix)
	p.IsActive = true
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.store.PutPatient(ctx, p)
}

// GetPatient retrieves a patient by ID.
func (s *Service) GetPatient(ctx context.Context, hospitalID, id string) (*Patient, error) {
	p, ok, err := s.store.GetPatient(ctx, hospitalID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// ListPatients returns the hospital's active patients.
func (s *Service) ListPatients(ctx context.Context, hospitalID string) ([]*Patient, error) {
	return s.store.ListPatients(ctx, hospitalID)
}

// UpdatePatient replaces a patient's mutable fields.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	existing, ok, err := s.store.GetPatient(ctx, p.HospitalID, p.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	p.IsActive = existing.IsActive
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	return s.store.PutPatient(ctx, p)
}

// DeactivatePatient soft-deletes a patient.
func (s *Service) DeactivatePatient(ctx context.Context, hospitalID, id string) error {
	p, ok, err := s.store.GetPatient(ctx, hospitalID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	p.IsActive = false
	p.UpdatedAt = time.Now().UTC()
	return s.store.PutPatient(ctx, p)
}

// CreateDoctor registers a doctor.
func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	now := time.Now().UTC()
	d.ID = newID(doctorIDPrefix)
	d.IsActive = true
	d.CreatedAt = now
	d.UpdatedAt = now
	return s.store.PutDoctor(ctx, d)
}

// GetDoctor retrieves a doctor by ID.
func (s *Service) GetDoctor(ctx context.Context, hospitalID, id string) (*Doctor, error) {
	d, ok, err := s.store.GetDoctor(ctx, hospitalID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// ListDoctors returns the hospital's active doctors.
func (s *Service) ListDoctors(ctx context.Context, hospitalID string) ([]*Doctor, error) {
	return s.store.ListDoctors(ctx, hospitalID)
}

// DeactivateDoctor soft-deletes a doctor.
func (s *Service) DeactivateDoctor(ctx context.Context, hospitalID, id string) error {
	d, ok, err := s.store.GetDoctor(ctx, hospitalID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	d.IsActive = false
	d.UpdatedAt = time.Now().UTC()
	return s.store.PutDoctor(ctx, d)
}

// CreateNurse registers a nurse.
func (s *Service) CreateNurse(ctx context.Context, n *Nurse) error {
	now := time.Now().UTC()
	n.ID = newID(nurseIDPrefix)
	n.IsActive = true
	n.CreatedAt = now
	n.UpdatedAt = now
	return s.store.PutNurse(ctx, n)
}

// GetNurse retrieves a nurse by ID.
func (s *Service) GetNurse(ctx context.Context, hospitalID, id string) (*Nurse, error) {
	n, ok, err := s.store.GetNurse(ctx, hospitalID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// ListNurses returns the hospital's active nurses.
func (s *Service) ListNurses(ctx context.Context, hospitalID string) ([]*Nurse, error) {
	return s.store.ListNurses(ctx, hospitalID)
}

// DeactivateNurse soft-deletes a nurse.
func (s *Service) DeactivateNurse(ctx context.Context, hospitalID, id string) error {
	n, ok, err := s.store.GetNurse(ctx, hospitalID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	n.IsActive = false
	n.UpdatedAt = time.Now().UTC()
	return s.store.PutNurse(ctx, n)
}

// CreateAppointment schedules an appointment, validating that both the
// patient and the doctor exist.
func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if _, err := s.GetPatient(ctx, a.HospitalID, a.PatientID); err != nil {
		return err
	}
	doctor, err := s.GetDoctor(ctx, a.HospitalID, a.DoctorID)
	if err != nil {
		return err
	}
	if a.Department == "" {
		a.Department = doctor.Department
	}

	now := time.Now().UTC()
	a.ID = newID(appointmentIDPrefix)
	a.Status = AppointmentScheduled
	a.CreatedAt = now
	a.UpdatedAt = now
	return s.store.PutAppointment(ctx, a)
}

// GetAppointment retrieves an appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, hospitalID, id string) (*Appointment, error) {
	a, ok, err := s.store.GetAppointment(ctx, hospitalID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// ListAppointments returns appointments, optionally filtered by patient.
func (s *Service) ListAppointments(ctx context.Context, hospitalID, patientID string) ([]*Appointment, error) {
	return s.store.ListAppointments(ctx, hospitalID, patientID)
}

// SetAppointmentStatus moves an appointment through its lifecycle.
func (s *Service) SetAppointmentStatus(ctx context.Context, hospitalID, id string, status AppointmentStatus) (*Appointment, error) {
	a, ok, err := s.store.GetAppointment(ctx, hospitalID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	if err := s.store.PutAppointment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
