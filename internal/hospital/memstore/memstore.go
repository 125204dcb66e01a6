// Package memstore provides an in-memory implementation of hospital.Store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/linnemanlabs/ward/internal/hospital"
)

// Store holds directory records in memory. Suitable for dev/testing.
type Store struct {
	mu           sync.RWMutex
	patients     map[string]*hospital.Patient
	doctors      map[string]*hospital.Doctor
	nurses       map[string]*hospital.Nurse
	appointments map[string]*hospital.Appointment
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		patients:     make(map[string]*hospital.Patient),
		doctors:      make(map[string]*hospital.Doctor),
		nurses:       make(map[string]*hospital.Nurse),
		appointments: make(map[string]*hospital.Appointment),
	}
}

// PutPatient stores a copy of the patient.
func (s *Store) PutPatient(_ context.Context, p *hospital.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.patients[p.ID] = &cp
	return nil
}

// GetPatient retrieves a patient by ID within a hospital. Returns a copy.
func (s *Store) GetPatient(_ context.Context, hospitalID, id string) (*hospital.Patient, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok || p.HospitalID != hospitalID {
		return nil, false, nil
	}
	cp := *p
	return &cp, true, nil
}

// ListPatients returns the hospital's active patients, newest first.
func (s *Store) ListPatients(_ context.Context, hospitalID string) ([]*hospital.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*hospital.Patient
	for _, p := range s.patients {
		if p.HospitalID != hospitalID || !p.IsActive {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// PutDoctor stores a copy of the doctor.
func (s *Store) PutDoctor(_ context.Context, d *hospital.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.doctors[d.ID] = &cp
	return nil
}

// GetDoctor retrieves a doctor by ID within a hospital. Returns a copy.
func (s *Store) GetDoctor(_ context.Context, hospitalID, id string) (*hospital.Doctor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok || d.HospitalID != hospitalID {
		return nil, false, nil
	}
	cp := *d
	return &cp, true, nil
}

// ListDoctors returns the hospital's active doctors, newest first.
func (s *Store) ListDoctors(_ context.Context, hospitalID string) ([]*hospital.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*hospital.Doctor
	for _, d := range s.doctors {
		if d.HospitalID != hospitalID || !d.IsActive {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// PutNurse stores a copy of the nurse.
func (s *Store) PutNurse(_ context.Context, n *hospital.Nurse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.nurses[n.ID] = &cp
	return nil
}

// GetNurse retrieves a nurse by ID within a hospital. Returns a copy.
func (s *Store) GetNurse(_ context.Context, hospitalID, id string) (*hospital.Nurse, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nurses[id]
	if !ok || n.HospitalID != hospitalID {
		return nil, false, nil
	}
	cp := *n
	return &cp, true, nil
}

// ListNurses returns the hospital's active nurses, newest first.
func (s *Store) ListNurses(_ context.Context, hospitalID string) ([]*hospital.Nurse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*hospital.Nurse
	for _, n := range s.nurses {
		if n.HospitalID != hospitalID || !n.IsActive {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// PutAppointment stores a copy of the appointment.
func (s *Store) PutAppointment(_ context.Context, a *hospital.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.appointments[a.ID] = &cp
	return nil
}

// GetAppointment retrieves an appointment by ID within a hospital. Returns a copy.
func (s *Store) GetAppointment(_ context.Context, hospitalID, id string) (*hospital.Appointment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok || a.HospitalID != hospitalID {
		return nil, false, nil
	}
	cp := *a
	return &cp, true, nil
}

// ListAppointments returns appointments ordered by scheduled time,
// optionally filtered by patient.
func (s *Store) ListAppointments(_ context.Context, hospitalID, patientID string) ([]*hospital.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*hospital.Appointment
	for _, a := range s.appointments {
		if a.HospitalID != hospitalID {
			continue
		}
		if patientID != "" && a.PatientID != patientID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}
