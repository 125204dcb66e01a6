// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/linnemanlabs/ward/internal/triage"
)

// Store holds triage results in memory. Suitable for dev/testing.
type Store struct {
	mu        sync.RWMutex
	results   map[string]*triage.Result   // triage ID -> live result
	byPatient map[string]string           // hospitalID/patientID -> triage ID
	archived  map[string][]*triage.Result // hospitalID/patientID -> prior versions
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		results:   make(map[string]*triage.Result),
		byPatient: make(map[string]string),
		archived:  make(map[string][]*triage.Result),
	}
}

func patientKey(hospitalID, patientID string) string {
	return hospitalID + "/" + patientID
}

// Put stores a copy of the triage result.
func (s *Store) Put(_ context.Context, r *triage.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.results[r.ID] = &cp
	s.byPatient[patientKey(r.HospitalID, r.PatientID)] = r.ID
	return nil
}

// Get retrieves a triage result by its ID within a hospital. Returns a copy.
func (s *Store) Get(_ context.Context, hospitalID, id string) (*triage.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok || r.HospitalID != hospitalID {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// GetLatestByPatient retrieves the live result for a patient. Returns a copy.
func (s *Store) GetLatestByPatient(_ context.Context, hospitalID, patientID string) (*triage.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPatient[patientKey(hospitalID, patientID)]
	if !ok {
		return nil, false, nil
	}
	r, ok := s.results[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// List returns the filtered page, newest first, plus the unpaged total.
func (s *Store) List(_ context.Context, f triage.Filter) ([]*triage.Result, int, error) {
	f.Normalize()

	s.mu.RLock()
	var all []*triage.Result
	for _, r := range s.results {
		if f.HospitalID != "" && r.HospitalID != f.HospitalID {
			continue
		}
		if f.PatientID != "" && r.PatientID != f.PatientID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		cp := *r
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})

	total := len(all)
	start := (f.Page - 1) * f.Limit
	if start >= total {
		return nil, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

// Archive snapshots a superseded result version.
func (s *Store) Archive(_ context.Context, r *triage.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	key := patientKey(r.HospitalID, r.PatientID)
	s.archived[key] = append(s.archived[key], &cp)
	return nil
}

// ListArchived returns the archived versions for a patient, newest first.
func (s *Store) ListArchived(_ context.Context, hospitalID, patientID string) ([]*triage.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.archived[patientKey(hospitalID, patientID)]
	out := make([]*triage.Result, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		cp := *stored[i]
		out = append(out, &cp)
	}
	return out, nil
}
