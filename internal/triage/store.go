package triage

import "context"

// Filter narrows a List call. Zero values match everything; Page is
// 1-based and Limit caps the page size.
type Filter struct {
	HospitalID string
	PatientID  string
	Status     Status
	Page       int
	Limit      int
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Normalize clamps paging to sane bounds.
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
}

// Store is the persistence interface for triage results. Reads are scoped
// by hospital so one tenant can never see another's assessments.
type Store interface {
	Put(ctx context.Context, result *Result) error
	Get(ctx context.Context, hospitalID, id string) (*Result, bool, error)
	GetLatestByPatient(ctx context.Context, hospitalID, patientID string) (*Result, bool, error)
	List(ctx context.Context, f Filter) ([]*Result, int, error)

	// Archive snapshots a superseded result version before Put replaces it.
	Archive(ctx context.Context, result *Result) error
	ListArchived(ctx context.Context, hospitalID, patientID string) ([]*Result, error)
}
