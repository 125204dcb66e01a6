package hospital

import "context"

// Store is the persistence interface for the hospital directory. Reads are
// scoped by hospital; List calls return active records only.
type Store interface {
	PutPatient(ctx context.Context, p *Patient) error
	GetPatient(ctx context.Context, hospitalID, id string) (*Patient, bool, error)
	ListPatients(ctx context.Context, hospitalID string) ([]*Patient, error)

	PutDoctor(ctx context.Context, d *Doctor) error
	GetDoctor(ctx context.Context, hospitalID, id string) (*Doctor, bool, error)
	ListDoctors(ctx context.Context, hospitalID string) ([]*Doctor, error)

	PutNurse(ctx context.Context, n *Nurse) error
	GetNurse(ctx context.Context, hospitalID, id string) (*Nurse, bool, error)
	ListNurses(ctx context.Context, hospitalID string) ([]*Nurse, error)

	PutAppointment(ctx context.Context, a *Appointment) error
	GetAppointment(ctx context.Context, hospitalID, id string) (*Appointment, bool, error)
	ListAppointments(ctx context.Context, hospitalID, patientID string) ([]*Appointment, error)
}
