// Package pgstore provides a PostgreSQL implementation of hospital.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/ward/internal/hospital"
)

var tracer = otel.Tracer("github.com/linnemanlabs/ward/internal/hospital/pgstore")

//go:embed schema.sql
var schema string

// Store persists the hospital directory in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store over an existing pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) span(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// PutPatient inserts or updates a patient (upsert on id).
func (s *Store) PutPatient(ctx context.Context, p *hospital.Patient) error {
	ctx, span := s.span(ctx, "pgstore.PutPatient", "UPSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO patients (
			id, hospital_id, name, gender, age, blood_group, contact_number,
			guardian_name, guardian_contact, is_active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			name             = EXCLUDED.name,
			gender           = EXCLUDED.gender,
			age              = EXCLUDED.age,
			blood_group      = EXCLUDED.blood_group,
			contact_number   = EXCLUDED.contact_number,
			guardian_name    = EXCLUDED.guardian_name,
			guardian_contact = EXCLUDED.guardian_contact,
			is_active        = EXCLUDED.is_active,
			updated_at       = EXCLUDED.updated_at`,
		p.ID, p.HospitalID, p.Name, p.Gender, p.Age, p.BloodGroup, p.ContactNumber,
		p.GuardianName, p.GuardianContact, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fail(span, fmt.Errorf("upsert patient: %w", err))
	}
	return nil
}

// GetPatient retrieves a patient by ID within a hospital.
func (s *Store) GetPatient(ctx context.Context, hospitalID, id string) (*hospital.Patient, bool, error) {
	ctx, span := s.span(ctx, "pgstore.GetPatient", "SELECT")
	defer span.End()

	var p hospital.Patient
	err := s.pool.QueryRow(ctx,
		`SELECT id, hospital_id, name, gender, age, blood_group, contact_number,
			guardian_name, guardian_contact, is_active, created_at, updated_at
		 FROM patients WHERE hospital_id = $1 AND id = $2`,
		hospitalID, id,
	).Scan(&p.ID, &p.HospitalID, &p.Name, &p.Gender, &p.Age, &p.BloodGroup, &p.ContactNumber,
		&p.GuardianName, &p.GuardianContact, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, fmt.Errorf("scan patient: %w", err))
	}
	return &p, true, nil
}

// ListPatients returns the hospital's active patients, newest first.
func (s *Store) ListPatients(ctx context.Context, hospitalID string) ([]*hospital.Patient, error) {
	ctx, span := s.span(ctx, "pgstore.ListPatients", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, hospital_id, name, gender, age, blood_group, contact_number,
			guardian_name, guardian_contact, is_active, created_at, updated_at
		 FROM patients WHERE hospital_id = $1 AND is_active ORDER BY created_at DESC`,
		hospitalID,
	)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query patients: %w", err))
	}
	defer rows.Close()

	var out []*hospital.Patient
	for rows.Next() {
		var p hospital.Patient
		if err := rows.Scan(&p.ID, &p.HospitalID, &p.Name, &p.Gender, &p.Age, &p.BloodGroup, &p.ContactNumber,
			&p.GuardianName, &p.GuardianContact, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fail(span, fmt.Errorf("scan patient: %w", err))
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate patients: %w", err))
	}
	return out, nil
}

// PutDoctor inserts or updates a doctor (upsert on id).
func (s *Store) PutDoctor(ctx context.Context, d *hospital.Doctor) error {
	ctx, span := s.span(ctx, "pgstore.PutDoctor", "UPSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO doctors (
			id, hospital_id, name, department, contact_number, email,
			is_active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			name           = EXCLUDED.name,
			department     = EXCLUDED.department,
			contact_number = EXCLUDED.contact_number,
			email          = EXCLUDED.email,
			is_active      = EXCLUDED.is_active,
			updated_at     = EXCLUDED.updated_at`,
		d.ID, d.HospitalID, d.Name, d.Department, d.ContactNumber, d.Email,
		d.IsActive, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fail(span, fmt.Errorf("upsert doctor: %w", err))
	}
	return nil
}

// GetDoctor retrieves a doctor by ID within a hospital.
func (s *Store) GetDoctor(ctx context.Context, hospitalID, id string) (*hospital.Doctor, bool, error) {
	ctx, span := s.span(ctx, "pgstore.GetDoctor", "SELECT")
	defer span.End()

	var d hospital.Doctor
	err := s.pool.QueryRow(ctx,
		`SELECT id, hospital_id, name, department, contact_number, email, is_active, created_at, updated_at
		 FROM doctors WHERE hospital_id = $1 AND id = $2`,
		hospitalID, id,
	).Scan(&d.ID, &d.HospitalID, &d.Name, &d.Department, &d.ContactNumber, &d.Email,
		&d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, fmt.Errorf("scan doctor: %w", err))
	}
	return &d, true, nil
}

// ListDoctors returns the hospital's active doctors, newest first.
func (s *Store) ListDoctors(ctx context.Context, hospitalID string) ([]*hospital.Doctor, error) {
	ctx, span := s.span(ctx, "pgstore.ListDoctors", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, hospital_id, name, department, contact_number, email, is_active, created_at, updated_at
		 FROM doctors WHERE hospital_id = $1 AND is_active ORDER BY created_at DESC`,
		hospitalID,
	)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query doctors: %w", err))
	}
	defer rows.Close()

	var out []*hospital.Doctor
	for rows.Next() {
		var d hospital.Doctor
		if err := rows.Scan(&d.ID, &d.HospitalID, &d.Name, &d.Department, &d.ContactNumber, &d.Email,
			&d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fail(span, fmt.Errorf("scan doctor: %w", err))
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate doctors: %w", err))
	}
	return out, nil
}

// PutNurse inserts or updates a nurse (upsert on id).
func (s *Store) PutNurse(ctx context.Context, n *hospital.Nurse) error {
	ctx, span := s.span(ctx, "pgstore.PutNurse", "UPSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO nurses (
			id, hospital_id, name, contact_number, email, is_active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			name           = EXCLUDED.name,
			contact_number = EXCLUDED.contact_number,
			email          = EXCLUDED.email,
			is_active      = EXCLUDED.is_active,
			updated_at     = EXCLUDED.updated_at`,
		n.ID, n.HospitalID, n.Name, n.ContactNumber, n.Email, n.IsActive, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fail(span, fmt.Errorf("upsert nurse: %w", err))
	}
	return nil
}

// GetNurse retrieves a nurse by ID within a hospital.
func (s *Store) GetNurse(ctx context.Context, hospitalID, id string) (*hospital.Nurse, bool, error) {
	ctx, span := s.span(ctx, "pgstore.GetNurse", "SELECT")
	defer span.End()

	var n hospital.Nurse
	err := s.pool.QueryRow(ctx,
		`SELECT id, hospital_id, name, contact_number, email, is_active, created_at, updated_at
		 FROM nurses WHERE hospital_id = $1 AND id = $2`,
		hospitalID, id,
	).Scan(&n.ID, &n.HospitalID, &n.Name, &n.ContactNumber, &n.Email, &n.IsActive, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, fmt.Errorf("scan nurse: %w", err))
	}
	return &n, true, nil
}

// ListNurses returns the hospital's active nurses, newest first.
func (s *Store) ListNurses(ctx context.Context, hospitalID string) ([]*hospital.Nurse, error) {
	ctx, span := s.span(ctx, "pgstore.ListNurses", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, hospital_id, name, contact_number, email, is_active, created_at, updated_at
		 FROM nurses WHERE hospital_id = $1 AND is_active ORDER BY created_at DESC`,
		hospitalID,
	)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query nurses: %w", err))
	}
	defer rows.Close()

	var out []*hospital.Nurse
	for rows.Next() {
		var n hospital.Nurse
		if err := rows.Scan(&n.ID, &n.HospitalID, &n.Name, &n.ContactNumber, &n.Email,
			&n.IsActive, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fail(span, fmt.Errorf("scan nurse: %w", err))
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate nurses: %w", err))
	}
	return out, nil
}

// PutAppointment inserts or updates an appointment (upsert on id).
func (s *Store) PutAppointment(ctx context.Context, a *hospital.Appointment) error {
	ctx, span := s.span(ctx, "pgstore.PutAppointment", "UPSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO appointments (
			id, hospital_id, patient_id, doctor_id, department, scheduled_at,
			reason, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			doctor_id    = EXCLUDED.doctor_id,
			department   = EXCLUDED.department,
			scheduled_at = EXCLUDED.scheduled_at,
			reason       = EXCLUDED.reason,
			status       = EXCLUDED.status,
			updated_at   = EXCLUDED.updated_at`,
		a.ID, a.HospitalID, a.PatientID, a.DoctorID, a.Department, a.ScheduledAt,
		a.Reason, string(a.Status), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fail(span, fmt.Errorf("upsert appointment: %w", err))
	}
	return nil
}

// GetAppointment retrieves an appointment by ID within a hospital.
func (s *Store) GetAppointment(ctx context.Context, hospitalID, id string) (*hospital.Appointment, bool, error) {
	ctx, span := s.span(ctx, "pgstore.GetAppointment", "SELECT")
	defer span.End()

	var (
		a      hospital.Appointment
		status string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, hospital_id, patient_id, doctor_id, department, scheduled_at,
			reason, status, created_at, updated_at
		 FROM appointments WHERE hospital_id = $1 AND id = $2`,
		hospitalID, id,
	).Scan(&a.ID, &a.HospitalID, &a.PatientID, &a.DoctorID, &a.Department, &a.ScheduledAt,
		&a.Reason, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, fmt.Errorf("scan appointment: %w", err))
	}
	a.Status = hospital.AppointmentStatus(status)
	return &a, true, nil
}

// ListAppointments returns appointments ordered by scheduled time,
// optionally filtered by patient.
func (s *Store) ListAppointments(ctx context.Context, hospitalID, patientID string) ([]*hospital.Appointment, error) {
	ctx, span := s.span(ctx, "pgstore.ListAppointments", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, hospital_id, patient_id, doctor_id, department, scheduled_at,
			reason, status, created_at, updated_at
		 FROM appointments
		 WHERE hospital_id = $1 AND ($2 = '' OR patient_id = $2)
		 ORDER BY scheduled_at`,
		hospitalID, patientID,
	)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query appointments: %w", err))
	}
	defer rows.Close()

	var out []*hospital.Appointment
	for rows.Next() {
		var (
			a      hospital.Appointment
			status string
		)
		if err := rows.Scan(&a.ID, &a.HospitalID, &a.PatientID, &a.DoctorID, &a.Department, &a.ScheduledAt,
			&a.Reason, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fail(span, fmt.Errorf("scan appointment: %w", err))
		}
		a.Status = hospital.AppointmentStatus(status)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate appointments: %w", err))
	}
	return out, nil
}
