// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/ward/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/ward/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists triage results in PostgreSQL. Submission and assessment
// payloads are stored as JSONB; the columns used for filtering and tenancy
// are split out.
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

const resultColumns = `id, hospital_id, patient_id, nurse_id, status, submission, assessment,
	assigned_doctor_id, notes, narrative, version, created_at, updated_at`

// Put inserts or updates a triage result (upsert on id).
func (s *Store) Put(ctx context.Context, r *triage.Result) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	submissionJSON, err := json.Marshal(r.Submission)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	assessmentJSON, err := json.Marshal(r.Assessment)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}

	query := `INSERT INTO triage_results (
		id, hospital_id, patient_id, nurse_id, status, submission, assessment,
		assigned_doctor_id, notes, narrative, version, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	ON CONFLICT (id) DO UPDATE SET
		status             = EXCLUDED.status,
		submission         = EXCLUDED.submission,
		assessment         = EXCLUDED.assessment,
		assigned_doctor_id = EXCLUDED.assigned_doctor_id,
		notes              = EXCLUDED.notes,
		narrative          = EXCLUDED.narrative,
		version            = EXCLUDED.version,
		updated_at         = EXCLUDED.updated_at`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.HospitalID, r.PatientID, r.NurseID, string(r.Status),
		submissionJSON, assessmentJSON,
		r.AssignedDoctorID, r.Notes, r.Narrative, r.Version, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert triage result: %w", err)
	}
	return nil
}

// Get retrieves a triage result by ID within a hospital.
func (s *Store) Get(ctx context.Context, hospitalID, id string) (*triage.Result, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + resultColumns + ` FROM triage_results WHERE hospital_id = $1 AND id = $2`
	r, err := scanResultRow(s.pool.QueryRow(ctx, query, hospitalID, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// GetLatestByPatient retrieves the live result for a patient.
func (s *Store) GetLatestByPatient(ctx context.Context, hospitalID, patientID string) (*triage.Result, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetLatestByPatient", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + resultColumns + ` FROM triage_results WHERE hospital_id = $1 AND patient_id = $2`
	r, err := scanResultRow(s.pool.QueryRow(ctx, query, hospitalID, patientID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// List returns the filtered page, newest first, plus the unpaged total.
func (s *Store) List(ctx context.Context, f triage.Filter) ([]*triage.Result, int, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	f.Normalize()

	where := `WHERE ($1 = '' OR hospital_id = $1)
		AND ($2 = '' OR patient_id = $2)
		AND ($3 = '' OR status = $3)`
	args := []any{f.HospitalID, f.PatientID, string(f.Status)}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM triage_results `+where, args...).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("count triage results: %w", err)
	}

	query := `SELECT ` + resultColumns + ` FROM triage_results ` + where +
		` ORDER BY updated_at DESC LIMIT $4 OFFSET $5`
	rows, err := s.pool.Query(ctx, query, append(args, f.Limit, (f.Page-1)*f.Limit)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("query triage results: %w", err)
	}
	defer rows.Close()

	results, err := collectResults(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}
	return results, total, nil
}

// Archive snapshots a superseded result version.
func (s *Store) Archive(ctx context.Context, r *triage.Result) error {
	ctx, span := tracer.Start(ctx, "pgstore.Archive", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	submissionJSON, err := json.Marshal(r.Submission)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	assessmentJSON, err := json.Marshal(r.Assessment)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO triage_archive (
			id, hospital_id, patient_id, nurse_id, status, submission, assessment,
			assigned_doctor_id, notes, narrative, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.ID, r.HospitalID, r.PatientID, r.NurseID, string(r.Status),
		submissionJSON, assessmentJSON,
		r.AssignedDoctorID, r.Notes, r.Narrative, r.Version, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("archive triage result: %w", err)
	}
	return nil
}

// ListArchived returns the archived versions for a patient, newest first.
func (s *Store) ListArchived(ctx context.Context, hospitalID, patientID string) ([]*triage.Result, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ListArchived", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + resultColumns + ` FROM triage_archive
		WHERE hospital_id = $1 AND patient_id = $2 ORDER BY version DESC`
	rows, err := s.pool.Query(ctx, query, hospitalID, patientID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query triage archive: %w", err)
	}
	defer rows.Close()

	results, err := collectResults(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return results, nil
}

func collectResults(rows pgx.Rows) ([]*triage.Result, error) {
	var results []*triage.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triage results: %w", err)
	}
	return results, nil
}

// scanResultRow scans a single row into a triage.Result.
// Returns (nil, nil) when no row is found.
func scanResultRow(row pgx.Row) (*triage.Result, error) {
	r, err := scanResult(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func scanResult(row pgx.Row) (*triage.Result, error) {
	var (
		r              triage.Result
		status         string
		submissionJSON []byte
		assessmentJSON []byte
	)
	err := row.Scan(
		&r.ID, &r.HospitalID, &r.PatientID, &r.NurseID, &status,
		&submissionJSON, &assessmentJSON,
		&r.AssignedDoctorID, &r.Notes, &r.Narrative, &r.Version, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Status = triage.Status(status)
	if err := json.Unmarshal(submissionJSON, &r.Submission); err != nil {
		return nil, fmt.Errorf("unmarshal submission: %w", err)
	}
	if err := json.Unmarshal(assessmentJSON, &r.Assessment); err != nil {
		return nil, fmt.Errorf("unmarshal assessment: %w", err)
	}
	return &r, nil
}
