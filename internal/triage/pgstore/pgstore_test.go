package pgstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/linnemanlabs/ward/internal/postgres"
	"github.com/linnemanlabs/ward/internal/triage"
	"github.com/linnemanlabs/ward/internal/triage/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("WARD_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("WARD_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func TestPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	r := &triage.Result{
		ID:         "test-put-get-001",
		HospitalID: "hosp-put-get",
		PatientID:  "PAT-PUTGET01",
		NurseID:    "NUR-1",
		Status:     triage.StatusPending,
		Submission: triage.Submission{
			Name:          "Jane Roe",
			Age:           triage.Num(58),
			BloodPressure: "165/95",
			HeartRate:     triage.Num(126),
			Symptoms:      triage.StringList{"chest pain", "dizziness"},
		},
		Assessment: triage.Assessment{
			RiskLevel:             triage.RiskHigh,
			PriorityScore:         81.5,
			RecommendedDepartment: triage.DeptCardiology,
			Confidence:            0.84,
			RecommendedTests:      []string{"ECG", "Troponin Levels"},
			RiskModelUsed:         true,
		},
		Notes:     "arrived by ambulance",
		Narrative: "High-risk cardiac presentation.",
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, r.HospitalID, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}

	assertEqual(t, "ID", r.ID, got.ID)
	assertEqual(t, "HospitalID", r.HospitalID, got.HospitalID)
	assertEqual(t, "PatientID", r.PatientID, got.PatientID)
	assertEqual(t, "NurseID", r.NurseID, got.NurseID)
	assertEqual(t, "Status", string(r.Status), string(got.Status))
	assertEqual(t, "Notes", r.Notes, got.Notes)
	assertEqual(t, "Narrative", r.Narrative, got.Narrative)
	assertEqual(t, "Version", r.Version, got.Version)
	assertEqual(t, "Submission.Name", r.Submission.Name, got.Submission.Name)
	assertEqual(t, "Submission.BloodPressure", r.Submission.BloodPressure, got.Submission.BloodPressure)
	assertEqual(t, "Assessment.RiskLevel", string(r.Assessment.RiskLevel), string(got.Assessment.RiskLevel))
	assertEqual(t, "Assessment.PriorityScore", r.Assessment.PriorityScore, got.Assessment.PriorityScore)
	assertEqual(t, "Assessment.RiskModelUsed", r.Assessment.RiskModelUsed, got.Assessment.RiskModelUsed)

	if len(got.Submission.Symptoms) != 2 || got.Submission.Symptoms[0] != "chest pain" {
		t.Errorf("Symptoms mismatch: got %v", got.Submission.Symptoms)
	}
	if len(got.Assessment.RecommendedTests) != 2 || got.Assessment.RecommendedTests[0] != "ECG" {
		t.Errorf("RecommendedTests mismatch: got %v", got.Assessment.RecommendedTests)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "hosp-missing", "nonexistent-id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get returned ok=true for nonexistent ID")
	}
}

func TestGetScopedByHospital(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	r := &triage.Result{
		ID:         "test-scope-001",
		HospitalID: "hosp-scope-a",
		PatientID:  "PAT-SCOPE01",
		Status:     triage.StatusPending,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, ok, err := s.Get(ctx, "hosp-scope-b", r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get returned ok=true across hospitals")
	}
}

func TestGetLatestByPatient(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	r := &triage.Result{
		ID:         "test-latest-001",
		HospitalID: "hosp-latest",
		PatientID:  "PAT-LATEST01",
		Status:     triage.StatusPending,
		Version:    3,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.GetLatestByPatient(ctx, r.HospitalID, r.PatientID)
	if err != nil {
		t.Fatalf("GetLatestByPatient: %v", err)
	}
	if !ok {
		t.Fatal("GetLatestByPatient returned ok=false")
	}
	assertEqual(t, "ID", r.ID, got.ID)
	assertEqual(t, "Version", 3, got.Version)

	_, ok, err = s.GetLatestByPatient(ctx, r.HospitalID, "PAT-NOPE")
	if err != nil {
		t.Fatalf("GetLatestByPatient missing: %v", err)
	}
	if ok {
		t.Error("GetLatestByPatient returned ok=true for unknown patient")
	}
}

func TestUpsert(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	r := &triage.Result{
		ID:         "test-upsert-001",
		HospitalID: "hosp-upsert",
		PatientID:  "PAT-UPSERT01",
		Status:     triage.StatusPending,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put initial: %v", err)
	}

	r.Status = triage.StatusCompleted
	r.AssignedDoctorID = "DOC-9"
	r.Notes = "seen and discharged"
	r.Narrative = "Resolved without admission."
	r.Version = 2
	r.UpdatedAt = now.Add(time.Minute)

	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put update: %v", err)
	}

	got, ok, err := s.Get(ctx, r.HospitalID, r.ID)
	if err != nil {
		t.Fatalf("Get after upsert: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false after upsert")
	}

	assertEqual(t, "Status", string(triage.StatusCompleted), string(got.Status))
	assertEqual(t, "AssignedDoctorID", "DOC-9", got.AssignedDoctorID)
	assertEqual(t, "Notes", "seen and discharged", got.Notes)
	assertEqual(t, "Narrative", "Resolved without admission.", got.Narrative)
	assertEqual(t, "Version", 2, got.Version)
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt changed on upsert: got %v, want %v", got.CreatedAt, now)
	}
}

func TestListFilterAndPaging(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	const hospital = "hosp-list-unique"
	now := time.Now().Truncate(time.Microsecond).UTC()

	for i := range 5 {
		status := triage.StatusPending
		if i == 0 {
			status = triage.StatusCompleted
		}
		r := &triage.Result{
			ID:         fmt.Sprintf("test-list-%03d", i+1),
			HospitalID: hospital,
			PatientID:  fmt.Sprintf("PAT-LIST%02d", i+1),
			Status:     status,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Put(ctx, r); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}

	all, total, err := s.List(ctx, triage.Filter{HospitalID: hospital})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	assertEqual(t, "total", 5, total)
	if len(all) != 5 {
		t.Fatalf("page = %d, want 5", len(all))
	}
	// Newest first.
	assertEqual(t, "first", "test-list-005", all[0].ID)

	page2, total, err := s.List(ctx, triage.Filter{HospitalID: hospital, Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	assertEqual(t, "total", 5, total)
	if len(page2) != 2 {
		t.Fatalf("page = %d, want 2", len(page2))
	}
	assertEqual(t, "page2[0]", "test-list-003", page2[0].ID)

	completed, total, err := s.List(ctx, triage.Filter{HospitalID: hospital, Status: triage.StatusCompleted})
	if err != nil {
		t.Fatalf("List completed: %v", err)
	}
	assertEqual(t, "completed total", 1, total)
	if len(completed) != 1 || completed[0].ID != "test-list-001" {
		t.Errorf("completed = %v, want just test-list-001", completed)
	}
}

func TestArchiveAndListArchived(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()

	// The archive table has no unique key, so scope this run's rows to a
	// fresh patient ID.
	const hospital = "hosp-archive"
	patient := fmt.Sprintf("PAT-ARCH-%d", now.UnixNano())

	for v := 1; v <= 2; v++ {
		r := &triage.Result{
			ID:         "test-archive-001",
			HospitalID: hospital,
			PatientID:  patient,
			Status:     triage.StatusPending,
			Version:    v,
			CreatedAt:  now,
			UpdatedAt:  now.Add(time.Duration(v) * time.Minute),
		}
		if err := s.Archive(ctx, r); err != nil {
			t.Fatalf("Archive v%d: %v", v, err)
		}
	}

	got, err := s.ListArchived(ctx, hospital, patient)
	if err != nil {
		t.Fatalf("ListArchived: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("archived = %d, want 2", len(got))
	}
	// Newest version first.
	assertEqual(t, "versions[0]", 2, got[0].Version)
	assertEqual(t, "versions[1]", 1, got[1].Version)

	other, err := s.ListArchived(ctx, "hosp-other", patient)
	if err != nil {
		t.Fatalf("ListArchived cross-hospital: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("cross-hospital archived = %d, want 0", len(other))
	}
}

func assertEqual[T comparable](t *testing.T, field string, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("%s: got %v, want %v", field, got, want)
	}
}
