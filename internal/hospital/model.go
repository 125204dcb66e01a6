// Package hospital holds the operational directory: patients, staff, and
// appointments, scoped per hospital. Records are soft-deleted so historical
// triage results keep resolving.
package hospital

import "time"

// Patient is one registered patient within a hospital.
type Patient struct {
	ID         string `json:"id"`
	HospitalID string `json:"hospital_id"`

	Name            string `json:"name"`
	Gender          string `json:"gender,omitempty"`
	Age             int    `json:"age,omitempty"`
	BloodGroup      string `json:"blood_group,omitempty"`
	ContactNumber   string `json:"contact_number,omitempty"`
	GuardianName    string `json:"guardian_name,omitempty"`
	GuardianContact string `json:"guardian_contact,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Doctor is one staff physician.
type Doctor struct {
	ID         string `json:"id"`
	HospitalID string `json:"hospital_id"`

	Name          string `json:"name"`
	Department    string `json:"department,omitempty"`
	ContactNumber string `json:"contact_number,omitempty"`
	Email         string `json:"email,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Nurse is one triage or ward nurse.
type Nurse struct {
	ID         string `json:"id"`
	HospitalID string `json:"hospital_id"`

	Name          string `json:"name"`
	ContactNumber string `json:"contact_number,omitempty"`
	Email         string `json:"email,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppointmentStatus tracks an appointment's lifecycle.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment links a patient to a doctor at a scheduled time.
type Appointment struct {
	ID         string `json:"id"`
	HospitalID string `json:"hospital_id"`

	PatientID   string            `json:"patient_id"`
	DoctorID    string            `json:"doctor_id"`
	Department  string            `json:"department,omitempty"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	Reason      string            `json:"reason,omitempty"`
	Status      AppointmentStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
