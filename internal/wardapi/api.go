// Package wardapi exposes the HTTP surface: triage intake and review,
// the hospital directory, and token issuance.
package wardapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/ward/internal/auth"
	"github.com/linnemanlabs/ward/internal/hospital"
	"github.com/linnemanlabs/ward/internal/triage"
)

// TriageService defines the triage operations the API needs.
type TriageService interface {
	Create(ctx context.Context, hospitalID, nurseID string, sub *triage.Submission) (*triage.Result, error)
	Preview(ctx context.Context, sub *triage.Submission) *triage.Assessment
	Get(ctx context.Context, hospitalID, id string) (*triage.Result, error)
	List(ctx context.Context, f triage.Filter) ([]*triage.Result, int, error)
	Update(ctx context.Context, hospitalID, id string, patch triage.Patch) (*triage.Result, error)
	History(ctx context.Context, hospitalID, patientID string) ([]*triage.Result, error)
}

// DirectoryService defines the hospital directory operations the API needs.
type DirectoryService interface {
	CreatePatient(ctx context.Context, p *hospital.Patient) error
	GetPatient(ctx context.Context, hospitalID, id string) (*hospital.Patient, error)
	ListPatients(ctx context.Context, hospitalID string) ([]*hospital.Patient, error)
	UpdatePatient(ctx context.Context, p *hospital.Patient) error
	DeactivatePatient(ctx context.Context, hospitalID, id string) error

	CreateDoctor(ctx context.Context, d *hospital.Doctor) error
	GetDoctor(ctx context.Context, hospitalID, id string) (*hospital.Doctor, error)
	ListDoctors(ctx context.Context, hospitalID string) ([]*hospital.Doctor, error)
	DeactivateDoctor(ctx context.Context, hospitalID, id string) error

	CreateNurse(ctx context.Context, n *hospital.Nurse) error
	GetNurse(ctx context.Context, hospitalID, id string) (*hospital.Nurse, error)
	ListNurses(ctx context.Context, hospitalID string) ([]*hospital.Nurse, error)
	DeactivateNurse(ctx context.Context, hospitalID, id string) error

	CreateAppointment(ctx context.Context, a *hospital.Appointment) error
	GetAppointment(ctx context.Context, hospitalID, id string) (*hospital.Appointment, error)
	ListAppointments(ctx context.Context, hospitalID, patientID string) ([]*hospital.Appointment, error)
	SetAppointmentStatus(ctx context.Context, hospitalID, id string, status hospital.AppointmentStatus) (*hospital.Appointment, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger     log.Logger
	triage     TriageService
	directory  DirectoryService
	issuer     *auth.Issuer
	accessCode string
}

// New creates a new API handler.
func New(logger log.Logger, triageSvc TriageService, directory DirectoryService, issuer *auth.Issuer, accessCode string) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if triageSvc == nil {
		panic(xerrors.New("triage service is required"))
	}
	if directory == nil {
		panic(xerrors.New("directory service is required"))
	}
	if issuer == nil {
		panic(xerrors.New("auth issuer is required"))
	}
	return &API{
		logger:     logger,
		triage:     triageSvc,
		directory:  directory,
		issuer:     issuer,
		accessCode: accessCode,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/token", a.handleIssueToken)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(a.issuer))

			r.Route("/triage", func(r chi.Router) {
				r.With(auth.RequireRole(auth.RoleNurse, auth.RoleAdmin)).
					Post("/", a.handleCreateTriage)
				r.With(auth.RequireRole(auth.RoleNurse, auth.RoleDoctor, auth.RoleAdmin)).
					Post("/preview", a.handlePreviewTriage)
				r.Get("/", a.handleListTriage)
				r.Get("/{id}", a.handleGetTriage)
				r.With(auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin)).
					Put("/{id}", a.handleUpdateTriage)
			})

			r.Route("/patients", func(r chi.Router) {
				r.Post("/", a.handleCreatePatient)
				r.Get("/", a.handleListPatients)
				r.Get("/{id}", a.handleGetPatient)
				r.Put("/{id}", a.handleUpdatePatient)
				r.With(auth.RequireRole(auth.RoleAdmin)).
					Delete("/{id}", a.handleDeactivatePatient)
				r.Get("/{id}/triage-history", a.handleTriageHistory)
			})

			r.Route("/doctors", func(r chi.Router) {
				r.With(auth.RequireRole(auth.RoleAdmin)).Post("/", a.handleCreateDoctor)
				r.Get("/", a.handleListDoctors)
				r.Get("/{id}", a.handleGetDoctor)
				r.With(auth.RequireRole(auth.RoleAdmin)).Delete("/{id}", a.handleDeactivateDoctor)
			})

			r.Route("/nurses", func(r chi.Router) {
				r.With(auth.RequireRole(auth.RoleAdmin)).Post("/", a.handleCreateNurse)
				r.Get("/", a.handleListNurses)
				r.Get("/{id}", a.handleGetNurse)
				r.With(auth.RequireRole(auth.RoleAdmin)).Delete("/{id}", a.handleDeactivateNurse)
			})

			r.Route("/appointments", func(r chi.Router) {
				r.Post("/", a.handleCreateAppointment)
				r.Get("/", a.handleListAppointments)
				r.Get("/{id}", a.handleGetAppointment)
				r.Put("/{id}/status", a.handleSetAppointmentStatus)
			})
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// claims pulls the verified claims the auth middleware attached. Routes
// registered behind the middleware always have them.
func claims(r *http.Request) *auth.Claims {
	c, _ := auth.ClaimsFromContext(r.Context())
	return c
}
