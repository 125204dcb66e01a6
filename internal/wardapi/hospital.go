package wardapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/ward/internal/hospital"
)

func (a *API) directoryError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, hospital.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	a.logger.Error(r.Context(), err, msg)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (a *API) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var p hospital.Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	p.HospitalID = claims(r).HospitalID

	if err := a.directory.CreatePatient(r.Context(), &p); err != nil {
		a.directoryError(w, r, err, "failed to create patient")
		return
	}
	writeJSON(w, http.StatusCreated, &p)
}

func (a *API) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	p, err := a.directory.GetPatient(r.Context(), claims(r).HospitalID, chi.URLParam(r, "id"))
	if err != nil {
		a.directoryError(w, r, err, "failed to get patient")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := a.directory.ListPatients(r.Context(), claims(r).HospitalID)
	if err != nil {
		a.directoryError(w, r, err, "failed to list patients")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": patients})
}

func (a *API) handleUpdatePatient(w http.ResponseWriter, r *http.Request) {
	var p hospital.Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	p.ID = chi.URLParam(r, "id")
	p.HospitalID = claims(r).HospitalID

	if err := a.directory.UpdatePatient(r.Context(), &p); err != nil {
		a.directoryError(w, r, err, "failed to update patient")
		return
	}
	writeJSON(w, http.StatusOK, &p)
}

func (a *API) handleDeactivatePatient(w http.ResponseWriter, r *http.Request) {
	if err := a.directory.DeactivatePatient(r.Context(), claims(r).HospitalID, chi.URLParam(r, "id")); err != nil {
		a.directoryError(w, r, err, "failed to deactivate patient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCreateDoctor(w http.ResponseWriter, r *http.Request) {
	var d hospital.Doctor
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	d.HospitalID = claims(r).HospitalID

	if err := a.directory.CreateDoctor(r.Context(), &d); err != nil {
		a.directoryError(w, r, err, "failed to create doctor")
		return
	}
	writeJSON(w, http.StatusCreated, &d)
}

func (a *API) handleGetDoctor(w http.ResponseWriter, r *http.Request) {
	d, err := a.directory.GetDoctor(r.Context(), claims(r).HospitalID, chi.URLParam(r, "id"))
	if err != nil {
		a.directoryError(w, r, err, "failed to get doctor")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := a.directory.ListDoctors(r.Context(), claims(r).HospitalID)
	if err != nil {
		a.directoryError(w, r, err, "failed to list doctors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": doctors})
}

func (a *API) handleDeactivateDoctor(w http.ResponseWriter, r *http.Request) {
	if err := a.directory.DeactivateDoctor(r.Context(), claims(r).HospitalID, chi.URLParam(r, "id")); err != nil {
		a.directoryError(w, r, err, "failed to deactivate doctor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCreateNurse(w http.ResponseWriter, r *http.Request) {
	var n hospital.Nurse
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	n.HospitalID = claims(r).HospitalID

	if err := a.directory.CreateNurse(r.Context(), &n); err != nil {
		a.directoryError(w, r, err, "failed to create nurse")
		return
	}
	writeJSON(w, http.StatusCreated, &n)
}

func (a *API) handleGetNurse(w http.ResponseWriter, r *http.Request) {
	n, err := a.directory.GetNurse(r.Context(), claims(r).HospitalID, chi.URLParam(r, "id"))
	if err != nil {
		a.directoryError(w, r, err, "failed to get nurse")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (a *API) handleListNurses(w http.ResponseWriter, r *http.Request) {
	nurses, err := a.directory.ListNurses(r.Context(), claims(r).HospitalID)
	if err != nil {
		a.directoryError(w, r, err, "failed to list nurses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nurses": nurses})
}

func (a *API) handleDeactivateNurse(w http.ResponseWriter, r *http.Request) {
	if err := a.directory.DeactivateNurse(r.Context(), claims(r).HospitalID, chi.URLParam(r, "id")); err != nil {
		a.directoryError(w, r, err, "failed to deactivate nurse")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var ap hospital.Appointment
	if err := json.NewDecoder(r.Body).Decode(&ap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	ap.HospitalID = claims(r).HospitalID

	if err := a.directory.CreateAppointment(r.Context(), &ap); err != nil {
		a.directoryError(w, r, err, "failed to create appointment")
		return
	}
	writeJSON(w, http.StatusCreated, &ap)
}

func (a *API) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	ap, err := a.directory.GetAppointment(r.Context(), claims(r).HospitalID, chi.URLParam(r, "id"))
	if err != nil {
		a.directoryError(w, r, err, "failed to get appointment")
		return
	}
	writeJSON(w, http.StatusOK, ap)
}

func (a *API) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := a.directory.ListAppointments(r.Context(), claims(r).HospitalID, r.URL.Query().Get("patient_id"))
	if err != nil {
		a.directoryError(w, r, err, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appointments})
}

func (a *API) handleSetAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status hospital.AppointmentStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	switch body.Status {
	case hospital.AppointmentScheduled, hospital.AppointmentCompleted, hospital.AppointmentCancelled:
	default:
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	ap, err := a.directory.SetAppointmentStatus(r.Context(), claims(r).HospitalID, chi.URLParam(r, "id"), body.Status)
	if err != nil {
		a.directoryError(w, r, err, "failed to update appointment status")
		return
	}
	writeJSON(w, http.StatusOK, ap)
}
