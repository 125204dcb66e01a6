package wardapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/ward/internal/triage"
)

func (a *API) handleCreateTriage(w http.ResponseWriter, r *http.Request) {
	var sub triage.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	c := claims(r)
	result, err := a.triage.Create(r.Context(), c.HospitalID, c.Subject, &sub)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to create triage", "patient_id", sub.PatientID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("ward.triage.id", result.ID),
		attribute.String("ward.triage.risk_level", string(result.Assessment.RiskLevel)),
	)

	writeJSON(w, http.StatusCreated, result)
}

func (a *API) handlePreviewTriage(w http.ResponseWriter, r *http.Request) {
	var sub triage.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	writeJSON(w, http.StatusOK, a.triage.Preview(r.Context(), &sub))
}

func (a *API) handleGetTriage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("ward.triage.id", id))

	result, err := a.triage.Get(r.Context(), claims(r).HospitalID, id)
	if err != nil {
		if errors.Is(err, triage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		a.logger.Error(r.Context(), err, "failed to get triage result", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	span.SetAttributes(attribute.String("ward.triage.status", string(result.Status)))
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleListTriage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := triage.Filter{
		HospitalID: claims(r).HospitalID,
		PatientID:  q.Get("patient_id"),
		Status:     triage.Status(q.Get("status")),
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	results, total, err := a.triage.List(r.Context(), f)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list triage results")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   total,
		"page":    f.Page,
		"limit":   f.Limit,
	})
}

type triagePatch struct {
	Status           *triage.Status `json:"status"`
	Notes            *string        `json:"notes"`
	AssignedDoctorID *string        `json:"assigned_doctor_id"`
}

func (a *API) handleUpdateTriage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body triagePatch
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if body.Status != nil {
		switch *body.Status {
		case triage.StatusPending, triage.StatusInProgress, triage.StatusCompleted:
		default:
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
	}

	result, err := a.triage.Update(r.Context(), claims(r).HospitalID, id, triage.Patch{
		Status:           body.Status,
		Notes:            body.Notes,
		AssignedDoctorID: body.AssignedDoctorID,
	})
	if err != nil {
		if errors.Is(err, triage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		a.logger.Error(r.Context(), err, "failed to update triage result", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleTriageHistory(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "id")

	results, err := a.triage.History(r.Context(), claims(r).HospitalID, patientID)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list triage history", "patient_id", patientID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": results})
}
