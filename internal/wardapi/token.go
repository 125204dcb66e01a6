package wardapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/linnemanlabs/ward/internal/auth"
)

type tokenRequest struct {
	AccessCode string    `json:"access_code"`
	Subject    string    `json:"subject"`
	HospitalID string    `json:"hospital_id"`
	Role       auth.Role `json:"role"`
}

// handleIssueToken exchanges the shared access code for a scoped JWT.
// The code comparison is constant-time.
func (a *API) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if a.accessCode == "" ||
		subtle.ConstantTimeCompare([]byte(req.AccessCode), []byte(a.accessCode)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid access code")
		return
	}

	token, err := a.issuer.Issue(req.Subject, req.HospitalID, req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
