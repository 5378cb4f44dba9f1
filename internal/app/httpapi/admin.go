package httpapi

import (
	"net/http"

	"github.com/pawmate/pawmate/internal/app/domain/sitter"
	apperrors "github.com/pawmate/pawmate/internal/errors"
)

type rejectRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=owner sitter admin"`
}

func (h *handler) adminSitters(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(sitter.StatusPending)
	}
	items, err := h.app.Sitters.ListByStatus(r.Context(), actor(r), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) adminReviewSitter(w http.ResponseWriter, r *http.Request) {
	var (
		p   sitter.Profile
		err error
	)
	id := pathVar(r, "id")
	if pathVar(r, "action") == "approve" {
		p, err = h.app.Sitters.Approve(r.Context(), actor(r), id)
	} else {
		var req rejectRequest
		if err = h.decodeOptional(w, r, &req); err == nil {
			p, err = h.app.Sitters.Reject(r.Context(), actor(r), id, req.Reason)
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) adminSetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.app.Accounts.SetRole(r.Context(), actor(r), pathVar(r, "id"), req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) adminAudit(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.audit.recent(limit))
}

func (h *handler) adminJobs(w http.ResponseWriter, r *http.Request) {
	if h.app.Jobs == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, h.app.Jobs.Jobs())
}

func (h *handler) adminRunJob(w http.ResponseWriter, r *http.Request) {
	if h.app.Jobs == nil {
		writeError(w, r, apperrors.Unavailable("scheduled jobs are disabled", nil))
		return
	}
	name := pathVar(r, "name")
	if !h.jobRegistered(name) {
		writeError(w, r, apperrors.NotFound("job", name))
		return
	}
	n, err := h.app.Jobs.RunNow(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"job": name, "count": n})
}

func (h *handler) jobRegistered(name string) bool {
	for _, j := range h.app.Jobs.Jobs() {
		if j.Name == name {
			return true
		}
	}
	return false
}
