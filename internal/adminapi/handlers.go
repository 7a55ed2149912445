package adminapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"commissions/internal/admin"
	"commissions/internal/apperr"
	"commissions/internal/catalog"
	"commissions/internal/pipelinejob"
)

type handlers struct {
	admin  *admin.Service
	job    *pipelinejob.Job
	logger *slog.Logger
}

type characterRequest struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type orderRequest struct {
	Active []int64 `json:"active"`
	Stale  []int64 `json:"stale"`
}

func pathID(r *http.Request, message string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(message)
	}
	return id, nil
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, apperr.OK("healthy"))
}

func (h *handlers) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.admin.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) createCharacter(w http.ResponseWriter, r *http.Request) {
	var req characterRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, h.admin.CreateCharacter(r.Context(), req.Name, req.Status))
}

func (h *handlers) updateCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid character identifier.")
	if err != nil {
		writeError(w, err)
		return
	}
	var req characterRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, h.admin.UpdateCharacter(r.Context(), id, req.Name, req.Status))
}

func (h *handlers) deleteCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid character identifier.")
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, h.admin.DeleteCharacter(r.Context(), id))
}

func (h *handlers) reorderCharacters(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, apperr.Validation("Invalid character order payload."))
		return
	}
	writeResult(w, h.admin.ReorderCharacters(r.Context(), req.Active, req.Stale))
}

func (h *handlers) createCommission(w http.ResponseWriter, r *http.Request) {
	var in catalog.CommissionInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, h.admin.CreateCommission(r.Context(), in))
}

func (h *handlers) updateCommission(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid commission identifier.")
	if err != nil {
		writeError(w, err)
		return
	}
	var in catalog.CommissionInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, h.admin.UpdateCommission(r.Context(), id, in))
}

func (h *handlers) deleteCommission(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid commission identifier.")
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, h.admin.DeleteCommission(r.Context(), id))
}

func (h *handlers) pipelineStatus(w http.ResponseWriter, _ *http.Request) {
	if h.job == nil {
		writeJSON(w, http.StatusOK, pipelinejob.Status{})
		return
	}
	writeJSON(w, http.StatusOK, h.job.Status())
}

func (h *handlers) runPipeline(w http.ResponseWriter, r *http.Request) {
	if h.job == nil {
		writeError(w, apperr.Validation("Pipeline is not configured."))
		return
	}
	report, err := h.job.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
