package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/jobpilot/internal/apperror"
	"github.com/sakif/jobpilot/internal/auth"
	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/service"
)

// JobHandler serves the caller's job applications. Every route sits behind
// auth.RequireAuth.
//
//	GET    /jobs       → [Application, ...]
//	POST   /jobs       → Application (201)
//	PATCH  /jobs/{id}  → Application, with the patch applied
//	DELETE /jobs/{id}  → 204
type JobHandler struct {
	jobs   *service.JobService
	logger *slog.Logger
}

func NewJobHandler(jobs *service.JobService, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: logger}
}

func (h *JobHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	jobs, err := h.jobs.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *JobHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in model.Application
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	job, err := h.jobs.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// HandleUpdate applies a partial update. Absent fields stay as they are.
//
// REQUEST BODY: {"status": "offer"} or {"jobDescription": "..."}
func (h *JobHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var patch model.ApplicationPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	job, err := h.jobs.Update(r.Context(), userID, id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.jobs.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireUser reads the authenticated user. On a route behind RequireAuth it
// never fails; without it, the request is answered with 401.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Auth(nil, "Authentication required"))
	}
	return userID, ok
}
