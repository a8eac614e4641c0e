package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/service"
)

// InterviewHandler serves interviews.
//
//	GET  /interviews           → every interview on the caller's jobs, oldest first
//	GET  /interviews/job/{id}  → that job's interviews, newest first
//	POST /interviews           → {"job":{"id":3},"date":"...","interviewer":"...","prepNotes":"..."}
//
// The per-job route always answers with an array, possibly empty. Clients
// take the first element as the current interview.
type InterviewHandler struct {
	interviews *service.InterviewService
	logger     *slog.Logger
}

func NewInterviewHandler(interviews *service.InterviewService, logger *slog.Logger) *InterviewHandler {
	return &InterviewHandler{interviews: interviews, logger: logger}
}

func (h *InterviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ivs, err := h.interviews.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ivs)
}

func (h *InterviewHandler) HandleForJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	jobID, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ivs, err := h.interviews.ForJob(r.Context(), userID, jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ivs)
}

func (h *InterviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in model.InterviewPayload
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	iv, err := h.interviews.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, iv)
}
