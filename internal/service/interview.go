package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/jobpilot/internal/apperror"
	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/repository"
)

// InterviewService records interviews against a user's jobs. It reuses
// JobService's ownership check so both answer foreign IDs the same way.
type InterviewService struct {
	interviews repository.InterviewRepository
	jobs       *JobService
	logger     *slog.Logger
}

func NewInterviewService(interviews repository.InterviewRepository, jobs *JobService, logger *slog.Logger) *InterviewService {
	return &InterviewService{interviews: interviews, jobs: jobs, logger: logger}
}

// List returns every interview on ownerID's jobs, oldest first.
func (s *InterviewService) List(ctx context.Context, ownerID int64) ([]model.InterviewRecord, error) {
	ivs, err := s.interviews.ListInterviews(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing interviews: %w", err)
	}
	return ivs, nil
}

// ForJob returns the interviews of one job, newest first.
func (s *InterviewService) ForJob(ctx context.Context, ownerID, jobID int64) ([]model.InterviewRecord, error) {
	if _, err := s.jobs.owned(ctx, ownerID, jobID); err != nil {
		return nil, err
	}
	ivs, err := s.interviews.InterviewsForJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("listing interviews for job %d: %w", jobID, err)
	}
	return ivs, nil
}

// Create stores a new interview. Earlier interviews on the same job are kept;
// readers treat the newest as current.
func (s *InterviewService) Create(ctx context.Context, ownerID int64, in model.InterviewPayload) (*model.InterviewRecord, error) {
	if in.Job.ID <= 0 {
		return nil, apperror.ValidationFailed("job", "job.id is required")
	}
	if _, err := s.jobs.owned(ctx, ownerID, in.Job.ID); err != nil {
		return nil, err
	}

	iv := &model.InterviewRecord{
		Job:         in.Job,
		Date:        in.Date,
		Interviewer: in.Interviewer,
		PrepNotes:   in.PrepNotes,
	}
	if err := s.interviews.CreateInterview(ctx, iv); err != nil {
		return nil, fmt.Errorf("creating interview: %w", err)
	}

	s.logger.Info("interview saved",
		slog.Int64("interviewID", iv.ID),
		slog.Int64("jobID", iv.Job.ID),
	)
	return iv, nil
}
