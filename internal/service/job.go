package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/jobpilot/internal/apperror"
	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/repository"
)

const (
	MaxTitleLength       = 200
	MaxCompanyLength     = 200
	MaxNotesLength       = 10_000
	MaxDescriptionLength = 100_000
	DefaultStatus        = "applied"
)

// JobService manages a user's job applications.
type JobService struct {
	jobs   repository.JobRepository
	logger *slog.Logger
}

func NewJobService(jobs repository.JobRepository, logger *slog.Logger) *JobService {
	return &JobService{jobs: jobs, logger: logger}
}

// List returns the caller's jobs. The slice is never nil.
func (s *JobService) List(ctx context.Context, ownerID int64) ([]model.Application, error) {
	jobs, err := s.jobs.ListJobs(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list jobs",
			slog.Int64("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// Create validates and stores a new job for ownerID. ID, Owner and
// Interview on the input are ignored.
func (s *JobService) Create(ctx context.Context, ownerID int64, in model.Application) (*model.Application, error) {
	job := model.Application{
		Title:          strings.TrimSpace(in.Title),
		Company:        strings.TrimSpace(in.Company),
		DateApplied:    strings.TrimSpace(in.DateApplied),
		Status:         strings.TrimSpace(in.Status),
		Notes:          in.Notes,
		JobDescription: in.JobDescription,
	}
	if job.Status == "" {
		job.Status = DefaultStatus
	}
	if err := validateJob(&job); err != nil {
		return nil, err
	}

	if err := s.jobs.CreateJob(ctx, ownerID, &job); err != nil {
		s.logger.Error("failed to create job",
			slog.Int64("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating job: %w", err)
	}

	s.logger.Info("job created",
		slog.Int64("jobID", job.ID),
		slog.Int64("userID", ownerID),
	)
	return &job, nil
}

// Update applies patch to one of ownerID's jobs and returns the full record.
//
// STRATEGY: fetch, check owner, apply, validate, save. The response carries
// the merged record so a client can adopt it without a second GET.
func (s *JobService) Update(ctx context.Context, ownerID, id int64, patch model.ApplicationPatch) (*model.Application, error) {
	if patch.IsEmpty() {
		return nil, apperror.ValidationFailed("body", "No fields to update")
	}

	job, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	patch.ApplyTo(job)
	job.Title = strings.TrimSpace(job.Title)
	job.Company = strings.TrimSpace(job.Company)
	if err := validateJob(job); err != nil {
		return nil, err
	}

	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("updating job %d: %w", id, err)
	}

	s.logger.Info("job updated", slog.Int64("jobID", id))
	return job, nil
}

// Delete removes one of ownerID's jobs together with its interviews.
func (s *JobService) Delete(ctx context.Context, ownerID, id int64) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.jobs.DeleteJob(ctx, id); err != nil {
		return err
	}
	s.logger.Info("job deleted", slog.Int64("jobID", id))
	return nil
}

// owned loads job id and hides it unless ownerID owns it.
func (s *JobService) owned(ctx context.Context, ownerID, id int64) (*model.Application, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "job ID must be positive")
	}
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Owner == nil || job.Owner.ID != ownerID {
		s.logger.Warn("job access by non-owner",
			slog.Int64("jobID", id),
			slog.Int64("userID", ownerID),
		)
		return nil, apperror.NotFound("job", strconv.FormatInt(id, 10))
	}
	return job, nil
}

func validateJob(job *model.Application) error {
	switch {
	case job.Title == "":
		return apperror.ValidationFailed("title", "Title is required")
	case len(job.Title) > MaxTitleLength:
		return apperror.ValidationFailed("title",
			fmt.Sprintf("Title must be %d characters or less", MaxTitleLength))
	case job.Company == "":
		return apperror.ValidationFailed("company", "Company is required")
	case len(job.Company) > MaxCompanyLength:
		return apperror.ValidationFailed("company",
			fmt.Sprintf("Company must be %d characters or less", MaxCompanyLength))
	case len(job.Notes) > MaxNotesLength:
		return apperror.ValidationFailed("notes",
			fmt.Sprintf("Notes must be %d characters or less", MaxNotesLength))
	case job.JobDescription != nil && len(*job.JobDescription) > MaxDescriptionLength:
		return apperror.ValidationFailed("jobDescription",
			fmt.Sprintf("Job description must be %d characters or less", MaxDescriptionLength))
	}
	return nil
}
