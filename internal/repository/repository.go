// Package repository declares the storage interfaces of the reference
// backend. The service layer depends on these, never on a concrete database.
package repository

import (
	"context"

	"github.com/sakif/jobpilot/internal/model"
)

// UserRepository stores accounts.
type UserRepository interface {
	// CreateUser inserts user and fills in its ID and timestamps.
	// Returns apperror.ErrConflict if the email is already registered.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// JobRepository stores job applications. Owner is set on every record it
// returns.
type JobRepository interface {
	CreateJob(ctx context.Context, ownerID int64, job *model.Application) error
	GetJob(ctx context.Context, id int64) (*model.Application, error)
	ListJobs(ctx context.Context, ownerID int64) ([]model.Application, error)
	UpdateJob(ctx context.Context, job *model.Application) error
	DeleteJob(ctx context.Context, id int64) error
}

// InterviewRepository stores interviews. Each interview belongs to a job.
type InterviewRepository interface {
	CreateInterview(ctx context.Context, iv *model.InterviewRecord) error
	// ListInterviews returns every interview on jobs owned by ownerID,
	// oldest first.
	ListInterviews(ctx context.Context, ownerID int64) ([]model.InterviewRecord, error)
	// InterviewsForJob returns the job's interviews, newest first.
	InterviewsForJob(ctx context.Context, jobID int64) ([]model.InterviewRecord, error)
}
