package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/jobpilot/internal/apperror"
	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/repository"
)

// compile-time check that *DB implements repository.JobRepository
var _ repository.JobRepository = (*DB)(nil)

const jobColumns = `id, user_id, title, company, date_applied, status, notes, job_description`

// CreateJob inserts job for ownerID and fills in its ID and Owner.
func (db *DB) CreateJob(ctx context.Context, ownerID int64, job *model.Application) error {
	now := time.Now()
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO jobs (user_id, title, company, date_applied, status, notes, job_description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ownerID,
		job.Title,
		job.Company,
		job.DateApplied,
		job.Status,
		job.Notes,
		nullString(job.JobDescription),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new job id: %w", err)
	}
	job.ID = id
	job.Owner = &model.UserRef{ID: ownerID}
	return nil
}

// GetJob returns apperror.ErrNotFound if no job has that ID.
func (db *DB) GetJob(ctx context.Context, id int64) (*model.Application, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id,
	)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("job", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting job %d: %w", id, err)
	}
	return job, nil
}

// ListJobs returns ownerID's jobs ordered by ID.
func (db *DB) ListJobs(ctx context.Context, ownerID int64) ([]model.Application, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE user_id = ? ORDER BY id`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.Application, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning job row: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating jobs: %w", err)
	}
	return jobs, nil
}

// UpdateJob overwrites every editable column of job. Owner is immutable.
func (db *DB) UpdateJob(ctx context.Context, job *model.Application) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE jobs
		 SET title = ?, company = ?, date_applied = ?, status = ?, notes = ?,
		     job_description = ?, updated_at = ?
		 WHERE id = ?`,
		job.Title,
		job.Company,
		job.DateApplied,
		job.Status,
		job.Notes,
		nullString(job.JobDescription),
		time.Now(),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating job %d: %w", job.ID, err)
	}
	return requireRow(result, "job", job.ID)
}

// DeleteJob removes a job and, through the foreign key, its interviews.
func (db *DB) DeleteJob(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting job %d: %w", id, err)
	}
	return requireRow(result, "job", id)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Application, error) {
	var (
		job     model.Application
		ownerID int64
		desc    sql.NullString
	)
	if err := row.Scan(
		&job.ID,
		&ownerID,
		&job.Title,
		&job.Company,
		&job.DateApplied,
		&job.Status,
		&job.Notes,
		&desc,
	); err != nil {
		return nil, err
	}
	job.Owner = &model.UserRef{ID: ownerID}
	if desc.Valid {
		job.JobDescription = &desc.String
	}
	return &job, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// requireRow turns "0 rows affected" into apperror.ErrNotFound.
func requireRow(result sql.Result, resource string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, strconv.FormatInt(id, 10))
	}
	return nil
}
