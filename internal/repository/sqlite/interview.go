package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/repository"
)

// compile-time check that *DB implements repository.InterviewRepository
var _ repository.InterviewRepository = (*DB)(nil)

// CreateInterview inserts iv and fills in its ID. The job must exist.
func (db *DB) CreateInterview(ctx context.Context, iv *model.InterviewRecord) error {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO interviews (job_id, date, interviewer, prep_notes, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		iv.Job.ID,
		iv.Date,
		iv.Interviewer,
		iv.PrepNotes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating interview for job %d: %w", iv.Job.ID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new interview id: %w", err)
	}
	iv.ID = id
	return nil
}

// ListInterviews returns every interview on ownerID's jobs, oldest first,
// so a client that lets later records win ends up with the newest one.
func (db *DB) ListInterviews(ctx context.Context, ownerID int64) ([]model.InterviewRecord, error) {
	return db.queryInterviews(ctx,
		`SELECT i.id, i.job_id, i.date, i.interviewer, i.prep_notes
		 FROM interviews i
		 JOIN jobs j ON j.id = i.job_id
		 WHERE j.user_id = ?
		 ORDER BY i.id`,
		ownerID,
	)
}

// InterviewsForJob returns the job's interviews, newest first.
func (db *DB) InterviewsForJob(ctx context.Context, jobID int64) ([]model.InterviewRecord, error) {
	return db.queryInterviews(ctx,
		`SELECT id, job_id, date, interviewer, prep_notes
		 FROM interviews
		 WHERE job_id = ?
		 ORDER BY id DESC`,
		jobID,
	)
}

func (db *DB) queryInterviews(ctx context.Context, query string, arg any) ([]model.InterviewRecord, error) {
	rows, err := db.conn.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing interviews: %w", err)
	}
	defer rows.Close()

	out := make([]model.InterviewRecord, 0)
	for rows.Next() {
		var iv model.InterviewRecord
		if err := rows.Scan(&iv.ID, &iv.Job.ID, &iv.Date, &iv.Interviewer, &iv.PrepNotes); err != nil {
			return nil, fmt.Errorf("sqlite: scanning interview row: %w", err)
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating interviews: %w", err)
	}
	return out, nil
}
