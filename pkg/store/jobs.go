package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// JobRecord is a persisted registration of a recurring invocation.
type JobRecord struct {
	ID         int64
	JobType    string
	Argument   string // canonical JSON
	LastRun    time.Time
	ReservedAt time.Time
}

// AddJob registers (jobType, argument). Registering an existing key is a
// no-op.
func (s *Store) AddJob(ctx context.Context, jobType, argument string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (job_type, argument) VALUES (?, ?) ON CONFLICT (job_type, argument) DO NOTHING`,
		jobType, argument,
	); err != nil {
		return NewStorageError(s.backend, "add_job", err)
	}
	return nil
}

// RemoveJob removes the registration of (jobType, argument).
func (s *Store) RemoveJob(ctx context.Context, jobType, argument string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE job_type = ? AND argument = ?`, jobType, argument,
	); err != nil {
		return NewStorageError(s.backend, "remove_job", err)
	}
	return nil
}

// HasJob reports whether (jobType, argument) is registered.
func (s *Store) HasJob(ctx context.Context, jobType, argument string) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM jobs WHERE job_type = ? AND argument = ?`, jobType, argument,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, NewStorageError(s.backend, "has_job", err)
	}
	return true, nil
}

// ListJobs returns all registrations ordered by last run, oldest first.
func (s *Store) ListJobs(ctx context.Context) ([]*JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_type, argument, last_run, reserved_at FROM jobs ORDER BY last_run, id`)
	if err != nil {
		return nil, NewStorageError(s.backend, "list_jobs", err)
	}
	defer rows.Close()

	var jobs []*JobRecord
	for rows.Next() {
		var (
			job               JobRecord
			lastRun, reserved int64
		)
		if err := rows.Scan(&job.ID, &job.JobType, &job.Argument, &lastRun, &reserved); err != nil {
			return nil, NewStorageError(s.backend, "list_jobs", err)
		}
		job.LastRun = timeOrZero(lastRun)
		job.ReservedAt = timeOrZero(reserved)
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.backend, "list_jobs", err)
	}
	return jobs, nil
}

// ReserveJob marks a registration as running. It returns false when the
// job is gone or already reserved after staleBefore.
func (s *Store) ReserveJob(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET reserved_at = ? WHERE id = ? AND reserved_at < ?`,
		now.Unix(), id, staleBefore.Unix(),
	)
	if err != nil {
		return false, NewStorageError(s.backend, "reserve_job", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, NewStorageError(s.backend, "reserve_job", err)
	}
	return n == 1, nil
}

// ReleaseJob clears the reservation and records when the job last ran.
func (s *Store) ReleaseJob(ctx context.Context, id int64, lastRun time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET reserved_at = 0, last_run = ? WHERE id = ?`, lastRun.Unix(), id,
	); err != nil {
		return NewStorageError(s.backend, "release_job", err)
	}
	return nil
}
