// Package postgres implements the Application Store and Directory on
// PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobportal/application-service/internal/lifecycle"
)

const uniqueViolation = "23505"

const applicationColumns = `a.id, a.job_id, a.applicant_id, a.applied_at, a.status,
		a.cover_letter, a.resume_handle, a.feedback, a.version, a.updated_at, a.history`

// Store implements lifecycle.Store and lifecycle.Directory.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ─── Applications ─────────────────────────────────────────────────────────────

// Create inserts a new application. A (job_id, applicant_id) unique
// violation is reported as lifecycle.ErrDuplicate.
func (s *Store) Create(ctx context.Context, app lifecycle.Application) (*lifecycle.Application, error) {
	history, err := json.Marshal(nonNilHistory(app.History))
	if err != nil {
		return nil, fmt.Errorf("%w: encode history: %v", lifecycle.ErrStorage, err)
	}
	row := s.pool.QueryRow(ctx,
		`WITH a AS (
		   INSERT INTO job_applications
		     (id, job_id, applicant_id, applied_at, status, cover_letter, resume_handle, feedback, version, updated_at, history)
		   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb)
		   RETURNING *
		 )
		 SELECT `+applicationColumns+` FROM a`,
		app.ID, app.JobID, app.ApplicantID, app.AppliedAt, string(app.Status),
		app.CoverLetter, app.ResumeHandle, app.Feedback, app.Version, app.UpdatedAt, string(history),
	)
	created, err := scanApplication(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, lifecycle.ErrDuplicate
		}
		return nil, fmt.Errorf("%w: create application: %v", lifecycle.ErrStorage, err)
	}
	return created, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*lifecycle.Application, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM job_applications a WHERE a.id = $1`, id)
	app, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("application %s: %w", id, lifecycle.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load application: %v", lifecycle.ErrStorage, err)
	}
	return app, nil
}

func (s *Store) ExistsForJobAndApplicant(ctx context.Context, jobID, applicantID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM job_applications WHERE job_id = $1 AND applicant_id = $2)`,
		jobID, applicantID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: check duplicate: %v", lifecycle.ErrStorage, err)
	}
	return exists, nil
}

func (s *Store) ListByApplicant(ctx context.Context, applicantID string) ([]lifecycle.Application, error) {
	return s.list(ctx, `SELECT `+applicationColumns+` FROM job_applications a
		WHERE a.applicant_id = $1 ORDER BY a.applied_at DESC, a.id DESC`, applicantID)
}

func (s *Store) ListByJob(ctx context.Context, jobID string) ([]lifecycle.Application, error) {
	return s.list(ctx, `SELECT `+applicationColumns+` FROM job_applications a
		WHERE a.job_id = $1 ORDER BY a.applied_at DESC, a.id DESC`, jobID)
}

func (s *Store) ListByEmployer(ctx context.Context, employerID string) ([]lifecycle.Application, error) {
	return s.list(ctx, `SELECT `+applicationColumns+` FROM job_applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE j.employer_id = $1 ORDER BY a.applied_at DESC, a.id DESC`, employerID)
}

// CompareAndSetStatus writes the new status, feedback and history entry in a
// single statement guarded by the expected status.
func (s *Store) CompareAndSetStatus(ctx context.Context, id string, change lifecycle.StatusChange) (*lifecycle.Application, error) {
	entry, err := json.Marshal([]lifecycle.HistoryEntry{{
		From:    change.Expected,
		To:      change.Next,
		ActorID: change.ActorID,
		At:      change.At,
	}})
	if err != nil {
		return nil, fmt.Errorf("%w: encode history: %v", lifecycle.ErrStorage, err)
	}

	row := s.pool.QueryRow(ctx,
		`WITH a AS (
		   UPDATE job_applications
		   SET status     = $3,
		       feedback   = COALESCE($4::text, feedback),
		       version    = version + 1,
		       updated_at = $5,
		       history    = history || $6::jsonb
		   WHERE id = $1 AND status = $2
		   RETURNING *
		 )
		 SELECT `+applicationColumns+` FROM a`,
		id, string(change.Expected), string(change.Next), change.Feedback, change.At, string(entry),
	)
	updated, err := scanApplication(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: update status: %v", lifecycle.ErrStorage, err)
	}

	// No row matched: either the application is gone or its status moved.
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM job_applications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%w: look up application: %v", lifecycle.ErrStorage, err)
	}
	if !exists {
		return nil, fmt.Errorf("application %s: %w", id, lifecycle.ErrNotFound)
	}
	return nil, lifecycle.ErrConflict
}

// ResumeHandleInUse reports whether any application references handle.
func (s *Store) ResumeHandleInUse(ctx context.Context, handle string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM job_applications WHERE resume_handle = $1)`, handle).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: check resume handle: %v", lifecycle.ErrStorage, err)
	}
	return exists, nil
}

// ─── Directory ───────────────────────────────────────────────────────────────

// UpsertUser inserts or replaces a user row.
func (s *Store) UpsertUser(ctx context.Context, u lifecycle.Actor) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, role) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, role = EXCLUDED.role`,
		u.ID, u.Email, u.Name, string(u.Role),
	)
	return err
}

// UpsertJob inserts or replaces a job row.
func (s *Store) UpsertJob(ctx context.Context, j lifecycle.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, employer_id, title, company, active, deadline) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET employer_id = EXCLUDED.employer_id, title = EXCLUDED.title,
		   company = EXCLUDED.company, active = EXCLUDED.active, deadline = EXCLUDED.deadline`,
		j.ID, j.EmployerID, j.Title, j.Company, j.Active, j.Deadline,
	)
	return err
}

func (s *Store) FindJob(ctx context.Context, id string) (*lifecycle.Job, error) {
	var j lifecycle.Job
	err := s.pool.QueryRow(ctx,
		`SELECT id, employer_id, title, company, active, deadline FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.EmployerID, &j.Title, &j.Company, &j.Active, &j.Deadline)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, lifecycle.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load job: %v", lifecycle.ErrStorage, err)
	}
	return &j, nil
}

func (s *Store) FindUser(ctx context.Context, id string) (*lifecycle.Actor, error) {
	var (
		u    lifecycle.Actor
		role string
	)
	err := s.pool.QueryRow(ctx, `SELECT id, email, name, role FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, lifecycle.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load user: %v", lifecycle.ErrStorage, err)
	}
	if u.Role, err = lifecycle.ParseRole(role); err != nil {
		return nil, fmt.Errorf("%w: user %s: %v", lifecycle.ErrStorage, id, err)
	}
	return &u, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (s *Store) list(ctx context.Context, query string, arg string) ([]lifecycle.Application, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("%w: list applications: %v", lifecycle.ErrStorage, err)
	}
	defer rows.Close()

	apps := make([]lifecycle.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan application: %v", lifecycle.ErrStorage, err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list applications: %v", lifecycle.ErrStorage, err)
	}
	return apps, nil
}

func scanApplication(row pgx.Row) (*lifecycle.Application, error) {
	var (
		a       lifecycle.Application
		status  string
		history []byte
	)
	if err := row.Scan(
		&a.ID, &a.JobID, &a.ApplicantID, &a.AppliedAt, &status,
		&a.CoverLetter, &a.ResumeHandle, &a.Feedback, &a.Version, &a.UpdatedAt, &history,
	); err != nil {
		return nil, err
	}
	a.Status = lifecycle.Status(status)
	if err := json.Unmarshal(history, &a.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	a.History = nonNilHistory(a.History)
	return &a, nil
}

func nonNilHistory(h []lifecycle.HistoryEntry) []lifecycle.HistoryEntry {
	if h == nil {
		return []lifecycle.HistoryEntry{}
	}
	return h
}
