// Package sqlite implements the Application Store and Directory on an
// embedded SQLite database. It serves single-node and local deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"jobportal/application-service/internal/lifecycle"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
  id    TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name  TEXT NOT NULL DEFAULT '',
  role  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS jobs (
  id          TEXT PRIMARY KEY,
  employer_id TEXT NOT NULL,
  title       TEXT NOT NULL,
  company     TEXT NOT NULL,
  active      INTEGER NOT NULL DEFAULT 1,
  deadline    INTEGER
);
CREATE TABLE IF NOT EXISTS job_applications (
  id            TEXT PRIMARY KEY,
  job_id        TEXT NOT NULL,
  applicant_id  TEXT NOT NULL,
  applied_at    INTEGER NOT NULL,
  status        TEXT NOT NULL,
  cover_letter  TEXT NOT NULL DEFAULT '',
  resume_handle TEXT NOT NULL,
  feedback      TEXT,
  version       INTEGER NOT NULL DEFAULT 0,
  updated_at    INTEGER NOT NULL,
  history       TEXT NOT NULL DEFAULT '[]'
);
CREATE UNIQUE INDEX IF NOT EXISTS job_applications_job_applicant_uidx ON job_applications (job_id, applicant_id);
CREATE INDEX IF NOT EXISTS job_applications_resume_handle_idx ON job_applications (resume_handle);
`

const columns = `a.id, a.job_id, a.applicant_id, a.applied_at, a.status, a.cover_letter,
  a.resume_handle, a.feedback, a.version, a.updated_at, a.history`

// returning lists the same columns unqualified for RETURNING clauses.
const returning = `id, job_id, applicant_id, applied_at, status, cover_letter,
  resume_handle, feedback, version, updated_at, history`

// Store implements lifecycle.Store and lifecycle.Directory.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection serializes status writes.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// UpsertUser inserts or replaces a user row.
func (s *Store) UpsertUser(ctx context.Context, u lifecycle.Actor) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role) VALUES (?, ?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET email = excluded.email, name = excluded.name, role = excluded.role`,
		u.ID, u.Email, u.Name, string(u.Role),
	)
	return err
}

// UpsertJob inserts or replaces a job row.
func (s *Store) UpsertJob(ctx context.Context, j lifecycle.Job) error {
	var deadline sql.NullInt64
	if j.Deadline != nil {
		deadline = sql.NullInt64{Int64: j.Deadline.UnixMicro(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, employer_id, title, company, active, deadline) VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET employer_id = excluded.employer_id, title = excluded.title,
           company = excluded.company, active = excluded.active, deadline = excluded.deadline`,
		j.ID, j.EmployerID, j.Title, j.Company, j.Active, deadline,
	)
	return err
}

func (s *Store) FindJob(ctx context.Context, id string) (*lifecycle.Job, error) {
	var (
		j        lifecycle.Job
		deadline sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, employer_id, title, company, active, deadline FROM jobs WHERE id = ?`, id,
	).Scan(&j.ID, &j.EmployerID, &j.Title, &j.Company, &j.Active, &deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, lifecycle.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load job: %v", lifecycle.ErrStorage, err)
	}
	if deadline.Valid {
		t := time.UnixMicro(deadline.Int64).UTC()
		j.Deadline = &t
	}
	return &j, nil
}

func (s *Store) FindUser(ctx context.Context, id string) (*lifecycle.Actor, error) {
	var (
		u    lifecycle.Actor
		role string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, email, name, role FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Name, &role)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *Store) Create(ctx context.Context, app lifecycle.Application) (*lifecycle.Application, error) {
	history, err := json.Marshal(nonNil(app.History))
	if err != nil {
		return nil, fmt.Errorf("%w: encode history: %v", lifecycle.ErrStorage, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO job_applications
           (id, job_id, applicant_id, applied_at, status, cover_letter, resume_handle, feedback, version, updated_at, history)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		app.ID, app.JobID, app.ApplicantID, app.AppliedAt.UnixMicro(), string(app.Status),
		app.CoverLetter, app.ResumeHandle, nullString(app.Feedback), app.Version, app.UpdatedAt.UnixMicro(), string(history),
	)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return nil, lifecycle.ErrDuplicate
		}
		return nil, fmt.Errorf("%w: create application: %v", lifecycle.ErrStorage, err)
	}
	return s.FindByID(ctx, app.ID)
}

func (s *Store) FindByID(ctx context.Context, id string) (*lifecycle.Application, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM job_applications a WHERE a.id = ?`, id)
	app, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application %s: %w", id, lifecycle.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load application: %v", lifecycle.ErrStorage, err)
	}
	return app, nil
}

func (s *Store) ExistsForJobAndApplicant(ctx context.Context, jobID, applicantID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM job_applications WHERE job_id = ? AND applicant_id = ?)`, jobID, applicantID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: check duplicate: %v", lifecycle.ErrStorage, err)
	}
	return exists, nil
}

func (s *Store) ListByApplicant(ctx context.Context, applicantID string) ([]lifecycle.Application, error) {
	return s.list(ctx, `SELECT `+columns+` FROM job_applications a
       WHERE a.applicant_id = ? ORDER BY a.applied_at DESC, a.id DESC`, applicantID)
}

func (s *Store) ListByJob(ctx context.Context, jobID string) ([]lifecycle.Application, error) {
	return s.list(ctx, `SELECT `+columns+` FROM job_applications a
       WHERE a.job_id = ? ORDER BY a.applied_at DESC, a.id DESC`, jobID)
}

func (s *Store) ListByEmployer(ctx context.Context, employerID string) ([]lifecycle.Application, error) {
	return s.list(ctx, `SELECT `+columns+` FROM job_applications a
       JOIN jobs j ON j.id = a.job_id
       WHERE j.employer_id = ? ORDER BY a.applied_at DESC, a.id DESC`, employerID)
}

func (s *Store) CompareAndSetStatus(ctx context.Context, id string, change lifecycle.StatusChange) (*lifecycle.Application, error) {
	entry, err := json.Marshal(lifecycle.HistoryEntry{
		From:    change.Expected,
		To:      change.Next,
		ActorID: change.ActorID,
		At:      change.At,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode history: %v", lifecycle.ErrStorage, err)
	}
	row := s.db.QueryRowContext(ctx,
		`UPDATE job_applications
         SET status     = ?,
             feedback   = COALESCE(?, feedback),
             version    = version + 1,
             updated_at = ?,
             history    = json_insert(history, '$[#]', json(?))
         WHERE id = ? AND status = ?
         RETURNING `+returning,
		string(change.Next), nullString(change.Feedback), change.At.UnixMicro(), string(entry),
		id, string(change.Expected),
	)
	updated, err := scan(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: update status: %v", lifecycle.ErrStorage, err)
	}
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, lifecycle.ErrConflict
}

// ResumeHandleInUse reports whether any application references handle.
func (s *Store) ResumeHandleInUse(ctx context.Context, handle string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM job_applications WHERE resume_handle = ?)`, handle).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: check resume handle: %v", lifecycle.ErrStorage, err)
	}
	return exists, nil
}

func (s *Store) list(ctx context.Context, query, arg string) ([]lifecycle.Application, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("%w: list applications: %v", lifecycle.ErrStorage, err)
	}
	defer rows.Close()
	out := make([]lifecycle.Application, 0)
	for rows.Next() {
		app, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan application: %v", lifecycle.ErrStorage, err)
		}
		out = append(out, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list applications: %v", lifecycle.ErrStorage, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*lifecycle.Application, error) {
	var (
		a                    lifecycle.Application
		status, history      string
		appliedAt, updatedAt int64
		feedback             sql.NullString
	)
	if err := row.Scan(&a.ID, &a.JobID, &a.ApplicantID, &appliedAt, &status, &a.CoverLetter,
		&a.ResumeHandle, &feedback, &a.Version, &updatedAt, &history); err != nil {
		return nil, err
	}
	a.Status = lifecycle.Status(status)
	a.AppliedAt = time.UnixMicro(appliedAt).UTC()
	a.UpdatedAt = time.UnixMicro(updatedAt).UTC()
	if feedback.Valid {
		fb := feedback.String
		a.Feedback = &fb
	}
	if err := json.Unmarshal([]byte(history), &a.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	a.History = nonNil(a.History)
	return &a, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nonNil(h []lifecycle.HistoryEntry) []lifecycle.HistoryEntry {
	if h == nil {
		return []lifecycle.HistoryEntry{}
	}
	return h
}
