// Package memory is an in-process Application Store and Directory. It backs
// tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"jobportal/application-service/internal/lifecycle"
)

type pairKey struct{ jobID, applicantID string }

// Store is a mutex-guarded implementation of lifecycle.Store and
// lifecycle.Directory.
type Store struct {
	mu    sync.Mutex
	apps  map[string]lifecycle.Application
	pairs map[pairKey]string
	jobs  map[string]lifecycle.Job
	users map[string]lifecycle.Actor
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		apps:  make(map[string]lifecycle.Application),
		pairs: make(map[pairKey]string),
		jobs:  make(map[string]lifecycle.Job),
		users: make(map[string]lifecycle.Actor),
	}
}

// PutJob inserts or replaces a job.
func (m *Store) PutJob(job lifecycle.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
}

// PutUser inserts or replaces a user.
func (m *Store) PutUser(u lifecycle.Actor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// UpsertJob and UpsertUser let the directory seeder treat every store alike.
func (m *Store) UpsertJob(_ context.Context, job lifecycle.Job) error {
	m.PutJob(job)
	return nil
}

func (m *Store) UpsertUser(_ context.Context, u lifecycle.Actor) error {
	m.PutUser(u)
	return nil
}

func (m *Store) FindJob(_ context.Context, id string) (*lifecycle.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, lifecycle.ErrNotFound)
	}
	return &job, nil
}

func (m *Store) FindUser(_ context.Context, id string) (*lifecycle.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, lifecycle.ErrNotFound)
	}
	return &u, nil
}

func (m *Store) Create(_ context.Context, app lifecycle.Application) (*lifecycle.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey{app.JobID, app.ApplicantID}
	if _, ok := m.pairs[key]; ok {
		return nil, lifecycle.ErrDuplicate
	}
	if _, ok := m.apps[app.ID]; ok {
		return nil, fmt.Errorf("%w: application id %s already exists", lifecycle.ErrStorage, app.ID)
	}
	m.apps[app.ID] = clone(app)
	m.pairs[key] = app.ID
	out := clone(app)
	return &out, nil
}

func (m *Store) FindByID(_ context.Context, id string) (*lifecycle.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, lifecycle.ErrNotFound)
	}
	out := clone(app)
	return &out, nil
}

func (m *Store) ExistsForJobAndApplicant(_ context.Context, jobID, applicantID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pairs[pairKey{jobID, applicantID}]
	return ok, nil
}

func (m *Store) ListByApplicant(_ context.Context, applicantID string) ([]lifecycle.Application, error) {
	return m.filter(func(a lifecycle.Application) bool { return a.ApplicantID == applicantID }), nil
}

func (m *Store) ListByJob(_ context.Context, jobID string) ([]lifecycle.Application, error) {
	return m.filter(func(a lifecycle.Application) bool { return a.JobID == jobID }), nil
}

// ListByEmployer reads job ownership and applications under one lock.
func (m *Store) ListByEmployer(_ context.Context, employerID string) ([]lifecycle.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterLocked(func(a lifecycle.Application) bool {
		j, ok := m.jobs[a.JobID]
		return ok && j.EmployerID == employerID
	}), nil
}

func (m *Store) CompareAndSetStatus(_ context.Context, id string, change lifecycle.StatusChange) (*lifecycle.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, lifecycle.ErrNotFound)
	}
	if app.Status != change.Expected {
		return nil, lifecycle.ErrConflict
	}
	updated := change.Apply(app)
	m.apps[id] = updated
	out := clone(updated)
	return &out, nil
}

// ResumeHandleInUse reports whether any application references handle.
func (m *Store) ResumeHandleInUse(_ context.Context, handle string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.ResumeHandle == handle {
			return true, nil
		}
	}
	return false, nil
}

func (m *Store) filter(keep func(lifecycle.Application) bool) []lifecycle.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterLocked(keep)
}

func (m *Store) filterLocked(keep func(lifecycle.Application) bool) []lifecycle.Application {
	out := make([]lifecycle.Application, 0)
	for _, a := range m.apps {
		if keep(a) {
			out = append(out, clone(a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AppliedAt.Equal(out[j].AppliedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].AppliedAt.After(out[j].AppliedAt)
	})
	return out
}

func clone(a lifecycle.Application) lifecycle.Application {
	if a.Feedback != nil {
		fb := *a.Feedback
		a.Feedback = &fb
	}
	history := make([]lifecycle.HistoryEntry, len(a.History))
	copy(history, a.History)
	a.History = history
	return a
}
