// Package storetest holds the behavioural suite every Application Store
// backend must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jobportal/application-service/internal/lifecycle"
)

// Backend is what each store package exposes.
type Backend interface {
	lifecycle.Store
	lifecycle.Directory
	ResumeHandleInUse(ctx context.Context, handle string) (bool, error)
}

// Harness wraps a fresh, empty backend and its seeding hooks.
type Harness struct {
	Backend Backend
	PutUser func(t *testing.T, u lifecycle.Actor)
	PutJob  func(t *testing.T, j lifecycle.Job)
}

var base = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// Run executes the suite. open must return an isolated backend per call.
func Run(t *testing.T, open func(t *testing.T) Harness) {
	t.Run("CreateAndFind", func(t *testing.T) { testCreateAndFind(t, open(t)) })
	t.Run("Duplicate", func(t *testing.T) { testDuplicate(t, open(t)) })
	t.Run("Lists", func(t *testing.T) { testLists(t, open(t)) })
	t.Run("CompareAndSet", func(t *testing.T) { testCompareAndSet(t, open(t)) })
	t.Run("ConcurrentCompareAndSet", func(t *testing.T) { testConcurrentCAS(t, open(t)) })
	t.Run("Directory", func(t *testing.T) { testDirectory(t, open(t)) })
}

func seed(t *testing.T, h Harness) {
	t.Helper()
	h.PutUser(t, lifecycle.Actor{ID: "emp-1", Email: "hr@acme.test", Name: "Acme HR", Role: lifecycle.RoleEmployer})
	h.PutUser(t, lifecycle.Actor{ID: "emp-2", Email: "hr@globex.test", Name: "Globex HR", Role: lifecycle.RoleEmployer})
	h.PutUser(t, lifecycle.Actor{ID: "seeker-1", Email: "ana@mail.test", Name: "Ana", Role: lifecycle.RoleJobSeeker})
	h.PutUser(t, lifecycle.Actor{ID: "seeker-2", Email: "bo@mail.test", Name: "Bo", Role: lifecycle.RoleJobSeeker})
	h.PutJob(t, lifecycle.Job{ID: "job-1", EmployerID: "emp-1", Title: "Backend Engineer", Company: "Acme", Active: true})
	h.PutJob(t, lifecycle.Job{ID: "job-2", EmployerID: "emp-1", Title: "SRE", Company: "Acme", Active: true})
	h.PutJob(t, lifecycle.Job{ID: "job-3", EmployerID: "emp-2", Title: "Analyst", Company: "Globex", Active: true})
}

func newApp(id, jobID, applicantID string, at time.Time) lifecycle.Application {
	return lifecycle.Application{
		ID:           id,
		JobID:        jobID,
		ApplicantID:  applicantID,
		AppliedAt:    at,
		CoverLetter:  "hello",
		ResumeHandle: "handle-" + id + ".pdf",
		Status:       lifecycle.StatusPending,
		UpdatedAt:    at,
		History:      []lifecycle.HistoryEntry{},
	}
}

func mustCreate(t *testing.T, s lifecycle.Store, app lifecycle.Application) *lifecycle.Application {
	t.Helper()
	got, err := s.Create(context.Background(), app)
	if err != nil {
		t.Fatalf("Create(%s): %v", app.ID, err)
	}
	return got
}

// ── Create / Find ────────────────────────────────────────────────────────────

func testCreateAndFind(t *testing.T, h Harness) {
	ctx := context.Background()
	seed(t, h)
	s := h.Backend

	created := mustCreate(t, s, newApp("app-1", "job-1", "seeker-1", base))
	if created.Status != lifecycle.StatusPending || created.Version != 0 {
		t.Errorf("created = %+v", created)
	}

	got, err := s.FindByID(ctx, "app-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.JobID != "job-1" || got.ApplicantID != "seeker-1" || got.CoverLetter != "hello" {
		t.Errorf("FindByID = %+v", got)
	}
	if !got.AppliedAt.Equal(base) {
		t.Errorf("AppliedAt = %v, want %v", got.AppliedAt, base)
	}
	if got.Feedback != nil {
		t.Errorf("Feedback = %q, want nil", *got.Feedback)
	}
	if got.History == nil || len(got.History) != 0 {
		t.Errorf("History = %#v, want empty non-nil", got.History)
	}

	if _, err := s.FindByID(ctx, "missing"); !errors.Is(err, lifecycle.ErrNotFound) {
		t.Errorf("FindByID(missing) err = %v, want ErrNotFound", err)
	}

	inUse, err := s.ResumeHandleInUse(ctx, "handle-app-1.pdf")
	if err != nil || !inUse {
		t.Errorf("ResumeHandleInUse = %v, %v; want true", inUse, err)
	}
	inUse, err = s.ResumeHandleInUse(ctx, "orphan.pdf")
	if err != nil || inUse {
		t.Errorf("ResumeHandleInUse(orphan) = %v, %v; want false", inUse, err)
	}
}

func testDuplicate(t *testing.T, h Harness) {
	ctx := context.Background()
	seed(t, h)
	s := h.Backend

	mustCreate(t, s, newApp("app-1", "job-1", "seeker-1", base))
	_, err := s.Create(ctx, newApp("app-2", "job-1", "seeker-1", base.Add(time.Minute)))
	if !errors.Is(err, lifecycle.ErrDuplicate) {
		t.Fatalf("second Create err = %v, want ErrDuplicate", err)
	}

	exists, err := s.ExistsForJobAndApplicant(ctx, "job-1", "seeker-1")
	if err != nil || !exists {
		t.Errorf("Exists(job-1, seeker-1) = %v, %v", exists, err)
	}
	exists, err = s.ExistsForJobAndApplicant(ctx, "job-2", "seeker-1")
	if err != nil || exists {
		t.Errorf("Exists(job-2, seeker-1) = %v, %v", exists, err)
	}

	// Same applicant on another job is fine.
	mustCreate(t, s, newApp("app-3", "job-2", "seeker-1", base))
}

// ── Lists ────────────────────────────────────────────────────────────────────

func testLists(t *testing.T, h Harness) {
	ctx := context.Background()
	seed(t, h)
	s := h.Backend

	mustCreate(t, s, newApp("a", "job-1", "seeker-1", base))
	mustCreate(t, s, newApp("b", "job-2", "seeker-1", base.Add(2*time.Hour)))
	mustCreate(t, s, newApp("c", "job-1", "seeker-2", base.Add(time.Hour)))
	mustCreate(t, s, newApp("d", "job-3", "seeker-2", base.Add(3*time.Hour)))

	cases := []struct {
		name string
		list func() ([]lifecycle.Application, error)
		want []string
	}{
		{"applicant seeker-1", func() ([]lifecycle.Application, error) { return s.ListByApplicant(ctx, "seeker-1") }, []string{"b", "a"}},
		{"applicant seeker-2", func() ([]lifecycle.Application, error) { return s.ListByApplicant(ctx, "seeker-2") }, []string{"d", "c"}},
		{"job-1", func() ([]lifecycle.Application, error) { return s.ListByJob(ctx, "job-1") }, []string{"c", "a"}},
		{"employer emp-1", func() ([]lifecycle.Application, error) { return s.ListByEmployer(ctx, "emp-1") }, []string{"b", "c", "a"}},
		{"employer emp-2", func() ([]lifecycle.Application, error) { return s.ListByEmployer(ctx, "emp-2") }, []string{"d"}},
		{"unknown job", func() ([]lifecycle.Application, error) { return s.ListByJob(ctx, "nope") }, []string{}},
	}
	for _, tc := range cases {
		got, err := tc.list()
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if got == nil {
			t.Errorf("%s: nil slice, want empty", tc.name)
		}
		ids := make([]string, len(got))
		for i, a := range got {
			ids[i] = a.ID
		}
		if len(ids) != len(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, ids, tc.want)
			continue
		}
		for i := range ids {
			if ids[i] != tc.want[i] {
				t.Errorf("%s: got %v, want %v", tc.name, ids, tc.want)
				break
			}
		}
	}
}

// ── CompareAndSetStatus ──────────────────────────────────────────────────────

func testCompareAndSet(t *testing.T, h Harness) {
	ctx := context.Background()
	seed(t, h)
	s := h.Backend
	mustCreate(t, s, newApp("app-1", "job-1", "seeker-1", base))

	fb := "strong profile"
	at := base.Add(time.Hour)
	updated, err := s.CompareAndSetStatus(ctx, "app-1", lifecycle.StatusChange{
		Expected: lifecycle.StatusPending,
		Next:     lifecycle.StatusReviewing,
		Feedback: &fb,
		ActorID:  "emp-1",
		At:       at,
	})
	if err != nil {
		t.Fatalf("CAS PENDING→REVIEWING: %v", err)
	}
	if updated.Status != lifecycle.StatusReviewing || updated.Version != 1 {
		t.Errorf("updated = status %s version %d", updated.Status, updated.Version)
	}
	if updated.Feedback == nil || *updated.Feedback != fb {
		t.Errorf("Feedback = %v, want %q", updated.Feedback, fb)
	}
	if !updated.UpdatedAt.Equal(at) {
		t.Errorf("UpdatedAt = %v, want %v", updated.UpdatedAt, at)
	}
	if len(updated.History) != 1 || updated.History[0].From != lifecycle.StatusPending ||
		updated.History[0].To != lifecycle.StatusReviewing || updated.History[0].ActorID != "emp-1" {
		t.Errorf("History = %+v", updated.History)
	}

	// Nil feedback keeps the stored value.
	updated, err = s.CompareAndSetStatus(ctx, "app-1", lifecycle.StatusChange{
		Expected: lifecycle.StatusReviewing,
		Next:     lifecycle.StatusShortlisted,
		ActorID:  "emp-1",
		At:       at.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CAS REVIEWING→SHORTLISTED: %v", err)
	}
	if updated.Feedback == nil || *updated.Feedback != fb {
		t.Errorf("Feedback after nil change = %v, want %q", updated.Feedback, fb)
	}
	if updated.Version != 2 || len(updated.History) != 2 {
		t.Errorf("version %d history %d, want 2/2", updated.Version, len(updated.History))
	}

	// Stale expectation.
	_, err = s.CompareAndSetStatus(ctx, "app-1", lifecycle.StatusChange{
		Expected: lifecycle.StatusPending,
		Next:     lifecycle.StatusRejected,
		At:       at,
	})
	if !errors.Is(err, lifecycle.ErrConflict) {
		t.Errorf("stale CAS err = %v, want ErrConflict", err)
	}
	got, _ := s.FindByID(ctx, "app-1")
	if got.Status != lifecycle.StatusShortlisted || got.Version != 2 {
		t.Errorf("after stale CAS = %s v%d", got.Status, got.Version)
	}

	_, err = s.CompareAndSetStatus(ctx, "missing", lifecycle.StatusChange{
		Expected: lifecycle.StatusPending,
		Next:     lifecycle.StatusReviewing,
		At:       at,
	})
	if !errors.Is(err, lifecycle.ErrNotFound) {
		t.Errorf("CAS(missing) err = %v, want ErrNotFound", err)
	}
}

func testConcurrentCAS(t *testing.T, h Harness) {
	ctx := context.Background()
	seed(t, h)
	s := h.Backend
	mustCreate(t, s, newApp("app-1", "job-1", "seeker-1", base))

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := lifecycle.StatusReviewing
			if i%2 == 1 {
				next = lifecycle.StatusRejected
			}
			_, err := s.CompareAndSetStatus(ctx, "app-1", lifecycle.StatusChange{
				Expected: lifecycle.StatusPending,
				Next:     next,
				ActorID:  "emp-1",
				At:       base.Add(time.Minute),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, lifecycle.ErrConflict):
				conflicts++
			default:
				t.Errorf("writer %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 || conflicts != writers-1 {
		t.Fatalf("wins=%d conflicts=%d, want 1/%d", wins, conflicts, writers-1)
	}
	got, err := s.FindByID(ctx, "app-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 1 || len(got.History) != 1 {
		t.Errorf("final version %d history %d, want 1/1", got.Version, len(got.History))
	}
}

// ── Directory ────────────────────────────────────────────────────────────────

func testDirectory(t *testing.T, h Harness) {
	ctx := context.Background()
	seed(t, h)
	deadline := base.Add(72 * time.Hour)
	h.PutJob(t, lifecycle.Job{ID: "job-closed", EmployerID: "emp-1", Title: "Old", Company: "Acme", Active: false, Deadline: &deadline})
	s := h.Backend

	job, err := s.FindJob(ctx, "job-closed")
	if err != nil {
		t.Fatalf("FindJob: %v", err)
	}
	if job.Active || job.Deadline == nil || !job.Deadline.Equal(deadline) || job.EmployerID != "emp-1" {
		t.Errorf("FindJob = %+v", job)
	}
	job, err = s.FindJob(ctx, "job-1")
	if err != nil || job.Deadline != nil || !job.Active {
		t.Errorf("FindJob(job-1) = %+v, %v", job, err)
	}

	u, err := s.FindUser(ctx, "seeker-1")
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if u.Role != lifecycle.RoleJobSeeker || u.Email != "ana@mail.test" || u.Name != "Ana" {
		t.Errorf("FindUser = %+v", u)
	}

	if _, err := s.FindJob(ctx, "nope"); !errors.Is(err, lifecycle.ErrNotFound) {
		t.Errorf("FindJob(nope) err = %v", err)
	}
	if _, err := s.FindUser(ctx, "nope"); !errors.Is(err, lifecycle.ErrNotFound) {
		t.Errorf("FindUser(nope) err = %v", err)
	}
}
