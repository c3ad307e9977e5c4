package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ─── Service ─────────────────────────────────────────────────────────────────

// Submissions that would store a resume are limited per applicant.
const (
	SubmitLimit  = 5
	SubmitWindow = time.Minute
)

// Deps are the collaborators of a Service. Events, Limiter, Now and Logger
// are optional.
type Deps struct {
	Store     Store
	Directory Directory
	Resumes   ResumeStore
	Notifier  Notifier
	Events    EventPublisher
	Limiter   Limiter
	Now       func() time.Time
	Logger    *slog.Logger
}

// Service encapsulates the application lifecycle.
// It has no dependency on a transport; HTTP and gRPC both call into it.
type Service struct {
	store    Store
	dir      Directory
	resumes  ResumeStore
	notifier Notifier
	events   EventPublisher
	limiter  Limiter
	now      func() time.Time
	log      *slog.Logger
}

// NewService returns a configured Service.
func NewService(d Deps) *Service {
	s := &Service{
		store:    d.Store,
		dir:      d.Directory,
		resumes:  d.Resumes,
		notifier: d.Notifier,
		events:   d.Events,
		limiter:  d.Limiter,
		now:      d.Now,
		log:      d.Logger,
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// SubmitInput is the payload of a new application.
type SubmitInput struct {
	JobID       string
	CoverLetter string
	Resume      io.Reader
	ResumeName  string
	ResumeType  string
}

// Submit creates a PENDING application for actor on the given job.
//
// The resume is stored before the record is created: a failed insert leaves
// an orphaned blob, never an application without a resume. Only attempts
// that pass every engine check count against the submit limit.
func (s *Service) Submit(ctx context.Context, in SubmitInput, actor Actor) (*ApplicationView, error) {
	if strings.TrimSpace(in.JobID) == "" {
		return nil, &ValidationError{Msg: "jobId is required"}
	}
	if in.Resume == nil {
		return nil, &ValidationError{Msg: "resume is required"}
	}

	job, err := s.dir.FindJob(ctx, in.JobID)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", in.JobID, err)
	}
	now := s.now()
	if !job.Open(now) {
		return nil, ErrClosed
	}
	if actor.Role != RoleJobSeeker {
		return nil, fmt.Errorf("only job seekers can apply for jobs: %w", ErrForbidden)
	}

	exists, err := s.store.ExistsForJobAndApplicant(ctx, job.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicate
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, "submit:"+actor.ID, SubmitLimit, SubmitWindow) {
		return nil, ErrRateLimited
	}

	handle, err := s.resumes.Store(ctx, in.Resume, in.ResumeName, in.ResumeType)
	if err != nil {
		return nil, fmt.Errorf("store resume: %w", err)
	}

	created, err := s.store.Create(ctx, Application{
		ID:           uuid.NewString(),
		JobID:        job.ID,
		ApplicantID:  actor.ID,
		AppliedAt:    now,
		CoverLetter:  in.CoverLetter,
		ResumeHandle: handle,
		Status:       StatusPending,
		UpdatedAt:    now,
		History:      []HistoryEntry{},
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, created.ID, Notification{
		Kind:          NotifyReceived,
		To:            actor.Email,
		ApplicantName: actor.Name,
		JobTitle:      job.Title,
		Company:       job.Company,
		Status:        StatusPending,
		AppliedAt:     created.AppliedAt,
	})
	s.publish(ctx, Event{
		Type:          EventSubmitted,
		ApplicationID: created.ID,
		JobID:         created.JobID,
		ApplicantID:   created.ApplicantID,
		ActorID:       actor.ID,
		To:            StatusPending,
		At:            created.AppliedAt,
	})
	return newView(created, job, actor), nil
}

// Acknowledge sends the employer's acknowledgement email and, when the
// application is still PENDING, advances it to REVIEWING.
//
// This path writes REVIEWING without feedback; it is the one exception to the
// feedback requirement.
func (s *Service) Acknowledge(ctx context.Context, appID string, actor Actor) (*ApplicationView, error) {
	app, job, err := s.authorize(ctx, appID, actor, OpAcknowledge)
	if err != nil {
		return nil, err
	}

	applicant := s.applicant(ctx, app)
	s.notify(ctx, app.ID, Notification{
		Kind:          NotifyAcknowledged,
		To:            applicant.Email,
		ApplicantName: applicant.Name,
		JobTitle:      job.Title,
		Company:       job.Company,
		EmployerName:  actor.Name,
		Status:        app.Status,
		AppliedAt:     app.AppliedAt,
	})

	if app.Status != StatusPending {
		return newView(app, job, applicant), nil
	}

	updated, err := s.store.CompareAndSetStatus(ctx, app.ID, StatusChange{
		Expected: StatusPending,
		Next:     StatusReviewing,
		ActorID:  actor.ID,
		At:       s.now(),
	})
	if errors.Is(err, ErrConflict) {
		// Another write moved the application first; report what is stored now.
		current, err := s.store.FindByID(ctx, app.ID)
		if err != nil {
			return nil, err
		}
		return newView(current, job, applicant), nil
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, statusEvent(updated, actor, StatusPending))
	return newView(updated, job, applicant), nil
}

// Transition moves an application to target on behalf of its job's employer.
// Non-empty feedback replaces the stored feedback; empty feedback keeps it,
// unless the target requires feedback, in which case ErrFeedbackRequired is
// returned.
func (s *Service) Transition(ctx context.Context, appID string, target Status, feedback string, actor Actor) (*ApplicationView, error) {
	if !target.Valid() {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown application status %q", target)}
	}
	app, job, err := s.authorize(ctx, appID, actor, OpTransition)
	if err != nil {
		return nil, err
	}

	current := app.Status
	if !IsTransitionAllowed(current, target) {
		return nil, fmt.Errorf("transition %s → %s is not allowed: %w", current, target, ErrInvalidTransition)
	}

	var fb *string
	if strings.TrimSpace(feedback) != "" {
		fb = &feedback
	} else if RequiresFeedback(target) {
		return nil, ErrFeedbackRequired
	}

	updated, err := s.store.CompareAndSetStatus(ctx, app.ID, StatusChange{
		Expected: current,
		Next:     target,
		Feedback: fb,
		ActorID:  actor.ID,
		At:       s.now(),
	})
	if err != nil {
		return nil, err
	}

	applicant := s.applicant(ctx, updated)
	n := Notification{
		Kind:          NotifyStatusChanged,
		To:            applicant.Email,
		ApplicantName: applicant.Name,
		JobTitle:      job.Title,
		Company:       job.Company,
		EmployerName:  actor.Name,
		Status:        updated.Status,
		AppliedAt:     updated.AppliedAt,
	}
	if updated.Feedback != nil {
		n.Feedback = *updated.Feedback
	}
	s.notify(ctx, updated.ID, n)
	s.publish(ctx, statusEvent(updated, actor, current))
	return newView(updated, job, applicant), nil
}

// Get returns a single application visible to actor.
func (s *Service) Get(ctx context.Context, appID string, actor Actor) (*ApplicationView, error) {
	app, job, err := s.authorize(ctx, appID, actor, OpRead)
	if err != nil {
		return nil, err
	}
	return newView(app, job, s.applicant(ctx, app)), nil
}

// StatusHistory returns the status summary of an application visible to actor.
func (s *Service) StatusHistory(ctx context.Context, appID string, actor Actor) (*StatusSummary, error) {
	app, _, err := s.authorize(ctx, appID, actor, OpRead)
	if err != nil {
		return nil, err
	}
	last := app.UpdatedAt
	if last.IsZero() {
		last = app.AppliedAt
	}
	history := app.History
	if history == nil {
		history = []HistoryEntry{}
	}
	return &StatusSummary{
		CurrentStatus: app.Status,
		LastUpdated:   last,
		Feedback:      app.Feedback,
		History:       history,
	}, nil
}

// ListForApplicant returns the job seeker's own applications, newest first.
func (s *Service) ListForApplicant(ctx context.Context, actor Actor) ([]ApplicationView, error) {
	if actor.Role != RoleJobSeeker {
		return nil, ErrForbidden
	}
	apps, err := s.store.ListByApplicant(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, apps, nil, &actor), nil
}

// ListForJob returns the applications to a job owned by actor, newest first.
func (s *Service) ListForJob(ctx context.Context, jobID string, actor Actor) ([]ApplicationView, error) {
	job, err := s.dir.FindJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if !MayListJob(actor, *job) {
		return nil, ErrNotAuthorized
	}
	apps, err := s.store.ListByJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, apps, job, nil), nil
}

// ListForEmployer returns the applications to every job actor owns.
func (s *Service) ListForEmployer(ctx context.Context, actor Actor) ([]ApplicationView, error) {
	if actor.Role != RoleEmployer {
		return nil, ErrForbidden
	}
	apps, err := s.store.ListByEmployer(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, apps, nil, nil), nil
}

// Resume is an opened resume blob. Callers must close Body.
type Resume struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
}

// ResumeFor opens the resume attached to an application.
func (s *Service) ResumeFor(ctx context.Context, appID string, actor Actor) (*Resume, error) {
	app, _, err := s.authorize(ctx, appID, actor, OpDownloadResume)
	if err != nil {
		return nil, err
	}
	if app.ResumeHandle == "" {
		return nil, fmt.Errorf("no resume found for this application: %w", ErrNotFound)
	}
	body, err := s.resumes.Open(ctx, app.ResumeHandle)
	if err != nil {
		return nil, err
	}
	contentType, err := s.resumes.DetectContentType(ctx, app.ResumeHandle)
	if err != nil || contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Resume{Body: body, ContentType: contentType, Filename: app.ResumeHandle}, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// authorize loads an application and its job and applies the policy.
// A denial is ErrNotAuthorized; transports render it as not-found.
func (s *Service) authorize(ctx context.Context, appID string, actor Actor, op Operation) (*Application, *Job, error) {
	app, err := s.store.FindByID(ctx, appID)
	if err != nil {
		return nil, nil, err
	}
	job, err := s.dir.FindJob(ctx, app.JobID)
	if errors.Is(err, ErrNotFound) {
		job = &Job{ID: app.JobID}
	} else if err != nil {
		return nil, nil, err
	}
	if !MayPerform(actor, *app, *job, op) {
		return nil, nil, ErrNotAuthorized
	}
	return app, job, nil
}

// applicant resolves the applicant's contact details. A failed lookup yields
// an Actor with only the ID set.
func (s *Service) applicant(ctx context.Context, app *Application) Actor {
	u, err := s.dir.FindUser(ctx, app.ApplicantID)
	if err != nil {
		s.log.Error("applicant lookup failed", "applicationId", app.ID, "applicantId", app.ApplicantID, "err", err)
		return Actor{ID: app.ApplicantID}
	}
	return *u
}

// views resolves jobs and applicants once per distinct ID. job and applicant,
// when given, are already known to the caller.
func (s *Service) views(ctx context.Context, apps []Application, job *Job, applicant *Actor) []ApplicationView {
	jobs := make(map[string]*Job)
	users := make(map[string]Actor)
	if job != nil {
		jobs[job.ID] = job
	}
	if applicant != nil {
		users[applicant.ID] = *applicant
	}

	out := make([]ApplicationView, 0, len(apps))
	for i := range apps {
		app := &apps[i]
		j, ok := jobs[app.JobID]
		if !ok {
			found, err := s.dir.FindJob(ctx, app.JobID)
			if err != nil {
				s.log.Warn("job lookup failed", "applicationId", app.ID, "jobId", app.JobID, "err", err)
				found = &Job{ID: app.JobID}
			}
			j = found
			jobs[app.JobID] = j
		}
		u, ok := users[app.ApplicantID]
		if !ok {
			u = s.applicant(ctx, app)
			users[app.ApplicantID] = u
		}
		out = append(out, *newView(app, j, u))
	}
	return out
}

// notify makes exactly one send attempt and logs a failure. It never
// returns an error.
func (s *Service) notify(ctx context.Context, appID string, n Notification) {
	if s.notifier == nil {
		return
	}
	if n.To == "" {
		s.log.Error("notification has no recipient", "applicationId", appID, "kind", n.Kind, "status", n.Status)
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		level := slog.LevelWarn
		if n.To == "" {
			level = slog.LevelError
		}
		s.log.Log(ctx, level, "notification failed", "applicationId", appID, "kind", n.Kind, "status", n.Status, "err", err)
	}
}

func (s *Service) publish(ctx context.Context, e Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("publish event failed", "type", e.Type, "applicationId", e.ApplicationID, "err", err)
	}
}

func statusEvent(app *Application, actor Actor, from Status) Event {
	return Event{
		Type:          EventStatusChanged,
		ApplicationID: app.ID,
		JobID:         app.JobID,
		ApplicantID:   app.ApplicantID,
		ActorID:       actor.ID,
		From:          from,
		To:            app.Status,
		At:            app.UpdatedAt,
	}
}
