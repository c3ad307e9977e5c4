package lifecycle

import (
	"context"
	"io"
	"time"
)

// Store persists applications. CompareAndSetStatus is the only status mutator.
type Store interface {
	// Create inserts app. It returns ErrDuplicate when the (job, applicant)
	// pair already exists.
	Create(ctx context.Context, app Application) (*Application, error)
	FindByID(ctx context.Context, id string) (*Application, error)
	ExistsForJobAndApplicant(ctx context.Context, jobID, applicantID string) (bool, error)
	// The list methods return applications ordered by AppliedAt, newest first.
	ListByApplicant(ctx context.Context, applicantID string) ([]Application, error)
	ListByJob(ctx context.Context, jobID string) ([]Application, error)
	ListByEmployer(ctx context.Context, employerID string) ([]Application, error)
	// CompareAndSetStatus applies change iff the persisted status equals
	// change.Expected. It returns ErrConflict when it does not and
	// ErrNotFound when the application is missing.
	CompareAndSetStatus(ctx context.Context, id string, change StatusChange) (*Application, error)
}

// Directory resolves the jobs and users the engine reads but never writes.
type Directory interface {
	FindJob(ctx context.Context, id string) (*Job, error)
	FindUser(ctx context.Context, id string) (*Actor, error)
}

// ResumeStore keeps applicant-supplied resume blobs behind opaque handles.
type ResumeStore interface {
	Store(ctx context.Context, r io.Reader, originalName, contentType string) (string, error)
	Open(ctx context.Context, handle string) (io.ReadCloser, error)
	DetectContentType(ctx context.Context, handle string) (string, error)
}

// Limiter admits at most limit events per key within window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) bool
}

// NotificationKind selects which template a notification uses.
type NotificationKind string

const (
	NotifyReceived      NotificationKind = "received"
	NotifyAcknowledged  NotificationKind = "acknowledged"
	NotifyStatusChanged NotificationKind = "status_changed"
)

// Notification carries everything a template may reference.
type Notification struct {
	Kind          NotificationKind
	To            string
	ApplicantName string
	JobTitle      string
	Company       string
	EmployerName  string
	Status        Status
	Feedback      string
	AppliedAt     time.Time
}

// Notifier renders and sends a notification. Failures are reported but the
// engine never rolls back on them.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Event types published after committed writes.
const (
	EventSubmitted     = "EVENT_APPLICATION_SUBMITTED"
	EventStatusChanged = "EVENT_APPLICATION_STATUS_CHANGED"
)

// Event describes a committed change for downstream consumers.
type Event struct {
	Type          string    `json:"type"`
	ApplicationID string    `json:"applicationId"`
	JobID         string    `json:"jobId"`
	ApplicantID   string    `json:"applicantId"`
	ActorID       string    `json:"actorId"`
	From          Status    `json:"from,omitempty"`
	To            Status    `json:"to"`
	At            time.Time `json:"at"`
}

// EventPublisher fans committed changes out. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
