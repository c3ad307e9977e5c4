package lifecycle

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of actor roles.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleEmployer  Role = "EMPLOYER"
	RoleJobSeeker Role = "JOBSEEKER"
)

// ParseRole converts a raw role name to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleEmployer, RoleJobSeeker:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor is an authenticated user as resolved by the surrounding auth layer.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
}

// Job is the read-only view of a posting the engine needs.
type Job struct {
	ID         string     `json:"id"`
	EmployerID string     `json:"employerId"`
	Title      string     `json:"title"`
	Company    string     `json:"company"`
	Active     bool       `json:"active"`
	Deadline   *time.Time `json:"deadline,omitempty"`
}

// Open reports whether the job accepts applications at now.
func (j *Job) Open(now time.Time) bool {
	if !j.Active {
		return false
	}
	return j.Deadline == nil || now.Before(*j.Deadline)
}

// HistoryEntry records one successful status write.
type HistoryEntry struct {
	From    Status    `json:"from"`
	To      Status    `json:"to"`
	ActorID string    `json:"actorId,omitempty"`
	At      time.Time `json:"at"`
}

// Application is one applicant's submission to one job.
//
// JobID, ApplicantID, AppliedAt, ResumeHandle and CoverLetter never change
// after creation. Status and Feedback change only through
// Store.CompareAndSetStatus.
type Application struct {
	ID           string         `json:"id"`
	JobID        string         `json:"jobId"`
	ApplicantID  string         `json:"applicantId"`
	AppliedAt    time.Time      `json:"appliedAt"`
	CoverLetter  string         `json:"coverLetter"`
	ResumeHandle string         `json:"resumeHandle"`
	Status       Status         `json:"status"`
	Feedback     *string        `json:"feedback"`
	Version      int64          `json:"version"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	History      []HistoryEntry `json:"history"`
}

// StatusChange is the single mutation a store applies to an application.
// A nil Feedback keeps the stored feedback.
type StatusChange struct {
	Expected Status
	Next     Status
	Feedback *string
	ActorID  string
	At       time.Time
}

// Apply returns a copy of app with the change applied. Callers must have
// verified app.Status == c.Expected.
func (c StatusChange) Apply(app Application) Application {
	app.Status = c.Next
	if c.Feedback != nil {
		fb := *c.Feedback
		app.Feedback = &fb
	}
	app.Version++
	app.UpdatedAt = c.At
	history := make([]HistoryEntry, len(app.History), len(app.History)+1)
	copy(history, app.History)
	app.History = append(history, HistoryEntry{From: c.Expected, To: c.Next, ActorID: c.ActorID, At: c.At})
	return app
}

// StatusSummary is the body of GET /applications/{id}/status-history.
type StatusSummary struct {
	CurrentStatus Status         `json:"currentStatus"`
	LastUpdated   time.Time      `json:"lastUpdated"`
	Feedback      *string        `json:"feedback"`
	History       []HistoryEntry `json:"history"`
}

// JobSummary is the part of a job shown alongside an application.
type JobSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Company    string `json:"company"`
	EmployerID string `json:"employerId"`
}

// ApplicantSummary is the part of the applicant shown alongside an application.
type ApplicantSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ApplicationView is an application with its job and applicant resolved.
// A lookup that fails leaves only the ID set.
type ApplicationView struct {
	Application
	Job       JobSummary       `json:"job"`
	Applicant ApplicantSummary `json:"applicant"`
}

func summarizeJob(j *Job) JobSummary {
	return JobSummary{ID: j.ID, Title: j.Title, Company: j.Company, EmployerID: j.EmployerID}
}

func summarizeApplicant(a Actor) ApplicantSummary {
	return ApplicantSummary{ID: a.ID, Name: a.Name, Email: a.Email}
}

func newView(app *Application, job *Job, applicant Actor) *ApplicationView {
	return &ApplicationView{Application: *app, Job: summarizeJob(job), Applicant: summarizeApplicant(applicant)}
}
