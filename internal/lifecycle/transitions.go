// Package lifecycle defines the application lifecycle engine: the status
// state machine, the authorization policy and the service that orchestrates
// submit, acknowledge and transition.
//
// Valid status graph:
//
//	PENDING ──► REVIEWING ──► SHORTLISTED ──► INTERVIEWED ──► OFFERED ──► ACCEPTED
//	   │            │              │                │             │
//	   └────────────┴──────────────┴────────────────┴─────────────┴──► REJECTED
//
// ACCEPTED and REJECTED are terminal states.
package lifecycle

import (
	"fmt"
	"strings"
)

// Status values mirror the status column of job_applications.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusReviewing   Status = "REVIEWING"
	StatusShortlisted Status = "SHORTLISTED"
	StatusInterviewed Status = "INTERVIEWED"
	StatusOffered     Status = "OFFERED"
	StatusAccepted    Status = "ACCEPTED"
	StatusRejected    Status = "REJECTED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusReviewing,
	StatusShortlisted,
	StatusInterviewed,
	StatusOffered,
	StatusAccepted,
	StatusRejected,
}

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusPending:     {StatusReviewing, StatusRejected},
	StatusReviewing:   {StatusShortlisted, StatusRejected},
	StatusShortlisted: {StatusInterviewed, StatusRejected},
	StatusInterviewed: {StatusOffered, StatusRejected},
	StatusOffered:     {StatusAccepted, StatusRejected},
	StatusAccepted:    {},
	StatusRejected:    {},
}

// feedbackRequired marks the targets whose write must carry feedback.
var feedbackRequired = map[Status]bool{
	StatusReviewing:   true,
	StatusShortlisted: true,
	StatusInterviewed: true,
	StatusOffered:     true,
	StatusRejected:    true,
}

var descriptions = map[Status]string{
	StatusPending:     "Application submitted but not yet reviewed",
	StatusReviewing:   "Application is being reviewed by the employer",
	StatusShortlisted: "Candidate has been shortlisted for interview",
	StatusInterviewed: "Interview has been completed",
	StatusOffered:     "Job offer has been extended",
	StatusAccepted:    "Offer has been accepted by the candidate",
	StatusRejected:    "Application has been rejected",
}

// ParseStatus converts a raw string to a Status. Surrounding whitespace and
// letter case are ignored; unknown values return an error.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := validTransitions[st]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// AllowedNext returns the legal next statuses from s, in lifecycle order.
// Unknown and terminal statuses return an empty slice.
func AllowedNext(s Status) []Status {
	next := validTransitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RequiresFeedback reports whether a write to target must carry feedback.
func RequiresFeedback(target Status) bool { return feedbackRequired[target] }

// IsTerminal returns true for ACCEPTED and REJECTED.
func IsTerminal(s Status) bool { return s.Valid() && len(validTransitions[s]) == 0 }

// StatusInfo is the per-status entry served by /applications/status-config.
type StatusInfo struct {
	Label              string   `json:"label"`
	Description        string   `json:"description"`
	RequiresFeedback   bool     `json:"requiresFeedback"`
	AllowedTransitions []Status `json:"allowedTransitions"`
}

// Describe returns the configuration entry for a single status.
func Describe(s Status) StatusInfo {
	return StatusInfo{
		Label:              string(s),
		Description:        descriptions[s],
		RequiresFeedback:   RequiresFeedback(s),
		AllowedTransitions: AllowedNext(s),
	}
}

// StatusConfig returns the full table keyed by status name.
func StatusConfig() map[Status]StatusInfo {
	out := make(map[Status]StatusInfo, len(AllStatuses))
	for _, s := range AllStatuses {
		out[s] = Describe(s)
	}
	return out
}
