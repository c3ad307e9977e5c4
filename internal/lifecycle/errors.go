package lifecycle

import "errors"

// Sentinel errors returned by the engine and its stores. Transports match them
// with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrForbidden         = errors.New("forbidden")
	ErrDuplicate         = errors.New("you have already applied for this job")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrFeedbackRequired  = errors.New("feedback is required for this status change")
	ErrClosed            = errors.New("job is not accepting applications")
	ErrConflict          = errors.New("application was modified concurrently")
	ErrRateLimited       = errors.New("too many submissions, try again later")
	ErrStorage           = errors.New("storage failure")
	ErrBlob              = errors.New("resume storage failure")
)

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
