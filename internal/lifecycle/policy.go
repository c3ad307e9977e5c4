package lifecycle

// Operation is an action an actor attempts on an application.
type Operation string

const (
	OpRead           Operation = "READ"
	OpTransition     Operation = "TRANSITION"
	OpAcknowledge    Operation = "ACKNOWLEDGE"
	OpDownloadResume Operation = "DOWNLOAD_RESUME"
)

// readOnly holds the operations admins and applicants may perform.
var readOnly = map[Operation]bool{
	OpRead:           true,
	OpDownloadResume: true,
}

// MayPerform decides whether actor may perform op on app, whose job is job.
// Rules are evaluated top to bottom:
//
//   - ADMIN may read and download the resume, nothing else.
//   - The applicant may read and download the resume.
//   - The employer owning the job may do everything.
//   - Anyone else is denied.
func MayPerform(actor Actor, app Application, job Job, op Operation) bool {
	switch {
	case actor.Role == RoleAdmin:
		return readOnly[op]
	case actor.ID != "" && actor.ID == app.ApplicantID:
		return readOnly[op]
	case actor.Role == RoleEmployer && actor.ID != "" && actor.ID == job.EmployerID:
		return op == OpRead || op == OpTransition || op == OpAcknowledge || op == OpDownloadResume
	}
	return false
}

// MayListJob reports whether actor may list the applications of job.
func MayListJob(actor Actor, job Job) bool {
	return actor.Role == RoleEmployer && actor.ID != "" && actor.ID == job.EmployerID
}
