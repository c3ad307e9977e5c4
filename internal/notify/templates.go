package notify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"jobportal/application-service/internal/lifecycle"
)

// Template is a subject/body pair in text/template syntax. Both are executed
// against a lifecycle.Notification.
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Template keys. Status-change templates are keyed by the target status.
const (
	KeyReceived      = "received"
	KeyAcknowledged  = "acknowledged"
	KeyStatusChanged = "status_changed"
)

func keyFor(n lifecycle.Notification) string {
	switch n.Kind {
	case lifecycle.NotifyReceived:
		return KeyReceived
	case lifecycle.NotifyAcknowledged:
		return KeyAcknowledged
	}
	if _, ok := defaultTemplates[string(n.Status)]; ok {
		return string(n.Status)
	}
	return KeyStatusChanged
}

const statusSubject = "Application Status Update - {{.JobTitle}} at {{.Company}}"

func statusBody(message string) string {
	return "Dear {{.ApplicantName}},\n\n" + message +
		"{{if .Feedback}}\n\nFeedback from the employer:\n{{.Feedback}}{{end}}" +
		"\n\nBest regards,\n{{.EmployerName}}\n{{.Company}}"
}

var defaultTemplates = map[string]Template{
	KeyReceived: {
		Subject: "Application Submitted - {{.JobTitle}}",
		Body: "Dear {{.ApplicantName}},\n\n" +
			"Thank you for submitting your application for the {{.JobTitle}} position at {{.Company}}.\n\n" +
			"Your application has been received and is currently pending review. " +
			"We will notify you of any updates regarding your application status.\n\n" +
			"Application Details:\n" +
			"Position: {{.JobTitle}}\n" +
			"Company: {{.Company}}\n" +
			"Date Applied: {{.AppliedAt.Format \"2006-01-02 15:04 MST\"}}\n\n" +
			"Best regards,\n" +
			"JobConnect Team",
	},
	KeyAcknowledged: {
		Subject: "Application Received - {{.JobTitle}}",
		Body: "Dear {{.ApplicantName}},\n\n" +
			"Thank you for your application for the position of {{.JobTitle}} at {{.Company}}.\n\n" +
			"We have received your application and our recruiting team will carefully review your qualifications. " +
			"We will be in touch soon regarding next steps.\n\n" +
			"Best regards,\n" +
			"{{.EmployerName}}\n" +
			"{{.Company}}",
	},
	string(lifecycle.StatusReviewing): {
		Subject: statusSubject,
		Body: statusBody("Your application for {{.JobTitle}} position at {{.Company}} is now under review by our team.\n\n" +
			"We are carefully evaluating your qualifications and experience. " +
			"We appreciate your patience during this process."),
	},
	string(lifecycle.StatusShortlisted): {
		Subject: statusSubject,
		Body: statusBody("Congratulations! You have been shortlisted for the {{.JobTitle}} position at {{.Company}}.\n\n" +
			"Your application has impressed our team, and we would like to move forward " +
			"with the next steps in the selection process. You will receive further " +
			"information about the interview process soon."),
	},
	string(lifecycle.StatusInterviewed): {
		Subject: statusSubject,
		Body: statusBody("Thank you for attending the interview for the {{.JobTitle}} position at {{.Company}}.\n\n" +
			"We appreciate the time you spent with us discussing the role. " +
			"Our team is evaluating all candidates, and we will get back to you " +
			"with our decision shortly."),
	},
	string(lifecycle.StatusOffered): {
		Subject: statusSubject,
		Body: statusBody("Congratulations! We are pleased to inform you that you have been selected " +
			"for the {{.JobTitle}} position at {{.Company}}.\n\n" +
			"We will be sending you a formal offer letter shortly with all the details. " +
			"We are excited about the possibility of you joining our team!"),
	},
	string(lifecycle.StatusAccepted): {
		Subject: statusSubject,
		Body: statusBody("Welcome to {{.Company}}!\n\n" +
			"We are thrilled that you have accepted our offer for the {{.JobTitle}} position. " +
			"Our HR team will be in touch shortly with next steps and onboarding information."),
	},
	string(lifecycle.StatusRejected): {
		Subject: statusSubject,
		Body: statusBody("Thank you for your interest in the {{.JobTitle}} position at {{.Company}}.\n\n" +
			"After careful consideration, we regret to inform you that we have decided " +
			"to move forward with other candidates whose qualifications more closely match " +
			"our current needs. We appreciate the time and effort you invested in applying, " +
			"and we encourage you to apply for future positions that match your qualifications."),
	},
	KeyStatusChanged: {
		Subject: statusSubject,
		Body: statusBody("Your application for the {{.JobTitle}} position at {{.Company}} has been updated.\n\n" +
			"Current status: {{.Status}}"),
	},
}

// DefaultTemplates returns a copy of the built-in templates.
func DefaultTemplates() map[string]Template {
	out := make(map[string]Template, len(defaultTemplates))
	for k, v := range defaultTemplates {
		out[k] = v
	}
	return out
}

// LoadOverrides reads a YAML map of template key to {subject, body}.
// Keys must name a built-in template; empty fields keep the default.
func LoadOverrides(path string) (map[string]Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates file: %w", err)
	}
	var parsed map[string]Template
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse templates file %s: %w", path, err)
	}
	out := make(map[string]Template, len(parsed))
	for k, t := range parsed {
		key := strings.TrimSpace(k)
		if st, err := lifecycle.ParseStatus(key); err == nil {
			key = string(st)
		}
		if _, ok := defaultTemplates[key]; !ok {
			return nil, fmt.Errorf("templates file %s: unknown template %q", path, k)
		}
		out[key] = t
	}
	return out, nil
}
