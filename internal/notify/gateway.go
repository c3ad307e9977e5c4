// Package notify renders applicant notifications and hands them to a mail
// Sender.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"jobportal/application-service/internal/lifecycle"
)

type compiled struct {
	subject *template.Template
	body    *template.Template
}

// Gateway implements lifecycle.Notifier.
type Gateway struct {
	sender    Sender
	templates map[string]compiled
}

// NewGateway compiles the built-in templates with overrides applied on top.
// An override with an empty subject or body keeps that half of the default.
func NewGateway(sender Sender, overrides map[string]Template) (*Gateway, error) {
	merged := DefaultTemplates()
	for k, o := range overrides {
		t, ok := merged[k]
		if !ok {
			return nil, fmt.Errorf("unknown template %q", k)
		}
		if o.Subject != "" {
			t.Subject = o.Subject
		}
		if o.Body != "" {
			t.Body = o.Body
		}
		merged[k] = t
	}

	g := &Gateway{sender: sender, templates: make(map[string]compiled, len(merged))}
	for k, t := range merged {
		subj, err := template.New(k + ".subject").Option("missingkey=error").Parse(t.Subject)
		if err != nil {
			return nil, fmt.Errorf("template %s subject: %w", k, err)
		}
		body, err := template.New(k + ".body").Option("missingkey=error").Parse(t.Body)
		if err != nil {
			return nil, fmt.Errorf("template %s body: %w", k, err)
		}
		g.templates[k] = compiled{subject: subj, body: body}
	}
	return g, nil
}

// Render returns the subject and body for n without sending.
func (g *Gateway) Render(n lifecycle.Notification) (subject, body string, err error) {
	key := keyFor(n)
	t := g.templates[key]
	var sb, bb bytes.Buffer
	if err := t.subject.Execute(&sb, n); err != nil {
		return "", "", fmt.Errorf("%w: render %s subject: %v", ErrPermanent, key, err)
	}
	if err := t.body.Execute(&bb, n); err != nil {
		return "", "", fmt.Errorf("%w: render %s body: %v", ErrPermanent, key, err)
	}
	return sb.String(), bb.String(), nil
}

func (g *Gateway) Notify(ctx context.Context, n lifecycle.Notification) error {
	subject, body, err := g.Render(n)
	if err != nil {
		return err
	}
	return g.sender.Send(ctx, n.To, subject, body)
}
