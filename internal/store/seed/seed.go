// Package seed loads a YAML directory of users and jobs into a store.
// The directory is normally owned by the identity and job services; seeding
// exists for local runs against the sqlite and memory drivers.
package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"jobportal/application-service/internal/lifecycle"
)

// Target receives the seeded records.
type Target interface {
	UpsertUser(ctx context.Context, u lifecycle.Actor) error
	UpsertJob(ctx context.Context, job lifecycle.Job) error
}

type file struct {
	Users []struct {
		ID    string `yaml:"id"`
		Email string `yaml:"email"`
		Role  string `yaml:"role"`
		Name  string `yaml:"name"`
	} `yaml:"users"`
	Jobs []struct {
		ID         string     `yaml:"id"`
		EmployerID string     `yaml:"employerId"`
		Title      string     `yaml:"title"`
		Company    string     `yaml:"company"`
		Active     *bool      `yaml:"active"`
		Deadline   *time.Time `yaml:"deadline"`
	} `yaml:"jobs"`
}

// Count is what Load wrote.
type Count struct{ Users, Jobs int }

// LoadFile reads path and upserts its contents into dst.
func LoadFile(ctx context.Context, dst Target, path string) (Count, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Count{}, fmt.Errorf("read seed file: %w", err)
	}
	return Load(ctx, dst, raw)
}

// Load upserts users first so jobs can reference their employers.
// A job without an explicit active flag is active.
func Load(ctx context.Context, dst Target, raw []byte) (Count, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Count{}, fmt.Errorf("parse seed file: %w", err)
	}

	var n Count
	for _, u := range f.Users {
		if u.ID == "" {
			return n, fmt.Errorf("seed user without id")
		}
		role, err := lifecycle.ParseRole(u.Role)
		if err != nil {
			return n, fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		if err := dst.UpsertUser(ctx, lifecycle.Actor{ID: u.ID, Email: u.Email, Role: role, Name: u.Name}); err != nil {
			return n, fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		n.Users++
	}

	for _, j := range f.Jobs {
		if j.ID == "" || j.EmployerID == "" {
			return n, fmt.Errorf("seed job needs id and employerId")
		}
		job := lifecycle.Job{
			ID:         j.ID,
			EmployerID: j.EmployerID,
			Title:      j.Title,
			Company:    j.Company,
			Active:     j.Active == nil || *j.Active,
		}
		if j.Deadline != nil {
			d := j.Deadline.UTC()
			job.Deadline = &d
		}
		if err := dst.UpsertJob(ctx, job); err != nil {
			return n, fmt.Errorf("seed job %s: %w", j.ID, err)
		}
		n.Jobs++
	}
	return n, nil
}
