package seed_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"jobportal/application-service/internal/lifecycle"
	"jobportal/application-service/internal/store/memory"
	"jobportal/application-service/internal/store/seed"
)

const directory = `
users:
  - id: emp-1
    email: hr@acme.test
    role: employer
    name: Erin
  - id: seeker-1
    email: sam@mail.test
    role: JOBSEEKER
    name: Sam
jobs:
  - id: job-1
    employerId: emp-1
    title: Backend Engineer
    company: Acme
  - id: job-2
    employerId: emp-1
    title: Closed Role
    company: Acme
    active: false
    deadline: 2026-01-31T17:00:00Z
`

func TestLoad(t *testing.T) {
	st := memory.New()
	n, err := seed.Load(t.Context(), st, []byte(directory))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n.Users != 2 || n.Jobs != 2 {
		t.Fatalf("count = %+v", n)
	}

	u, err := st.FindUser(t.Context(), "emp-1")
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if u.Role != lifecycle.RoleEmployer || u.Email != "hr@acme.test" {
		t.Errorf("user = %+v", u)
	}

	open, _ := st.FindJob(t.Context(), "job-1")
	if !open.Active || open.Deadline != nil {
		t.Errorf("job-1 = %+v", open)
	}
	closed, _ := st.FindJob(t.Context(), "job-2")
	want := time.Date(2026, 1, 31, 17, 0, 0, 0, time.UTC)
	if closed.Active || closed.Deadline == nil || !closed.Deadline.Equal(want) {
		t.Errorf("job-2 = %+v", closed)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"bad role":     "users:\n  - id: x\n    role: guest\n",
		"missing id":   "users:\n  - email: a@b\n    role: ADMIN\n",
		"job no owner": "jobs:\n  - id: j\n",
		"not yaml":     "users: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := seed.Load(t.Context(), memory.New(), []byte(raw)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(directory), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := seed.LoadFile(t.Context(), memory.New(), path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, err := seed.LoadFile(t.Context(), memory.New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
