package grpcserver_test

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"jobportal/application-service/internal/blob"
	"jobportal/application-service/internal/grpcserver"
	"jobportal/application-service/internal/lifecycle"
	"jobportal/application-service/internal/notify"
	"jobportal/application-service/internal/store/memory"
)

type fixture struct {
	client *grpcserver.Client
	svc    *lifecycle.Service
	store  *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	mem.PutUser(lifecycle.Actor{ID: "alice", Email: "alice@x", Name: "Alice", Role: lifecycle.RoleJobSeeker})
	mem.PutUser(lifecycle.Actor{ID: "carol", Email: "carol@z", Name: "Carol", Role: lifecycle.RoleJobSeeker})
	mem.PutUser(lifecycle.Actor{ID: "bob", Email: "bob@y", Name: "Bob", Role: lifecycle.RoleEmployer})
	mem.PutJob(lifecycle.Job{ID: "7", EmployerID: "bob", Title: "Backend Engineer", Company: "Acme", Active: true})

	resumes, err := blob.NewLocalFS(filepath.Join(t.TempDir(), "resumes"))
	if err != nil {
		t.Fatal(err)
	}
	gw, err := notify.NewGateway(&notify.Recorder{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	svc := lifecycle.NewService(lifecycle.Deps{Store: mem, Directory: mem, Resumes: resumes, Notifier: gw})

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	grpcserver.Register(s, grpcserver.NewServer(svc, mem))
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &fixture{client: grpcserver.NewClient(conn), svc: svc, store: mem}
}

func (f *fixture) submit(t *testing.T) *lifecycle.ApplicationView {
	t.Helper()
	app, err := f.svc.Submit(context.Background(), lifecycle.SubmitInput{
		JobID:      "7",
		Resume:     strings.NewReader("%PDF"),
		ResumeName: "cv.pdf",
	}, lifecycle.Actor{ID: "alice", Email: "alice@x", Name: "Alice", Role: lifecycle.RoleJobSeeker})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return app
}

func as(t *testing.T, user string) context.Context {
	return metadata.AppendToOutgoingContext(t.Context(), "x-user-id", user)
}

func req(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestGetApplication(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	out, err := f.client.Call(as(t, "alice"), "GetApplication", req(t, map[string]any{"applicationId": app.ID}))
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if got := out.GetFields()["status"].GetStringValue(); got != "PENDING" {
		t.Errorf("status = %q", got)
	}
	if got := out.GetFields()["id"].GetStringValue(); got != app.ID {
		t.Errorf("id = %q, want %q", got, app.ID)
	}
}

func TestTransitionStatus(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	out, err := f.client.Call(as(t, "bob"), "TransitionStatus", req(t, map[string]any{
		"applicationId": app.ID, "status": "reviewing", "feedback": "under review",
	}))
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if out.GetFields()["status"].GetStringValue() != "REVIEWING" || out.GetFields()["feedback"].GetStringValue() != "under review" {
		t.Errorf("response = %v", out)
	}
}

func TestErrorCodes(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	cases := []struct {
		name, user, method string
		body               map[string]any
		want               codes.Code
	}{
		{"no identity", "", "GetApplication", map[string]any{"applicationId": app.ID}, codes.Unauthenticated},
		{"unknown user", "mallory", "GetApplication", map[string]any{"applicationId": app.ID}, codes.Unauthenticated},
		{"foreign seeker", "carol", "GetApplication", map[string]any{"applicationId": app.ID}, codes.NotFound},
		{"missing", "alice", "GetApplication", map[string]any{"applicationId": "nope"}, codes.NotFound},
		{"bad status", "bob", "TransitionStatus", map[string]any{"applicationId": app.ID, "status": "HIRED"}, codes.InvalidArgument},
		{"no feedback", "bob", "TransitionStatus", map[string]any{"applicationId": app.ID, "status": "REVIEWING"}, codes.InvalidArgument},
		{"illegal", "bob", "TransitionStatus", map[string]any{"applicationId": app.ID, "status": "OFFERED", "feedback": "x"}, codes.InvalidArgument},
		{"seeker transitions", "alice", "TransitionStatus", map[string]any{"applicationId": app.ID, "status": "REVIEWING", "feedback": "x"}, codes.NotFound},
		{"employer lists applicant view", "bob", "ListApplicantApplications", nil, codes.PermissionDenied},
	}
	for _, tc := range cases {
		ctx := context.Background()
		if tc.user != "" {
			ctx = as(t, tc.user)
		}
		var in *structpb.Struct
		if tc.body != nil {
			in = req(t, tc.body)
		}
		_, err := f.client.Call(ctx, tc.method, in)
		if got := status.Code(err); got != tc.want {
			t.Errorf("%s: code %s, want %s (%v)", tc.name, got, tc.want, err)
		}
	}
}

func TestAcknowledgeAndLists(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	out, err := f.client.Call(as(t, "bob"), "AcknowledgeApplication", req(t, map[string]any{"applicationId": app.ID}))
	if err != nil {
		t.Fatalf("AcknowledgeApplication: %v", err)
	}
	if out.GetFields()["status"].GetStringValue() != "REVIEWING" {
		t.Errorf("acknowledged = %v", out)
	}

	out, err = f.client.Call(as(t, "bob"), "ListJobApplications", req(t, map[string]any{"jobId": "7"}))
	if err != nil {
		t.Fatalf("ListJobApplications: %v", err)
	}
	entries := out.GetFields()["applications"].GetListValue().GetValues()
	if len(entries) != 1 {
		t.Fatalf("job list has %d entries", len(entries))
	}
	applicant := entries[0].GetStructValue().GetFields()["applicant"].GetStructValue().GetFields()
	if applicant["name"].GetStringValue() != "Alice" || applicant["email"].GetStringValue() != "alice@x" {
		t.Errorf("applicant = %v", applicant)
	}
	job := entries[0].GetStructValue().GetFields()["job"].GetStructValue().GetFields()
	if job["title"].GetStringValue() != "Backend Engineer" || job["company"].GetStringValue() != "Acme" {
		t.Errorf("job = %v", job)
	}

	out, err = f.client.Call(as(t, "alice"), "ListApplicantApplications", nil)
	if err != nil {
		t.Fatalf("ListApplicantApplications: %v", err)
	}
	if n := len(out.GetFields()["applications"].GetListValue().GetValues()); n != 1 {
		t.Errorf("applicant list has %d entries", n)
	}
}

func TestStatusConfig(t *testing.T) {
	f := newFixture(t)
	out, err := f.client.Call(context.Background(), "StatusConfig", nil)
	if err != nil {
		t.Fatalf("StatusConfig: %v", err)
	}
	for _, s := range lifecycle.AllStatuses {
		entry := out.GetFields()[string(s)].GetStructValue()
		if entry == nil {
			t.Errorf("missing %s", s)
			continue
		}
		allowed := entry.GetFields()["allowedTransitions"].GetListValue().GetValues()
		want := lifecycle.AllowedNext(s)
		if len(allowed) != len(want) {
			t.Errorf("%s: %d transitions, want %d", s, len(allowed), len(want))
			continue
		}
		for i, v := range allowed {
			if v.GetStringValue() != string(want[i]) {
				t.Errorf("%s: transition %d = %s, want %s", s, i, v.GetStringValue(), want[i])
			}
		}
	}
}
