// Package httpapi exposes the application lifecycle over HTTP.
//
// Every route except health and status-config expects an x-user-id header
// forwarded by the gateway. Routes are served at the root and under /api.
//
//	POST /applications                          → submit (multipart jobId, coverLetter, resume)
//	POST /applications/{id}/acknowledge         → employer acknowledgement
//	PUT  /applications/{id}/status              → status transition
//	GET  /applications/{id}                     → single application
//	GET  /applications/{id}/status-history      → current status and history
//	GET  /applications/status-config            → per-status configuration
//	GET  /applications/applicant                → caller's applications (alias /my-applications)
//	GET  /applications/job/{jobId}              → applications for an owned job
//	GET  /applications/employer                 → applications across owned jobs
//	GET  /files/resume/{appId}[?download]       → resume blob
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"jobportal/application-service/internal/lifecycle"
)

const (
	// MaxResumeBytes bounds an uploaded resume.
	MaxResumeBytes = 10 << 20
)

// Deps are the router's collaborators. Logger is optional.
type Deps struct {
	Service        *lifecycle.Service
	Directory      lifecycle.Directory
	Logger         *slog.Logger
	RequestTimeout time.Duration
	Version        string
}

type handler struct {
	svc     *lifecycle.Service
	log     *slog.Logger
	version string
}

// NewRouter builds the chi router.
func NewRouter(d Deps) http.Handler {
	h := &handler{svc: d.Service, log: d.Logger, version: d.Version}
	if h.log == nil {
		h.log = slog.Default()
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", h.health)

	routes := func(r chi.Router) {
		r.Get("/applications/status-config", h.statusConfig)

		r.Group(func(r chi.Router) {
			r.Use(authenticate(d.Directory, h.log))

			r.With(requireRole(lifecycle.RoleJobSeeker)).Post("/applications", h.submit)
			r.With(requireRole(lifecycle.RoleJobSeeker)).Get("/applications/applicant", h.listMine)
			r.With(requireRole(lifecycle.RoleJobSeeker)).Get("/applications/my-applications", h.listMine)
			r.With(requireRole(lifecycle.RoleEmployer)).Get("/applications/employer", h.listEmployer)
			r.With(requireRole(lifecycle.RoleEmployer)).Get("/applications/job/{jobId}", h.listJob)

			r.Get("/applications/{id}", h.get)
			r.With(requireRole(lifecycle.RoleEmployer, lifecycle.RoleJobSeeker)).Get("/applications/{id}/status-history", h.statusHistory)
			r.With(requireRole(lifecycle.RoleEmployer)).Post("/applications/{id}/acknowledge", h.acknowledge)
			r.With(requireRole(lifecycle.RoleEmployer)).Put("/applications/{id}/status", h.transition)

			r.With(requireRole(lifecycle.RoleEmployer, lifecycle.RoleAdmin)).Get("/files/resume/{appId}", h.resume)
		})
	}
	routes(r)
	r.Route("/api", routes)

	return r
}
