package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"jobportal/application-service/internal/lifecycle"
)

// ─── Lifecycle writes ────────────────────────────────────────────────────────

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	// Multipart framing and the text fields get 1 MiB on top of the resume.
	r.Body = http.MaxBytesReader(w, r.Body, MaxResumeBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "resume must not exceed 10 MiB", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "body must be multipart/form-data", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	jobID := strings.TrimSpace(r.FormValue("jobId"))
	if jobID == "" {
		jsonError(w, "jobId is required", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("resume")
	if err != nil {
		jsonError(w, "resume file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()
	if header.Size > MaxResumeBytes {
		jsonError(w, "resume must not exceed 10 MiB", http.StatusRequestEntityTooLarge)
		return
	}

	app, err := h.svc.Submit(r.Context(), lifecycle.SubmitInput{
		JobID:       jobID,
		CoverLetter: r.FormValue("coverLetter"),
		Resume:      file,
		ResumeName:  header.Filename,
		ResumeType:  header.Header.Get("Content-Type"),
	}, actor)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	jsonOK(w, app)
}

func (h *handler) acknowledge(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	app, err := h.svc.Acknowledge(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	jsonOK(w, app)
}

func (h *handler) transition(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var body struct {
		Status   string `json:"status"`
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Status) == "" {
		jsonError(w, "body must contain status", http.StatusBadRequest)
		return
	}
	target, err := lifecycle.ParseStatus(body.Status)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	app, err := h.svc.Transition(r.Context(), chi.URLParam(r, "id"), target, body.Feedback, actor)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	jsonOK(w, app)
}

// ─── Reads ───────────────────────────────────────────────────────────────────

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	app, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	jsonOK(w, app)
}

func (h *handler) statusHistory(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	summary, err := h.svc.StatusHistory(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	jsonOK(w, summary)
}

func (h *handler) statusConfig(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, lifecycle.StatusConfig())
}

func (h *handler) listMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	apps, err := h.svc.ListForApplicant(r.Context(), actor)
	h.writeList(w, r, apps, err)
}

func (h *handler) listJob(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	apps, err := h.svc.ListForJob(r.Context(), chi.URLParam(r, "jobId"), actor)
	h.writeList(w, r, apps, err)
}

func (h *handler) listEmployer(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	apps, err := h.svc.ListForEmployer(r.Context(), actor)
	h.writeList(w, r, apps, err)
}

func (h *handler) writeList(w http.ResponseWriter, r *http.Request, apps []lifecycle.ApplicationView, err error) {
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if apps == nil {
		apps = []lifecycle.ApplicationView{}
	}
	jsonOK(w, apps)
}

// resume streams the blob inline, or as an attachment when ?download is present.
func (h *handler) resume(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	res, err := h.svc.ResumeFor(r.Context(), chi.URLParam(r, "appId"), actor)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	defer res.Body.Close()

	disposition := "inline"
	if r.URL.Query().Has("download") {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": res.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, res.Body); err != nil {
		h.log.Warn("resume stream interrupted", "applicationId", chi.URLParam(r, "appId"), "err", err)
	}
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{"status": "ok", "service": "application-service", "version": h.version})
}
