// Package sweeper runs the cron job that reclaims resume blobs no application
// references. Submit stores the blob before the record, so a failed insert
// leaves an orphan; blobs younger than the grace period are never touched.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"jobportal/application-service/internal/blob"
)

// Blobs lists and deletes stored resumes.
type Blobs interface {
	List(ctx context.Context) ([]blob.Object, error)
	Delete(ctx context.Context, handle string) error
}

// References reports whether an application still points at a handle.
type References interface {
	ResumeHandleInUse(ctx context.Context, handle string) (bool, error)
}

// Sweeper wraps robfig/cron and manages the sweep loop.
type Sweeper struct {
	cron  *cron.Cron
	blobs Blobs
	refs  References
	grace time.Duration
	spec  string
	now   func() time.Time
}

// New creates a Sweeper that fires every intervalHours hours.
func New(blobs Blobs, refs References, intervalHours int, grace time.Duration) *Sweeper {
	return &Sweeper{
		cron:  cron.New(cron.WithLogger(cron.DefaultLogger)),
		blobs: blobs,
		refs:  refs,
		grace: grace,
		spec:  fmt.Sprintf("@every %dh", intervalHours),
		now:   time.Now,
	}
}

// Start registers the job and starts the scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			log.Printf("[sweeper] Sweep error: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	log.Printf("[sweeper] Cron started, spec: %s, grace: %s", s.spec, s.grace)
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[sweeper] Cron stopped")
}

// Sweep deletes unreferenced blobs older than the grace period and returns
// how many it removed. Per-blob failures are logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	objects, err := s.blobs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list blobs: %w", err)
	}
	cutoff := s.now().Add(-s.grace)
	deleted := 0
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if obj.ModTime.After(cutoff) {
			continue
		}
		inUse, err := s.refs.ResumeHandleInUse(ctx, obj.Handle)
		if err != nil {
			log.Printf("[sweeper] Reference check failed for %s: %v", obj.Handle, err)
			continue
		}
		if inUse {
			continue
		}
		if err := s.blobs.Delete(ctx, obj.Handle); err != nil && !errors.Is(err, blob.ErrBlobNotFound) {
			log.Printf("[sweeper] Delete %s failed: %v", obj.Handle, err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		log.Printf("[sweeper] Removed %d orphaned resume(s)", deleted)
	}
	return deleted, nil
}
