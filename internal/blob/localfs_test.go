package blob_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobportal/application-service/internal/blob"
	"jobportal/application-service/internal/lifecycle"
)

func newFS(t *testing.T) *blob.LocalFS {
	t.Helper()
	fs, err := blob.NewLocalFS(filepath.Join(t.TempDir(), "resumes"))
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	return fs
}

func TestLocalFSStoreAndOpen(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t)

	handle, err := fs.Store(ctx, strings.NewReader("%PDF-1.4 resume"), "Ana CV.PDF", "application/pdf")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !strings.HasSuffix(handle, ".pdf") || strings.Contains(handle, "Ana") {
		t.Errorf("handle = %q, want <uuid>.pdf", handle)
	}

	rc, err := fs.Open(ctx, handle)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "%PDF-1.4 resume" {
		t.Errorf("body = %q", body)
	}

	ct, err := fs.DetectContentType(ctx, handle)
	if err != nil || ct != "application/pdf" {
		t.Errorf("DetectContentType = %q, %v", ct, err)
	}
}

func TestLocalFSHandlesAreUnique(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		h, err := fs.Store(ctx, strings.NewReader("x"), "cv.pdf", "")
		if err != nil {
			t.Fatal(err)
		}
		if seen[h] {
			t.Fatalf("duplicate handle %q", h)
		}
		seen[h] = true
	}
}

func TestLocalFSExtensionFallback(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t)
	cases := []struct {
		name, contentType, wantSuffix string
	}{
		{"resume", "application/pdf", ".pdf"},
		{"resume.../../x", "", ""},
		{"resume.toolongextension", "", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		h, err := fs.Store(ctx, strings.NewReader("data"), tc.name, tc.contentType)
		if err != nil {
			t.Errorf("Store(%q): %v", tc.name, err)
			continue
		}
		if filepath.Ext(h) != tc.wantSuffix {
			t.Errorf("Store(%q, %q) handle %q, want suffix %q", tc.name, tc.contentType, h, tc.wantSuffix)
		}
	}
}

func TestLocalFSSniffsUnknownExtension(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t)
	h, err := fs.Store(ctx, strings.NewReader("plain text resume"), "resume", "")
	if err != nil {
		t.Fatal(err)
	}
	ct, err := fs.DetectContentType(ctx, h)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("DetectContentType = %q, want text/plain", ct)
	}
}

func TestLocalFSUnknownAndInvalidHandles(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t)
	for _, h := range []string{"missing.pdf", "../etc/passwd", "a/b.pdf", "", ".upload-1"} {
		if _, err := fs.Open(ctx, h); !errors.Is(err, blob.ErrBlobNotFound) || !errors.Is(err, lifecycle.ErrNotFound) {
			t.Errorf("Open(%q) err = %v, want ErrBlobNotFound", h, err)
		}
		if err := fs.Delete(ctx, h); !errors.Is(err, blob.ErrBlobNotFound) {
			t.Errorf("Delete(%q) err = %v, want ErrBlobNotFound", h, err)
		}
	}
}

func TestLocalFSListAndDelete(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t)
	a, _ := fs.Store(ctx, strings.NewReader("a"), "a.pdf", "")
	b, _ := fs.Store(ctx, strings.NewReader("bb"), "b.txt", "")
	// Leftover temp files and directories are not blobs.
	os.WriteFile(filepath.Join(fs.Root, ".upload-123"), []byte("partial"), 0o644)
	os.Mkdir(filepath.Join(fs.Root, "sub"), 0o755)

	objs, err := fs.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 2 {
		t.Fatalf("List = %+v, want 2 objects", objs)
	}
	sizes := map[string]int64{}
	for _, o := range objs {
		sizes[o.Handle] = o.Size
		if o.ModTime.IsZero() {
			t.Errorf("%s: zero ModTime", o.Handle)
		}
	}
	if sizes[a] != 1 || sizes[b] != 2 {
		t.Errorf("sizes = %v", sizes)
	}

	if err := fs.Delete(ctx, a); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := fs.Open(ctx, a); !errors.Is(err, blob.ErrBlobNotFound) {
		t.Errorf("Open after Delete err = %v", err)
	}
	objs, _ = fs.List(ctx)
	if len(objs) != 1 || objs[0].Handle != b {
		t.Errorf("List after Delete = %+v", objs)
	}
}
