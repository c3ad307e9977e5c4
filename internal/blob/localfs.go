package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"jobportal/application-service/internal/lifecycle"
)

// LocalFS keeps blobs as files directly under Root.
type LocalFS struct {
	Root string
}

// NewLocalFS creates root if needed.
func NewLocalFS(root string) (*LocalFS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create resume dir: %v", lifecycle.ErrBlob, err)
	}
	return &LocalFS{Root: root}, nil
}

// Store writes r to a fresh handle. The file appears atomically.
func (l *LocalFS) Store(ctx context.Context, r io.Reader, originalName, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	handle := newHandle(originalName, contentType)

	tmp, err := os.CreateTemp(l.Root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp: %v", lifecycle.ErrBlob, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: write %s: %v", lifecycle.ErrBlob, handle, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %v", lifecycle.ErrBlob, handle, err)
	}
	if err := os.Rename(tmp.Name(), l.path(handle)); err != nil {
		return "", fmt.Errorf("%w: commit %s: %v", lifecycle.ErrBlob, handle, err)
	}
	return handle, nil
}

func (l *LocalFS) Open(_ context.Context, handle string) (io.ReadCloser, error) {
	if err := checkHandle(handle); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path(handle))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", handle, ErrBlobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", lifecycle.ErrBlob, handle, err)
	}
	return f, nil
}

// DetectContentType guesses from the extension, then sniffs the first bytes.
func (l *LocalFS) DetectContentType(ctx context.Context, handle string) (string, error) {
	if err := checkHandle(handle); err != nil {
		return "", err
	}
	if ct := typeByExtension(handle); ct != "" {
		return ct, nil
	}
	rc, err := l.Open(ctx, handle)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: read %s: %v", lifecycle.ErrBlob, handle, err)
	}
	return http.DetectContentType(head[:n]), nil
}

// List returns stored blobs ordered by handle. In-flight uploads are skipped.
func (l *LocalFS) List(ctx context.Context) ([]Object, error) {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", lifecycle.ErrBlob, err)
	}
	out := make([]Object, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || checkHandle(e.Name()) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Object{Handle: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

func (l *LocalFS) Delete(_ context.Context, handle string) error {
	if err := checkHandle(handle); err != nil {
		return err
	}
	err := os.Remove(l.path(handle))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", handle, ErrBlobNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", lifecycle.ErrBlob, handle, err)
	}
	return nil
}

func (l *LocalFS) path(handle string) string {
	return filepath.Join(l.Root, handle)
}
