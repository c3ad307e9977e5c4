// Package blob stores resume files behind opaque handles of the form
// <uuid><ext>. Handles never carry path components.
package blob

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobportal/application-service/internal/lifecycle"
)

// ErrBlobNotFound reports an unknown handle. It matches lifecycle.ErrNotFound.
var ErrBlobNotFound = fmt.Errorf("resume blob %w", lifecycle.ErrNotFound)

// Object describes a stored blob.
type Object struct {
	Handle  string
	Size    int64
	ModTime time.Time
}

const maxExtLen = 10

func newHandle(originalName, contentType string) string {
	return uuid.NewString() + extension(originalName, contentType)
}

// extension picks the handle suffix from the upload's file name, falling back
// to the first extension registered for contentType.
func extension(originalName, contentType string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if validExt(ext) {
		return ext
	}
	if contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 && validExt(exts[0]) {
			return exts[0]
		}
	}
	return ""
}

func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > maxExtLen || ext[0] != '.' {
		return false
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func checkHandle(handle string) error {
	if handle == "" || handle != filepath.Base(handle) || strings.HasPrefix(handle, ".") ||
		strings.ContainsAny(handle, `/\`) {
		return fmt.Errorf("%w: invalid handle %q", ErrBlobNotFound, handle)
	}
	return nil
}

func typeByExtension(handle string) string {
	return mime.TypeByExtension(filepath.Ext(handle))
}
