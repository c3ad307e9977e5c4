package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"jobportal/application-service/internal/lifecycle"
)

// S3Config addresses an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3 keeps blobs as objects in a single bucket.
type S3 struct {
	client *minio.Client
	bucket string
}

const partSize = 5 << 20

// NewS3 connects and creates the bucket when it does not exist yet.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: S3 endpoint is required", lifecycle.ErrBlob)
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: S3 client: %v", lifecycle.ErrBlob, err)
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		bucket = "portal-resumes"
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: check bucket %s: %v", lifecycle.ErrBlob, bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("%w: create bucket %s: %v", lifecycle.ErrBlob, bucket, err)
		}
	}
	return &S3{client: client, bucket: bucket}, nil
}

func (s *S3) Store(ctx context.Context, r io.Reader, originalName, contentType string) (string, error) {
	handle := newHandle(originalName, contentType)
	if contentType == "" {
		contentType = typeByExtension(handle)
	}
	_, err := s.client.PutObject(ctx, s.bucket, handle, r, -1, minio.PutObjectOptions{
		ContentType: contentType,
		PartSize:    partSize,
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %v", lifecycle.ErrBlob, handle, err)
	}
	return handle, nil
}

func (s *S3) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	if err := s.stat(ctx, handle, nil); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, handle, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", lifecycle.ErrBlob, handle, err)
	}
	return obj, nil
}

// DetectContentType prefers the stored object metadata over the extension.
func (s *S3) DetectContentType(ctx context.Context, handle string) (string, error) {
	var info minio.ObjectInfo
	if err := s.stat(ctx, handle, &info); err != nil {
		return "", err
	}
	if info.ContentType != "" && info.ContentType != "application/octet-stream" {
		return info.ContentType, nil
	}
	if ct := typeByExtension(handle); ct != "" {
		return ct, nil
	}
	return "application/octet-stream", nil
}

func (s *S3) List(ctx context.Context) ([]Object, error) {
	out := make([]Object, 0)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: list: %v", lifecycle.ErrBlob, obj.Err)
		}
		if checkHandle(obj.Key) != nil {
			continue
		}
		out = append(out, Object{Handle: obj.Key, Size: obj.Size, ModTime: obj.LastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

// Delete removes handle; S3 deletes are idempotent so existence is checked first.
func (s *S3) Delete(ctx context.Context, handle string) error {
	if err := s.stat(ctx, handle, nil); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, handle, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: delete %s: %v", lifecycle.ErrBlob, handle, err)
	}
	return nil
}

func (s *S3) stat(ctx context.Context, handle string, into *minio.ObjectInfo) error {
	if err := checkHandle(handle); err != nil {
		return err
	}
	info, err := s.client.StatObject(ctx, s.bucket, handle, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", handle, ErrBlobNotFound)
		}
		return fmt.Errorf("%w: stat %s: %v", lifecycle.ErrBlob, handle, err)
	}
	if into != nil {
		*into = info
	}
	return nil
}
