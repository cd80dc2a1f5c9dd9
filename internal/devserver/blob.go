package devserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// BlobStore persists uploaded images and returns the URL clients embed in
// their posts.
type BlobStore interface {
	Save(ctx context.Context, filename, contentType string, r io.Reader) (url string, err error)
}

// DiskBlobStore writes uploads under a local directory. The server serves
// the directory at /blobs/.
type DiskBlobStore struct {
	dir     string
	baseURL string
}

// NewDiskBlobStore creates the storage directory if needed. baseURL is the
// public prefix uploads are served from, e.g. "/blobs".
func NewDiskBlobStore(dir, baseURL string) (*DiskBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob dir: %w", err)
	}
	return &DiskBlobStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *DiskBlobStore) Save(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	name := uuid.NewString() + blobExt(filename, contentType)
	path := filepath.Join(d.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return d.baseURL + "/" + name, nil
}

// Dir returns the storage directory, for mounting a file server on it.
func (d *DiskBlobStore) Dir() string { return d.dir }

// S3BlobStore uploads blobs to an S3 bucket.
type S3BlobStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3BlobStore stores blobs under prefix in bucket. The client comes
// from the caller so credentials and endpoint stay its concern.
func NewS3BlobStore(client *s3.Client, bucket, prefix string) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3BlobStore) Save(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	key := uuid.NewString() + blobExt(filename, contentType)
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": filename,
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}

	presigner := s3.NewPresignClient(s.client)
	presigned, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("s3 presign: %w", err)
	}
	return presigned.URL, nil
}

// blobExt picks a file extension from the original name, falling back to
// the content type.
func blobExt(filename, contentType string) string {
	if ext := filepath.Ext(filename); ext != "" && len(ext) <= 8 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
