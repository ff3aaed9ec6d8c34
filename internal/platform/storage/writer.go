package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const (
	defaultWriteTimeout = 30 * time.Second
	defaultContentType  = "application/json"
)

var (
	errNoClient      = errors.New("storage: client is required")
	errInvalidBucket = errors.New("storage: bucket name is required")
	errInvalidObject = errors.New("storage: object name is required")
	errEmptyPayload  = errors.New("storage: payload is empty")
)

// Writer uploads export artifacts to a Cloud Storage bucket.
type Writer struct {
	client       *storage.Client
	bucket       string
	prefix       string
	writeTimeout time.Duration
}

// WriterOption customises writer behaviour.
type WriterOption func(*Writer)

// WithObjectPrefix prepends a path prefix to every object name.
func WithObjectPrefix(prefix string) WriterOption {
	return func(w *Writer) {
		w.prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	}
}

// WithWriteTimeout bounds how long a single object upload may take.
func WithWriteTimeout(timeout time.Duration) WriterOption {
	return func(w *Writer) {
		if timeout > 0 {
			w.writeTimeout = timeout
		}
	}
}

// NewWriter constructs a bucket-scoped object writer.
func NewWriter(client *storage.Client, bucket string, opts ...WriterOption) (*Writer, error) {
	if client == nil {
		return nil, errNoClient
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}

	writer := &Writer{
		client:       client,
		bucket:       bucket,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(writer)
		}
	}
	return writer, nil
}

// WriteObject uploads data under the given object name, overwriting any
// previous object with the same name.
func (w *Writer) WriteObject(ctx context.Context, objectName, contentType string, data []byte) error {
	if w == nil || w.client == nil {
		return errNoClient
	}
	if ctx == nil {
		return errors.New("storage: context is required")
	}
	objectName = w.objectPath(objectName)
	if objectName == "" {
		return errInvalidObject
	}
	if len(data) == 0 {
		return errEmptyPayload
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = defaultContentType
	}

	writeCtx, cancel := context.WithTimeout(ctx, w.writeTimeout)
	defer cancel()

	obj := w.client.Bucket(w.bucket).Object(objectName)
	dst := obj.NewWriter(writeCtx)
	dst.ContentType = contentType

	if _, err := dst.Write(data); err != nil {
		dst.Close()
		return fmt.Errorf("storage: write %s: %w", objectName, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("storage: finalize %s: %w", objectName, err)
	}
	return nil
}

// Check probes the target bucket, used by readiness checks.
func (w *Writer) Check(ctx context.Context) error {
	if w == nil || w.client == nil {
		return errNoClient
	}
	if _, err := w.client.Bucket(w.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("storage: bucket %s: %w", w.bucket, err)
	}
	return nil
}

func (w *Writer) objectPath(objectName string) string {
	objectName = strings.Trim(strings.TrimSpace(objectName), "/")
	if objectName == "" {
		return ""
	}
	if w.prefix == "" {
		return objectName
	}
	return w.prefix + "/" + objectName
}
