// Package objstore reads and writes documents and classifier samples,
// dispatching between the local filesystem and Amazon S3 by path scheme.
package objstore

import (
	"context"
	"strings"

	"github.com/jackzampolin/lectern/internal/errs"
)

// Store is the byte-level storage surface used for source documents and
// sample files.
type Store interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
}

// IsS3Path reports whether path uses the s3:// scheme.
func IsS3Path(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// ParseS3Path splits an s3://bucket/key path into bucket and key.
func ParseS3Path(path string) (bucket, key string, err error) {
	if !IsS3Path(path) {
		return "", "", &errs.ValidationError{Parameter: "path", Value: path, Message: "not an s3 path"}
	}
	rest := strings.TrimPrefix(path, "s3://")
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", &errs.ValidationError{Parameter: "path", Value: path, Message: "s3 path must be s3://bucket/key"}
	}
	return bucket, key, nil
}

// checkScheme rejects remote schemes a backend does not serve. Documents are
// only ever read locally or from S3.
func checkScheme(path string) error {
	for _, scheme := range []string{"http://", "https://", "ftp://"} {
		if strings.HasPrefix(path, scheme) {
			return &errs.ValidationError{Parameter: "path", Value: path, Message: "unsupported path scheme"}
		}
	}
	return nil
}

// Router dispatches between a local store and an S3 store by path scheme.
// The S3 store may be nil, in which case s3:// paths fail with a
// configuration error.
type Router struct {
	local *Local
	s3    Store
}

var _ Store = (*Router)(nil)

func NewRouter(s3 Store) *Router {
	return &Router{local: &Local{}, s3: s3}
}

func (r *Router) pick(path string) (Store, error) {
	if err := checkScheme(path); err != nil {
		return nil, err
	}
	if IsS3Path(path) {
		if r.s3 == nil {
			return nil, &errs.ConfigurationError{Key: "store", Message: "s3 path given but no s3 client configured"}
		}
		return r.s3, nil
	}
	return r.local, nil
}

func (r *Router) Read(ctx context.Context, path string) ([]byte, error) {
	s, err := r.pick(path)
	if err != nil {
		return nil, err
	}
	return s.Read(ctx, path)
}

func (r *Router) Write(ctx context.Context, path string, data []byte) error {
	s, err := r.pick(path)
	if err != nil {
		return err
	}
	return s.Write(ctx, path, data)
}

func (r *Router) Exists(ctx context.Context, path string) (bool, error) {
	s, err := r.pick(path)
	if err != nil {
		return false, err
	}
	return s.Exists(ctx, path)
}
