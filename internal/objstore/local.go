package objstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jackzampolin/lectern/internal/errs"
)

// Local serves paths from the local filesystem. Writes create parent
// directories as needed.
type Local struct{}

var _ Store = (*Local)(nil)

func (l *Local) Read(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		msg := "read failed"
		if errors.Is(err, fs.ErrNotExist) {
			msg = "file does not exist"
		}
		return nil, &errs.StoreAccessError{Key: path, Op: "read", Message: msg, Err: err}
	}
	return data, nil
}

func (l *Local) Write(_ context.Context, path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &errs.StoreAccessError{Key: path, Op: "write", Message: "creating parent directory", Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &errs.StoreAccessError{Key: path, Op: "write", Message: "write failed", Err: err}
	}
	return nil
}

func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &errs.StoreAccessError{Key: path, Op: "stat", Message: "stat failed", Err: err}
}
