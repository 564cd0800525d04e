package objstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackzampolin/lectern/internal/errs"
)

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		path    string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://docs/reports/q3.pdf", "docs", "reports/q3.pdf", false},
		{"s3://b/k", "b", "k", false},
		{"s3://bucketonly", "", "", true},
		{"s3:///nokey", "", "", true},
		{"/local/path.pdf", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			bucket, key, err := ParseS3Path(tt.path)
			if tt.wantErr {
				if !errs.IsValidation(err) {
					t.Errorf("got err %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseS3Path: %v", err)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("got %q/%q, want %q/%q", bucket, key, tt.bucket, tt.key)
			}
		})
	}
}

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := &Local{}
	path := filepath.Join(t.TempDir(), "nested", "dir", "doc.pdf")
	payload := []byte("%PDF-1.7 fake")

	ok, err := l.Exists(ctx, path)
	if err != nil || ok {
		t.Fatalf("Exists before write = %v, %v", ok, err)
	}
	if err := l.Write(ctx, path, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := l.Read(ctx, path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("read bytes differ from written bytes")
	}
	ok, err = l.Exists(ctx, path)
	if err != nil || !ok {
		t.Errorf("Exists after write = %v, %v", ok, err)
	}
}

func TestLocalReadMissing(t *testing.T) {
	l := &Local{}
	_, err := l.Read(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	var sae *errs.StoreAccessError
	if !errors.As(err, &sae) {
		t.Fatalf("got %v, want StoreAccessError", err)
	}
	if sae.Op != "read" {
		t.Errorf("Op = %q, want read", sae.Op)
	}
}

func TestRouterDispatch(t *testing.T) {
	ctx := context.Background()
	r := NewRouter(nil)

	path := filepath.Join(t.TempDir(), "doc.bin")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Read(ctx, path); err != nil {
		t.Errorf("local read through router: %v", err)
	}

	if _, err := r.Read(ctx, "s3://bucket/key"); !errs.IsConfiguration(err) {
		t.Errorf("s3 path without client: got %v, want ConfigurationError", err)
	}
	if _, err := r.Read(ctx, "https://example.com/doc.pdf"); !errs.IsValidation(err) {
		t.Errorf("http path: got %v, want ValidationError", err)
	}
}
