package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "configuration with key",
			err:  &ConfigurationError{Key: "max_retries", Value: -1, Message: "must be at least 1"},
			want: []string{"configuration error", "max_retries=-1", "must be at least 1"},
		},
		{
			name: "configuration without key",
			err:  &ConfigurationError{Message: "no providers enabled"},
			want: []string{"configuration error: no providers enabled"},
		},
		{
			name: "validation",
			err:  &ValidationError{Parameter: "pages", Value: []int{0, 2}, Message: "page 0 cannot be combined with specific pages"},
			want: []string{"validation error", "pages=", "page 0"},
		},
		{
			name: "model invocation",
			err:  &ModelInvocationError{Model: "anthropic.claude-3-sonnet", Attempts: 5, Message: "throttled", Err: errors.New("429")},
			want: []string{"model invocation failed", "attempts=5", "throttled", "429"},
		},
		{
			name: "store access",
			err:  &StoreAccessError{Bucket: "docs", Key: "a/b.pdf", Op: "read", Message: "not found"},
			want: []string{"store access failed", "op=read", "docs/a/b.pdf"},
		},
		{
			name: "file format",
			err:  &FileFormatError{Path: "report.docx", Detected: "application/msword"},
			want: []string{"unsupported file format", "report.docx"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("error %q missing %q", got, w)
				}
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := fmt.Errorf("invoking: %w", &ModelInvocationError{Model: "m", Attempts: 3, Err: inner})

	var mie *ModelInvocationError
	if !errors.As(err, &mie) {
		t.Fatal("errors.As failed to find ModelInvocationError through wrapping")
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is failed to reach the wrapped cause")
	}
}

func TestHelpers(t *testing.T) {
	if !IsValidation(fmt.Errorf("wrap: %w", &ValidationError{Message: "bad"})) {
		t.Error("IsValidation missed a wrapped ValidationError")
	}
	if IsValidation(errors.New("plain")) {
		t.Error("IsValidation matched a plain error")
	}
	if !IsConfiguration(&ConfigurationError{Message: "bad"}) {
		t.Error("IsConfiguration missed a ConfigurationError")
	}
}
