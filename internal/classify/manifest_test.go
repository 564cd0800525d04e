package classify

import (
	"reflect"
	"strings"
	"testing"

	"github.com/jackzampolin/lectern/internal/errs"
)

func TestParseManifest(t *testing.T) {
	manifest := strings.Join([]string{
		"invoice,/docs/a.pdf,1",
		"invoice,/docs/b.pdf,2",
		"receipt,s3://docs/c.pdf,1",
	}, "\n")

	entries, err := ParseManifest(strings.NewReader(manifest))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	want := []Entry{
		{Class: "invoice", DocumentRef: "/docs/a.pdf", Page: 1},
		{Class: "invoice", DocumentRef: "/docs/b.pdf", Page: 2},
		{Class: "receipt", DocumentRef: "s3://docs/c.pdf", Page: 1},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %+v, want %+v", entries, want)
	}
	if got := Classes(entries); !reflect.DeepEqual(got, []string{"invoice", "receipt"}) {
		t.Errorf("Classes = %v", got)
	}
}

func TestParseManifestRejections(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"wrong column count", "invoice,/docs/a.pdf\n"},
		{"bad page number", "invoice,/docs/a.pdf,one\n"},
		{"page zero", "invoice,/docs/a.pdf,0\n"},
		{"label with spaces", "tax form,/docs/a.pdf,1\n"},
		{"label with dash", "tax-form,/docs/a.pdf,1\n"},
		{"empty document ref", "invoice,,1\n"},
		{"empty manifest", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest(strings.NewReader(tt.manifest))
			if !errs.IsValidation(err) {
				t.Errorf("got %v, want ValidationError", err)
			}
		})
	}
}

func TestValidateEntriesClassBounds(t *testing.T) {
	over := make([]Entry, 0, MaxSamplesPerClass+1)
	for i := 0; i <= MaxSamplesPerClass; i++ {
		over = append(over, Entry{Class: "invoice", DocumentRef: "/d.pdf", Page: i + 1})
	}
	if err := ValidateEntries(over); !errs.IsValidation(err) {
		t.Errorf("11 samples in one class: got %v, want ValidationError", err)
	}

	exact := over[:MaxSamplesPerClass]
	if err := ValidateEntries(exact); err != nil {
		t.Errorf("10 samples should be allowed: %v", err)
	}

	one := []Entry{{Class: "invoice", DocumentRef: "/d.pdf", Page: 1}}
	if err := ValidateEntries(one); err != nil {
		t.Errorf("1 sample should be allowed: %v", err)
	}
}
