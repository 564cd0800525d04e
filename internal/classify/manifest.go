// Package classify implements vector-similarity page classification:
// building labeled sample sets from a manifest and scoring new pages
// against them.
package classify

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/jackzampolin/lectern/internal/errs"
)

// Per-class sample bounds in a manifest.
const (
	MinSamplesPerClass = 1
	MaxSamplesPerClass = 10
)

// labelPattern is the allowed shape of a class label.
var labelPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Entry is one manifest row: a labeled page of a source document.
type Entry struct {
	Class       string `json:"class"`
	DocumentRef string `json:"document_ref"`
	Page        int    `json:"page"`
}

// ParseManifest reads a CSV manifest with rows of the form
// class,document_ref,page and validates it.
func ParseManifest(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var entries []Entry
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &errs.ValidationError{Parameter: "manifest", Message: fmt.Sprintf("row %d: %v", line, err)}
		}
		page, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, &errs.ValidationError{Parameter: "manifest", Value: row[2], Message: fmt.Sprintf("row %d: page is not a number", line)}
		}
		entries = append(entries, Entry{Class: row[0], DocumentRef: row[1], Page: page})
	}

	if err := ValidateEntries(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ValidateEntries checks label shape, page numbers, and per-class counts.
func ValidateEntries(entries []Entry) error {
	if len(entries) == 0 {
		return &errs.ValidationError{Parameter: "manifest", Message: "manifest has no rows"}
	}
	counts := make(map[string]int)
	for i, e := range entries {
		if !labelPattern.MatchString(e.Class) {
			return &errs.ValidationError{
				Parameter: "class",
				Value:     e.Class,
				Message:   fmt.Sprintf("row %d: labels must match %s", i+1, labelPattern.String()),
			}
		}
		if e.DocumentRef == "" {
			return &errs.ValidationError{Parameter: "document_ref", Message: fmt.Sprintf("row %d: document reference is empty", i+1)}
		}
		if e.Page < 1 {
			return &errs.ValidationError{Parameter: "page", Value: e.Page, Message: fmt.Sprintf("row %d: pages are numbered from 1", i+1)}
		}
		counts[e.Class]++
	}
	for class, n := range counts {
		if n < MinSamplesPerClass || n > MaxSamplesPerClass {
			return &errs.ValidationError{
				Parameter: "class",
				Value:     class,
				Message:   fmt.Sprintf("has %d samples, want %d-%d", n, MinSamplesPerClass, MaxSamplesPerClass),
			}
		}
	}
	return nil
}

// Classes returns the distinct class labels in first-seen order.
func Classes(entries []Entry) []string {
	seen := make(map[string]bool)
	var classes []string
	for _, e := range entries {
		if !seen[e.Class] {
			seen[e.Class] = true
			classes = append(classes, e.Class)
		}
	}
	return classes
}
