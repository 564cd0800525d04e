package samples

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jackzampolin/lectern/internal/objstore"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(&objstore.Local{}, filepath.Join(t.TempDir(), "lectern_classification"))
}

func testRecords() []Record {
	return []Record{
		{Classifier: "rb_classifier_1700000000", Class: "invoice", DocumentRef: "a.pdf", Page: 1, Vector: []float64{0.1, 0.2, 0.3}},
		{Classifier: "rb_classifier_1700000000", Class: "invoice", DocumentRef: "b.pdf", Page: 2, Vector: []float64{0.2, 0.2, 0.2}},
		{Classifier: "rb_classifier_1700000000", Class: "receipt", DocumentRef: "c.pdf", Page: 1, Vector: []float64{0.9, 0.1, 0.0}},
	}
}

func TestKeyLayout(t *testing.T) {
	s := NewStore(&objstore.Local{}, "/data/lectern_classification/")
	got := s.Key("rb_classifier_1700000000")
	want := "/data/lectern_classification/rb_classifier_1700000000/rb_classifier_1700000000.parquet"
	if got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	const id = "rb_classifier_1700000000"

	ok, err := s.Exists(ctx, id)
	if err != nil || ok {
		t.Fatalf("Exists before put = %v, %v", ok, err)
	}

	if err := s.Put(ctx, id, testRecords()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err = s.Exists(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Exists after put = %v, %v", ok, err)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, testRecords()) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, testRecords())
	}
}

func TestPutReplacesContent(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	const id = "rb_classifier_1"

	if err := s.Put(ctx, id, testRecords()); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	extended := append(testRecords(), Record{Classifier: id, Class: "receipt", DocumentRef: "d.pdf", Page: 3, Vector: []float64{0, 1, 0}})
	if err := s.Put(ctx, id, extended); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("got %d records, want 4", len(got))
	}
}

func TestPutEmpty(t *testing.T) {
	s := testStore(t)
	if err := s.Put(context.Background(), "id", nil); err == nil {
		t.Error("empty Put should fail")
	}
}

func TestClassVectors(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	const id = "rb_classifier_2"
	if err := s.Put(ctx, id, testRecords()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	vectors, err := s.ClassVectors(ctx, id)
	if err != nil {
		t.Fatalf("ClassVectors: %v", err)
	}
	if len(vectors["invoice"]) != 2 || len(vectors["receipt"]) != 1 {
		t.Errorf("vectors = %+v", vectors)
	}
	if !reflect.DeepEqual(vectors["receipt"][0], []float64{0.9, 0.1, 0.0}) {
		t.Errorf("receipt vector = %v", vectors["receipt"][0])
	}
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	const id = "rb_classifier_3"
	if err := s.Put(ctx, id, testRecords()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	summary, err := s.Summary(ctx, id)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := []ClassCount{{Class: "invoice", Count: 2}, {Class: "receipt", Count: 1}}
	if !reflect.DeepEqual(summary, want) {
		t.Errorf("Summary = %+v, want %+v", summary, want)
	}
}

func TestGetMissing(t *testing.T) {
	s := testStore(t)
	if _, err := s.Get(context.Background(), "rb_classifier_absent"); err == nil {
		t.Error("Get on missing sample should fail")
	}
}
