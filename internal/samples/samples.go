// Package samples persists classifier sample vectors as parquet files in
// the object store.
package samples

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/jackzampolin/lectern/internal/errs"
	"github.com/jackzampolin/lectern/internal/objstore"
)

// Record is one labeled page embedding in a classifier sample file.
type Record struct {
	Classifier  string    `parquet:"name=classifier, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Class       string    `parquet:"name=class, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DocumentRef string    `parquet:"name=document_ref, type=BYTE_ARRAY, convertedtype=UTF8"`
	Page        int32     `parquet:"name=page, type=INT32"`
	Vector      []float64 `parquet:"name=vector, type=LIST, valuetype=DOUBLE"`
}

// ClassCount summarizes one class in a sample file.
type ClassCount struct {
	Class string `json:"class"`
	Count int    `json:"count"`
}

// Store reads and writes classifier sample files. Keys follow
// <prefix>/<sample_id>/<sample_id>.parquet. Writes are whole-file
// replacements; concurrent writers race with last-writer-wins, so callers
// must serialize updates to one sample.
type Store struct {
	objects objstore.Store
	prefix  string
}

func NewStore(objects objstore.Store, prefix string) *Store {
	return &Store{objects: objects, prefix: strings.TrimSuffix(prefix, "/")}
}

// Key returns the storage path for a sample ID.
func (s *Store) Key(sampleID string) string {
	return fmt.Sprintf("%s/%s/%s.parquet", s.prefix, sampleID, sampleID)
}

// Exists reports whether the sample file is present.
func (s *Store) Exists(ctx context.Context, sampleID string) (bool, error) {
	return s.objects.Exists(ctx, s.Key(sampleID))
}

// Put writes all records as the new content of the sample file.
func (s *Store) Put(ctx context.Context, sampleID string, records []Record) error {
	if len(records) == 0 {
		return &errs.ValidationError{Parameter: "records", Message: "no records to write"}
	}

	fw := buffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(Record), 2)
	if err != nil {
		return fmt.Errorf("creating parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, rec := range records {
		if err := pw.Write(rec); err != nil {
			return fmt.Errorf("writing parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalizing parquet file: %w", err)
	}

	return s.objects.Write(ctx, s.Key(sampleID), fw.Bytes())
}

// Get reads all records from the sample file.
func (s *Store) Get(ctx context.Context, sampleID string) ([]Record, error) {
	data, err := s.objects.Read(ctx, s.Key(sampleID))
	if err != nil {
		return nil, err
	}

	fr := buffer.NewBufferFileFromBytes(data)
	pr, err := reader.NewParquetReader(fr, new(Record), 2)
	if err != nil {
		return nil, fmt.Errorf("opening parquet file for sample %s: %w", sampleID, err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	records := make([]Record, num)
	if err := pr.Read(&records); err != nil {
		return nil, fmt.Errorf("reading parquet records for sample %s: %w", sampleID, err)
	}
	return records, nil
}

// ClassVectors groups the sample vectors by class label.
func (s *Store) ClassVectors(ctx context.Context, sampleID string) (map[string][][]float64, error) {
	records, err := s.Get(ctx, sampleID)
	if err != nil {
		return nil, err
	}
	vectors := make(map[string][][]float64)
	for _, rec := range records {
		vectors[rec.Class] = append(vectors[rec.Class], rec.Vector)
	}
	return vectors, nil
}

// Summary returns per-class record counts, sorted by class label.
func (s *Store) Summary(ctx context.Context, sampleID string) ([]ClassCount, error) {
	records, err := s.Get(ctx, sampleID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.Class]++
	}
	summary := make([]ClassCount, 0, len(counts))
	for class, count := range counts {
		summary = append(summary, ClassCount{Class: class, Count: count})
	}
	sort.Slice(summary, func(i, j int) bool { return summary[i].Class < summary[j].Class })
	return summary, nil
}
