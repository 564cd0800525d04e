package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/lectern/internal/errs"
	"github.com/jackzampolin/lectern/internal/fileconv"
	"github.com/jackzampolin/lectern/internal/objstore"
	"github.com/jackzampolin/lectern/internal/providers"
	"github.com/jackzampolin/lectern/internal/samples"
)

// Sampler builds classifier sample files from manifest entries by
// rasterizing the referenced pages and embedding them.
type Sampler struct {
	Embedder providers.EmbeddingClient
	Samples  *samples.Store
	Objects  objstore.Store
	Raster   fileconv.Rasterizer
	Logger   *slog.Logger

	// now is swappable for tests; sample IDs embed a unix timestamp.
	now func() time.Time
}

func (s *Sampler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Sampler) timestamp() int64 {
	if s.now != nil {
		return s.now().Unix()
	}
	return time.Now().Unix()
}

// NewSampleID mints a classifier sample identifier.
func NewSampleID(ts int64) string {
	return fmt.Sprintf("rb_classifier_%d", ts)
}

// Create embeds all manifest entries and writes a new sample file,
// returning its sample ID.
func (s *Sampler) Create(ctx context.Context, entries []Entry) (string, error) {
	if err := ValidateEntries(entries); err != nil {
		return "", err
	}
	sampleID := NewSampleID(s.timestamp())

	records, err := s.buildRecords(ctx, sampleID, entries)
	if err != nil {
		return "", err
	}
	if err := s.Samples.Put(ctx, sampleID, records); err != nil {
		return "", err
	}

	s.logger().Info("created classifier sample",
		"sample_id", sampleID,
		"classes", len(Classes(entries)),
		"records", len(records))
	return sampleID, nil
}

// Update appends new entries to an existing sample file. Entries are not
// de-duplicated: feeding the same manifest twice doubles its records.
// Callers must serialize updates to one sample; concurrent updates race
// with last-writer-wins.
func (s *Sampler) Update(ctx context.Context, sampleID string, entries []Entry) error {
	if err := ValidateEntries(entries); err != nil {
		return err
	}
	exists, err := s.Samples.Exists(ctx, sampleID)
	if err != nil {
		return err
	}
	if !exists {
		return &errs.ValidationError{Parameter: "sample_id", Value: sampleID, Message: "sample does not exist"}
	}

	existing, err := s.Samples.Get(ctx, sampleID)
	if err != nil {
		return err
	}
	added, err := s.buildRecords(ctx, sampleID, entries)
	if err != nil {
		return err
	}
	if err := s.Samples.Put(ctx, sampleID, append(existing, added...)); err != nil {
		return err
	}

	s.logger().Info("updated classifier sample",
		"sample_id", sampleID,
		"existing", len(existing),
		"added", len(added))
	return nil
}

// View returns per-class record counts for a sample.
func (s *Sampler) View(ctx context.Context, sampleID string) ([]samples.ClassCount, error) {
	exists, err := s.Samples.Exists(ctx, sampleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &errs.ValidationError{Parameter: "sample_id", Value: sampleID, Message: "sample does not exist"}
	}
	return s.Samples.Summary(ctx, sampleID)
}

func (s *Sampler) buildRecords(ctx context.Context, sampleID string, entries []Entry) ([]samples.Record, error) {
	records := make([]samples.Record, 0, len(entries))
	for _, e := range entries {
		data, err := s.Objects.Read(ctx, e.DocumentRef)
		if err != nil {
			return nil, err
		}
		doc, err := fileconv.NewDocument(e.DocumentRef, data)
		if err != nil {
			return nil, err
		}
		if e.Page > doc.TotalPages {
			return nil, &errs.ValidationError{
				Parameter: "page",
				Value:     e.Page,
				Message:   fmt.Sprintf("%s has only %d pages", e.DocumentRef, doc.TotalPages),
			}
		}
		images, err := s.Raster.ToImages(ctx, doc, []int{e.Page})
		if err != nil {
			return nil, err
		}
		vector, err := s.Embedder.EmbedImage(ctx, images[0].Data)
		if err != nil {
			return nil, err
		}
		records = append(records, samples.Record{
			Classifier:  sampleID,
			Class:       e.Class,
			DocumentRef: e.DocumentRef,
			Page:        int32(e.Page),
			Vector:      vector,
		})
	}
	return records, nil
}
