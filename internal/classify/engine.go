package classify

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/jackzampolin/lectern/internal/errs"
	"github.com/jackzampolin/lectern/internal/fileconv"
	"github.com/jackzampolin/lectern/internal/objstore"
	"github.com/jackzampolin/lectern/internal/providers"
	"github.com/jackzampolin/lectern/internal/samples"
	"github.com/jackzampolin/lectern/internal/similarity"
)

// ClassUnknown is reported when no class clears the threshold.
const ClassUnknown = "UNKNOWN"

// Default scoring parameters.
const (
	DefaultTopN             = 1
	DefaultUnknownThreshold = 0.8
)

// Score is one ranked class for a page.
type Score struct {
	Class string  `json:"class"`
	Score float64 `json:"score"`
}

// PageResult is the classification of a single page.
type PageResult struct {
	Page    int     `json:"page"`
	Classes []Score `json:"classification"`
}

// Options tunes scoring.
type Options struct {
	// TopN is how many ranked classes to report per page.
	TopN int
	// UnknownThreshold gates the best class. For cosine the best score
	// must reach the threshold; for l2 the best distance must stay under
	// it. A page that fails the gate is reported as UNKNOWN.
	UnknownThreshold float64
	Metric           similarity.Metric
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.UnknownThreshold <= 0 {
		o.UnknownThreshold = DefaultUnknownThreshold
	}
	if o.Metric == "" {
		o.Metric = similarity.MetricCosine
	}
	return o
}

// Engine classifies document pages against a stored sample file.
type Engine struct {
	Embedder providers.EmbeddingClient
	Samples  *samples.Store
	Objects  objstore.Store
	Raster   fileconv.Rasterizer
	Logger   *slog.Logger
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Classify embeds the requested pages of the document and scores each one
// against the sample vectors. A nil pages slice means every page.
func (e *Engine) Classify(ctx context.Context, sampleID, docPath string, pages []int, opts Options) ([]PageResult, error) {
	opts = opts.withDefaults()
	if !opts.Metric.Valid() {
		return nil, &errs.ValidationError{Parameter: "metric", Value: string(opts.Metric), Message: "unknown similarity metric"}
	}

	classVectors, err := e.Samples.ClassVectors(ctx, sampleID)
	if err != nil {
		return nil, err
	}
	if len(classVectors) == 0 {
		return nil, &errs.ValidationError{Parameter: "sample_id", Value: sampleID, Message: "sample has no vectors"}
	}

	data, err := e.Objects.Read(ctx, docPath)
	if err != nil {
		return nil, err
	}
	doc, err := fileconv.NewDocument(docPath, data)
	if err != nil {
		return nil, err
	}
	if pages == nil {
		pages = make([]int, doc.TotalPages)
		for i := range pages {
			pages[i] = i + 1
		}
	}
	for _, p := range pages {
		if p < 1 || p > doc.TotalPages {
			return nil, &errs.ValidationError{Parameter: "pages", Value: p, Message: "page out of range"}
		}
	}
	// Results are reported in ascending page order.
	pages = append([]int(nil), pages...)
	sort.Ints(pages)

	images, err := e.Raster.ToImages(ctx, doc, pages)
	if err != nil {
		return nil, err
	}

	results := make([]PageResult, 0, len(images))
	for _, img := range images {
		vector, err := e.Embedder.EmbedImage(ctx, img.Data)
		if err != nil {
			return nil, err
		}
		scores, err := ScorePage(vector, classVectors, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, PageResult{Page: img.Page, Classes: scores})
	}

	e.logger().Debug("classified pages",
		"sample_id", sampleID,
		"document", docPath,
		"pages", len(results),
		"metric", string(opts.Metric))
	return results, nil
}

// ScorePage ranks the classes for one page embedding. Each class scores by
// its best-matching sample vector: highest cosine similarity, or smallest
// l2 distance. Ranked scores are rounded to two decimals; an UNKNOWN
// result keeps the raw failing score.
func ScorePage(vector []float64, classVectors map[string][][]float64, opts Options) ([]Score, error) {
	opts = opts.withDefaults()
	if len(classVectors) == 0 {
		return nil, &errs.ValidationError{Parameter: "samples", Message: "sample set has no class vectors to score against"}
	}

	scores := make([]Score, 0, len(classVectors))
	for class, vectors := range classVectors {
		best := math.Inf(1)
		if opts.Metric == similarity.MetricCosine {
			best = math.Inf(-1)
		}
		for _, sample := range vectors {
			var s float64
			var err error
			switch opts.Metric {
			case similarity.MetricCosine:
				s, err = similarity.Cosine(vector, sample)
				if err == nil && s > best {
					best = s
				}
			case similarity.MetricL2:
				s, err = similarity.L2(vector, sample)
				if err == nil && s < best {
					best = s
				}
			}
			if err != nil {
				return nil, err
			}
		}
		scores = append(scores, Score{Class: class, Score: best})
	}

	// Rank best-first: similarity descending, distance ascending. Ties
	// break on class label so output is deterministic.
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score == scores[j].Score {
			return scores[i].Class < scores[j].Class
		}
		if opts.Metric == similarity.MetricCosine {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Score < scores[j].Score
	})

	// Threshold gate. Note the direction flips between metrics: cosine
	// scores must reach the threshold, l2 distances must stay under it.
	best := scores[0]
	unknown := false
	if opts.Metric == similarity.MetricCosine {
		unknown = best.Score < opts.UnknownThreshold
	} else {
		unknown = best.Score > opts.UnknownThreshold
	}
	if unknown {
		return []Score{{Class: ClassUnknown, Score: best.Score}}, nil
	}

	if len(scores) > opts.TopN {
		scores = scores[:opts.TopN]
	}
	for i := range scores {
		scores[i].Score = math.Round(scores[i].Score*100) / 100
	}
	return scores, nil
}
