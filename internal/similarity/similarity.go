// Package similarity provides the distance functions used to score page
// embeddings against classifier sample vectors.
package similarity

import (
	"math"

	"github.com/jackzampolin/lectern/internal/errs"
)

// Metric names a supported vector distance function.
type Metric string

const (
	// MetricCosine scores in [-1, 1]; higher means more similar.
	MetricCosine Metric = "cosine"
	// MetricL2 is euclidean distance; lower means more similar.
	MetricL2 Metric = "l2"
)

// Valid reports whether m names a supported metric.
func (m Metric) Valid() bool {
	return m == MetricCosine || m == MetricL2
}

// Cosine returns the cosine similarity of a and b.
func Cosine(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, &errs.ValidationError{Parameter: "vector", Message: "cosine similarity undefined for zero vector"}
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// L2 returns the euclidean distance between a and b.
func L2(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

func checkDims(a, b []float64) error {
	if len(a) == 0 || len(b) == 0 {
		return &errs.ValidationError{Parameter: "vector", Message: "empty embedding vector"}
	}
	if len(a) != len(b) {
		return &errs.ValidationError{
			Parameter: "vector",
			Value:     [2]int{len(a), len(b)},
			Message:   "embedding dimensions do not match",
		}
	}
	return nil
}
