package similarity

import (
	"math"
	"testing"

	"github.com/jackzampolin/lectern/internal/errs"
)

func TestCosineIdentity(t *testing.T) {
	v := []float64{0.3, -1.2, 4.5, 0.01}
	got, err := Cosine(v, v)
	if err != nil {
		t.Fatalf("Cosine returned error: %v", err)
	}
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("cosine(v, v) = %v, want 1.0", got)
	}
}

func TestCosineOrthogonal(t *testing.T) {
	got, err := Cosine([]float64{1, 0}, []float64{0, 1})
	if err != nil {
		t.Fatalf("Cosine returned error: %v", err)
	}
	if math.Abs(got) > 1e-9 {
		t.Errorf("cosine of orthogonal vectors = %v, want 0", got)
	}
}

func TestCosineOpposite(t *testing.T) {
	got, err := Cosine([]float64{2, 3}, []float64{-2, -3})
	if err != nil {
		t.Fatalf("Cosine returned error: %v", err)
	}
	if math.Abs(got+1.0) > 1e-9 {
		t.Errorf("cosine of opposite vectors = %v, want -1", got)
	}
}

func TestL2Identity(t *testing.T) {
	v := []float64{7, -2, 0.5}
	got, err := L2(v, v)
	if err != nil {
		t.Fatalf("L2 returned error: %v", err)
	}
	if got != 0 {
		t.Errorf("l2(v, v) = %v, want 0", got)
	}
}

func TestL2Known(t *testing.T) {
	got, err := L2([]float64{0, 0}, []float64{3, 4})
	if err != nil {
		t.Fatalf("L2 returned error: %v", err)
	}
	if math.Abs(got-5.0) > 1e-9 {
		t.Errorf("l2((0,0),(3,4)) = %v, want 5", got)
	}
}

func TestDimensionMismatch(t *testing.T) {
	if _, err := Cosine([]float64{1, 2}, []float64{1, 2, 3}); !errs.IsValidation(err) {
		t.Errorf("Cosine dimension mismatch: got %v, want ValidationError", err)
	}
	if _, err := L2([]float64{1}, []float64{}); !errs.IsValidation(err) {
		t.Errorf("L2 empty vector: got %v, want ValidationError", err)
	}
}

func TestCosineZeroVector(t *testing.T) {
	if _, err := Cosine([]float64{0, 0}, []float64{1, 1}); !errs.IsValidation(err) {
		t.Errorf("Cosine zero vector: got %v, want ValidationError", err)
	}
}

func TestMetricValid(t *testing.T) {
	if !MetricCosine.Valid() || !MetricL2.Valid() {
		t.Error("built-in metrics should be valid")
	}
	if Metric("manhattan").Valid() {
		t.Error("unknown metric should be invalid")
	}
}
