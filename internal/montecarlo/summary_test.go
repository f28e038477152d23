package montecarlo

import (
	"math/rand"
	"testing"
)

func TestSummarizeKnownValues(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}

	s := Summarize(values, Options{Extended: true})

	if s.Mean != 3 {
		t.Errorf("Mean = %v, expected 3", s.Mean)
	}
	// Population std of 1..5 is sqrt(2).
	if s.Std != 1.41 {
		t.Errorf("Std = %v, expected 1.41", s.Std)
	}
	if s.P5 != 1.2 || s.P95 != 4.8 {
		t.Errorf("P5/P95 = %v/%v, expected 1.2/4.8", s.P5, s.P95)
	}
	if s.P25 == nil || *s.P25 != 2 || s.P50 == nil || *s.P50 != 3 || s.P75 == nil || *s.P75 != 4 {
		t.Errorf("unexpected extended percentiles %+v", s)
	}
	if s.ProbLoss != nil {
		t.Error("expected no ProbLoss without a reference")
	}
	if values[0] != 5 {
		t.Error("Summarize() reordered its input")
	}
}

func TestSummarizeBasicOmitsExtendedPercentiles(t *testing.T) {
	s := Summarize([]float64{1, 2, 3}, Options{})
	if s.P25 != nil || s.P50 != nil || s.P75 != nil {
		t.Errorf("expected extended percentiles omitted, got %+v", s)
	}
}

func TestSummarizeProbLoss(t *testing.T) {
	reference := 100.0
	s := Summarize([]float64{80, 99.99, 100, 150}, Options{LossReference: &reference})
	if s.ProbLoss == nil || *s.ProbLoss != 50 {
		t.Fatalf("ProbLoss = %v, expected 50", s.ProbLoss)
	}
}

func TestSummarizeOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		values := make([]float64, 1+rng.Intn(500))
		for i := range values {
			values[i] = rng.NormFloat64() * 1000
		}
		reference := 0.0
		s := Summarize(values, Options{Extended: true, LossReference: &reference})

		if !(s.P5 <= *s.P25 && *s.P25 <= *s.P50 && *s.P50 <= *s.P75 && *s.P75 <= s.P95) {
			t.Fatalf("percentiles out of order: %+v", s)
		}
		if s.Std < 0 {
			t.Fatalf("negative std %v", s.Std)
		}
		if *s.ProbLoss < 0 || *s.ProbLoss > 100 {
			t.Fatalf("prob loss %v outside [0, 100]", *s.ProbLoss)
		}
	}
}

func TestSummarizeSingleValue(t *testing.T) {
	s := Summarize([]float64{12.345}, Options{Extended: true})
	if s.Mean != 12.35 || s.Std != 0 || s.P5 != 12.35 || s.P95 != 12.35 {
		t.Errorf("unexpected single-value summary %+v", s)
	}
}
