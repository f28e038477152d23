package montecarlo

import (
	"github.com/Artem7898/ai-decision-simulator/pkg/mathutil"
)

// Summary holds descriptive statistics over one sample of terminal values.
// Monetary fields are rounded to cents; ProbLoss is a percentage.
type Summary struct {
	Mean     float64  `json:"mean"`
	Std      float64  `json:"std"`
	P5       float64  `json:"p5"`
	P25      *float64 `json:"p25,omitempty"`
	P50      *float64 `json:"p50,omitempty"`
	P75      *float64 `json:"p75,omitempty"`
	P95      float64  `json:"p95"`
	ProbLoss *float64 `json:"prob_loss,omitempty"`
}

// Options controls which optional statistics Summarize reports.
type Options struct {
	// Extended adds the 25th, 50th and 75th percentiles.
	Extended bool
	// LossReference, when set, adds ProbLoss: the percentage of values
	// strictly below the reference.
	LossReference *float64
}

// Summarize reduces values to mean, population standard deviation and
// linearly interpolated percentiles.
func Summarize(values []float64, opts Options) Summary {
	sorted := mathutil.SortedCopy(values)
	mean := mathutil.Mean(values)

	summary := Summary{
		Mean: mathutil.Round(mean),
		Std:  mathutil.Round(mathutil.PopulationStdDev(values, mean)),
		P5:   mathutil.Round(mathutil.Percentile(sorted, 5)),
		P95:  mathutil.Round(mathutil.Percentile(sorted, 95)),
	}

	if opts.Extended {
		summary.P25 = ptr(mathutil.Round(mathutil.Percentile(sorted, 25)))
		summary.P50 = ptr(mathutil.Round(mathutil.Percentile(sorted, 50)))
		summary.P75 = ptr(mathutil.Round(mathutil.Percentile(sorted, 75)))
	}

	if opts.LossReference != nil {
		loss := mathutil.ToPercent(mathutil.FractionBelow(values, *opts.LossReference))
		summary.ProbLoss = ptr(mathutil.Round(loss))
	}

	return summary
}

func ptr(v float64) *float64 {
	return &v
}
