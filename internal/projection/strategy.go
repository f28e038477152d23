package projection

import (
	"fmt"
	"math/rand"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/internal/montecarlo"
)

// Strategy projects one decision kind.
type Strategy interface {
	Kind() decision.Kind
	Plan(factors decision.Factors, external decision.ExternalData, horizon int) (Plan, error)
}

// Plan is the deterministic projection of every option of one decision plus
// the sampler setup the engine runs afterwards.
type Plan struct {
	Options []OptionPlan
	// Stochastic is false for kinds without a Monte Carlo component.
	Stochastic bool
	Extra      Extra
}

// OptionPlan is the work for a single option.
type OptionPlan struct {
	Name    string
	Points  []YearlyPoint
	Sample  SampleFunc
	Summary montecarlo.Options
}

// Extra holds the per-kind metadata fields.
type Extra struct {
	InitialAmount *float64
	Budget        *float64
	BaseSalary    *float64
}

// SampleFunc returns the terminal values of samples independent trials.
type SampleFunc func(rng *rand.Rand, horizon, samples int) ([]float64, error)

// sampleTerminal adapts a typed sampler step to a SampleFunc.
func sampleTerminal[S any](initial S, step montecarlo.Step[S], value func(S) float64) SampleFunc {
	return func(rng *rand.Rand, horizon, samples int) ([]float64, error) {
		states, err := montecarlo.Sample(rng, initial, horizon, samples, step)
		if err != nil {
			return nil, err
		}
		values := make([]float64, len(states))
		for i, s := range states {
			values[i] = value(s)
		}
		return values, nil
	}
}

func identity(v float64) float64 { return v }

func defaultStrategies() map[decision.Kind]Strategy {
	all := []Strategy{
		relocationStrategy{},
		purchaseStrategy{},
		jobStrategy{},
		investmentStrategy{},
	}
	registry := make(map[decision.Kind]Strategy, len(all))
	for _, s := range all {
		registry[s.Kind()] = s
	}
	return registry
}

func factorsMismatch(want decision.Kind, got decision.Factors) error {
	return fmt.Errorf("%w: %s strategy cannot project %T", decision.ErrMalformedFactors, want, got)
}

func floatPtr(v float64) *float64 {
	return &v
}
