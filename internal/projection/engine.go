// Package projection computes deterministic yearly trajectories and Monte
// Carlo summaries for every option of a decision.
package projection

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/internal/montecarlo"
	"go.uber.org/zap"
)

// RunConfig holds the settings shared by every run of one Engine.
type RunConfig struct {
	TimeHorizonYears int `json:"time_horizon_years" yaml:"time_horizon_years"`
	SampleCount      int `json:"sample_count" yaml:"sample_count"`
}

// Validate reports whether the configuration can drive a run.
func (c RunConfig) Validate() error {
	if c.TimeHorizonYears < 1 {
		return fmt.Errorf("%w: time horizon must be at least 1 year, got %d", decision.ErrInvalidRunConfig, c.TimeHorizonYears)
	}
	if c.SampleCount < 1 {
		return fmt.Errorf("%w: sample count must be at least 1, got %d", decision.ErrInvalidRunConfig, c.SampleCount)
	}
	return nil
}

// Metadata describes how an Output was produced.
type Metadata struct {
	DecisionType     decision.Kind `json:"decision_type"`
	TimeHorizonYears int           `json:"time_horizon_years"`
	SampleCount      int           `json:"sample_count"`
	RunTimestamp     time.Time     `json:"run_timestamp"`
	InitialAmount    *float64      `json:"initial_amount,omitempty"`
	Budget           *float64      `json:"budget,omitempty"`
	BaseSalary       *float64      `json:"base_salary,omitempty"`
}

// Output is the result of one run. Options keeps the input order, including
// duplicates; a duplicated name maps to the projection of its last occurrence.
// MonteCarlo is nil for kinds without a stochastic component.
type Output struct {
	Options     []string                       `json:"options"`
	Projections map[string][]YearlyPoint       `json:"projections"`
	MonteCarlo  map[string]*montecarlo.Summary `json:"monte_carlo"`
	Metadata    Metadata                       `json:"metadata"`
}

// Engine runs projections under one immutable RunConfig. It is safe for
// concurrent use as long as callers do not share a *rand.Rand between calls.
type Engine struct {
	logger     *zap.Logger
	config     RunConfig
	strategies map[decision.Kind]Strategy
	now        func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(logger *zap.Logger, config RunConfig) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		logger:     logger,
		config:     config,
		strategies: defaultStrategies(),
		now:        time.Now,
	}, nil
}

// Config returns the engine's run configuration.
func (e *Engine) Config() RunConfig {
	return e.config
}

// Run parses raw factors for kind and projects them. A nil rng is replaced by
// a freshly seeded generator.
func (e *Engine) Run(kind decision.Kind, raw map[string]interface{}, external decision.ExternalData, rng *rand.Rand) (Output, error) {
	if !kind.Valid() {
		return Output{}, fmt.Errorf("%w: %q", decision.ErrUnsupportedDecisionKind, string(kind))
	}
	factors, err := decision.ParseFactors(kind, raw)
	if err != nil {
		return Output{}, err
	}
	return e.Project(factors, external, rng)
}

// Project runs the strategy registered for the kind of factors.
func (e *Engine) Project(factors decision.Factors, external decision.ExternalData, rng *rand.Rand) (Output, error) {
	if factors == nil {
		return Output{}, fmt.Errorf("%w: factors cannot be nil", decision.ErrMalformedFactors)
	}
	kind := factors.Kind()
	strategy, ok := e.strategies[kind]
	if !ok {
		return Output{}, fmt.Errorf("%w: %q", decision.ErrUnsupportedDecisionKind, string(kind))
	}

	timestamp := e.now().UTC()
	horizon := e.config.TimeHorizonYears
	samples := e.config.SampleCount

	plan, err := strategy.Plan(factors, external, horizon)
	if err != nil {
		return Output{}, err
	}

	if plan.Stochastic && rng == nil {
		if rng, err = montecarlo.NewRand(); err != nil {
			return Output{}, err
		}
	}

	out := Output{
		Options:     make([]string, 0, len(plan.Options)),
		Projections: make(map[string][]YearlyPoint, len(plan.Options)),
		Metadata: Metadata{
			DecisionType:     kind,
			TimeHorizonYears: horizon,
			SampleCount:      samples,
			RunTimestamp:     timestamp,
			InitialAmount:    plan.Extra.InitialAmount,
			Budget:           plan.Extra.Budget,
			BaseSalary:       plan.Extra.BaseSalary,
		},
	}
	if plan.Stochastic {
		out.MonteCarlo = make(map[string]*montecarlo.Summary, len(plan.Options))
	}

	for _, option := range plan.Options {
		out.Options = append(out.Options, option.Name)
		out.Projections[option.Name] = option.Points

		if !plan.Stochastic || option.Sample == nil {
			continue
		}
		values, err := option.Sample(rng, horizon, samples)
		if err != nil {
			return Output{}, fmt.Errorf("sample option %q: %w", option.Name, err)
		}
		summary := montecarlo.Summarize(values, option.Summary)
		out.MonteCarlo[option.Name] = &summary
	}

	e.logger.Debug("projected decision",
		zap.String("op", "projection.Project"),
		zap.String("kind", kind.String()),
		zap.Int("options", len(out.Options)),
		zap.Int("horizon", horizon),
		zap.Int("samples", samples),
	)

	return out, nil
}
