// Package runner executes decision simulations end to end: it records the
// run, fills in factors and external data, drives the projection engine under
// a wall-clock budget and records the outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/internal/marketdata"
	"github.com/Artem7898/ai-decision-simulator/internal/montecarlo"
	"github.com/Artem7898/ai-decision-simulator/internal/observability"
	"github.com/Artem7898/ai-decision-simulator/internal/projection"
	"github.com/Artem7898/ai-decision-simulator/internal/store"
	"github.com/Artem7898/ai-decision-simulator/internal/structuring"
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrRunTimeout is returned when a run exceeds the service's wall-clock budget.
var ErrRunTimeout = errors.New("simulation timed out")

// Request describes one simulation. Factors win over anything read from
// Query; ExternalData entries win over provider data. Zero run settings take
// the service defaults and a nil Seed draws a fresh one.
type Request struct {
	Name             string                 `json:"name,omitempty" yaml:"name,omitempty"`
	DecisionType     decision.Kind          `json:"decision_type" yaml:"decision_type"`
	Query            string                 `json:"query,omitempty" yaml:"query,omitempty"`
	Factors          map[string]interface{} `json:"factors,omitempty" yaml:"factors,omitempty"`
	ExternalData     map[string]interface{} `json:"external_data,omitempty" yaml:"external_data,omitempty"`
	TimeHorizonYears int                    `json:"time_horizon_years,omitempty" yaml:"time_horizon_years,omitempty"`
	SampleCount      int                    `json:"sample_count,omitempty" yaml:"sample_count,omitempty"`
	Seed             *int64                 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Result is the outcome of one request. Output is nil when the run failed.
type Result struct {
	RunID        string             `json:"run_id,omitempty"`
	Name         string             `json:"name,omitempty"`
	DecisionType decision.Kind      `json:"decision_type"`
	Status       store.Status       `json:"status"`
	Seed         int64              `json:"seed"`
	Output       *projection.Output `json:"output,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// RunStore records the lifecycle of a run. *store.Store implements it.
type RunStore interface {
	CreateRun(ctx context.Context, in store.NewRun) (store.Run, error)
	MarkRunning(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, result interface{}) error
	Fail(ctx context.Context, id string, message string) error
}

// Options configures a Service. Every field is optional.
type Options struct {
	Store       RunStore
	Structurer  structuring.Structurer
	Provider    marketdata.Provider
	Metrics     *observability.Metrics
	Defaults    projection.RunConfig
	Timeout     time.Duration
	Parallelism int
}

// Service runs simulations. It is safe for concurrent use.
type Service struct {
	logger      *zap.Logger
	store       RunStore
	structurer  structuring.Structurer
	provider    marketdata.Provider
	metrics     *observability.Metrics
	defaults    projection.RunConfig
	timeout     time.Duration
	parallelism int
	now         func() time.Time
	projectFn   func(*projection.Engine, decision.Factors, decision.ExternalData, *rand.Rand) (projection.Output, error)
}

// NewService creates a Service.
func NewService(logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Structurer == nil {
		opts.Structurer = structuring.NewKeywordStructurer(logger)
	}
	if opts.Defaults.TimeHorizonYears == 0 {
		opts.Defaults.TimeHorizonYears = constants.DefaultTimeHorizonYears
	}
	if opts.Defaults.SampleCount == 0 {
		opts.Defaults.SampleCount = constants.DefaultSampleCount
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = runtime.NumCPU()
	}
	return &Service{
		logger:      logger,
		store:       opts.Store,
		structurer:  opts.Structurer,
		provider:    opts.Provider,
		metrics:     opts.Metrics,
		defaults:    opts.Defaults,
		timeout:     opts.Timeout,
		parallelism: opts.Parallelism,
		now:         time.Now,
		projectFn:   (*projection.Engine).Project,
	}
}

// Execute runs one request. An unsupported decision type is rejected before
// anything is recorded; every later failure is recorded on the run and
// reported both in the Result and as the returned error.
func (s *Service) Execute(ctx context.Context, req Request) (Result, error) {
	kind, err := decision.ParseKind(string(req.DecisionType))
	if err != nil {
		return Result{Name: req.Name, DecisionType: req.DecisionType}, err
	}
	req.DecisionType = kind

	seed, err := s.seed(req.Seed)
	if err != nil {
		return Result{Name: req.Name, DecisionType: kind}, err
	}

	res := Result{Name: req.Name, DecisionType: kind, Status: store.StatusPending, Seed: seed}
	if s.store != nil {
		run, err := s.store.CreateRun(ctx, store.NewRun{
			Name:         req.Name,
			DecisionType: kind,
			Query:        req.Query,
			Input:        req,
			Seed:         seed,
		})
		if err != nil {
			return res, fmt.Errorf("record run: %w", err)
		}
		res.RunID = run.ID
	}

	finished := s.metrics.RunStarted()
	defer finished()
	start := s.now()

	out, err := s.execute(ctx, req, &res)
	// The outcome is recorded even when the caller has gone away.
	persistCtx := context.WithoutCancel(ctx)
	if err == nil && s.store != nil {
		if cerr := s.store.Complete(persistCtx, res.RunID, out); cerr != nil {
			err = fmt.Errorf("record completed run: %w", cerr)
		}
	}
	seconds := s.now().Sub(start).Seconds()

	if err != nil {
		res.Status = store.StatusFailed
		res.Error = err.Error()
		if s.store != nil {
			if ferr := s.store.Fail(persistCtx, res.RunID, err.Error()); ferr != nil {
				s.logger.Error("failed to record failed run",
					zap.String("op", "runner.Execute"),
					zap.String("run_id", res.RunID),
					zap.Error(ferr),
				)
			}
		}
		s.metrics.RecordRun(kind.String(), string(store.StatusFailed), seconds, 0)
		s.logger.Warn("simulation failed",
			zap.String("op", "runner.Execute"),
			zap.String("run_id", res.RunID),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		return res, err
	}

	res.Status = store.StatusCompleted
	res.Output = &out

	s.metrics.RecordRun(kind.String(), string(store.StatusCompleted), seconds, len(out.MonteCarlo)*out.Metadata.SampleCount)
	s.metrics.RecordSuccess(float64(s.now().Unix()))
	s.logger.Info("simulation completed",
		zap.String("op", "runner.Execute"),
		zap.String("run_id", res.RunID),
		zap.String("kind", kind.String()),
		zap.Int("options", len(out.Options)),
		zap.Int64("seed", seed),
		zap.Float64("seconds", seconds),
	)
	return res, nil
}

func (s *Service) execute(ctx context.Context, req Request, res *Result) (projection.Output, error) {
	raw := req.Factors
	if len(raw) == 0 && req.Query != "" {
		structured, err := s.structurer.Structure(ctx, req.Query, req.DecisionType)
		if err != nil {
			return projection.Output{}, fmt.Errorf("structure query: %w", err)
		}
		raw = structured
	}

	factors, err := decision.ParseFactors(req.DecisionType, raw)
	if err != nil {
		return projection.Output{}, err
	}

	external, err := marketdata.Resolve(ctx, s.provider, factors)
	if err != nil {
		return projection.Output{}, fmt.Errorf("resolve external data: %w", err)
	}
	external = external.Merge(decision.ParseExternalData(req.ExternalData))

	config := s.defaults
	if req.TimeHorizonYears != 0 {
		config.TimeHorizonYears = req.TimeHorizonYears
	}
	if req.SampleCount != 0 {
		config.SampleCount = req.SampleCount
	}
	engine, err := projection.NewEngine(s.logger, config)
	if err != nil {
		return projection.Output{}, err
	}

	if s.store != nil {
		if err := s.store.MarkRunning(ctx, res.RunID); err != nil {
			return projection.Output{}, fmt.Errorf("mark run running: %w", err)
		}
	}
	res.Status = store.StatusRunning

	return s.project(ctx, engine, factors, external, res.Seed)
}

type outcome struct {
	out projection.Output
	err error
}

// project runs the engine in its own goroutine so a timeout is reported
// without waiting for the sampling loop to finish.
func (s *Service) project(ctx context.Context, engine *projection.Engine, factors decision.Factors, external decision.ExternalData, seed int64) (projection.Output, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		out, err := s.projectFn(engine, factors, external, montecarlo.NewSeededRand(seed))
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return projection.Output{}, fmt.Errorf("%w after %s", ErrRunTimeout, s.timeout)
		}
		return projection.Output{}, ctx.Err()
	}
}

func (s *Service) seed(requested *int64) (int64, error) {
	if requested != nil {
		return *requested, nil
	}
	return montecarlo.NewSeed()
}

// ExecuteBatch runs independent requests in parallel. Results keep the order
// of reqs; a failed request does not stop the others. The returned error
// joins every per-request error.
func (s *Service) ExecuteBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))
	errs := make([]error, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := range reqs {
		g.Go(func() error {
			res, err := s.Execute(gctx, reqs[i])
			if err != nil {
				if res.Error == "" {
					res.Status = store.StatusFailed
					res.Error = err.Error()
				}
				errs[i] = fmt.Errorf("request %d (%s): %w", i, reqs[i].Name, err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}
