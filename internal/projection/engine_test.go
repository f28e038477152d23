package projection

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/internal/montecarlo"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T, horizon, samples int) *Engine {
	t.Helper()
	engine, err := NewEngine(zap.NewNop(), RunConfig{TimeHorizonYears: horizon, SampleCount: samples})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func TestNewEngineRejectsInvalidRunConfig(t *testing.T) {
	tests := []struct {
		name   string
		config RunConfig
	}{
		{"zero horizon", RunConfig{TimeHorizonYears: 0, SampleCount: 100}},
		{"negative samples", RunConfig{TimeHorizonYears: 5, SampleCount: -1}},
		{"both zero", RunConfig{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(nil, tt.config)
			if !errors.Is(err, decision.ErrInvalidRunConfig) {
				t.Errorf("expected ErrInvalidRunConfig, got %v", err)
			}
		})
	}
}

func TestRunUnsupportedKind(t *testing.T) {
	engine := newTestEngine(t, 3, 10)
	_, err := engine.Run(decision.Kind("lottery"), nil, decision.ExternalData{}, montecarlo.NewSeededRand(1))
	if !errors.Is(err, decision.ErrUnsupportedDecisionKind) {
		t.Fatalf("expected ErrUnsupportedDecisionKind, got %v", err)
	}
}

func TestRunMalformedFactors(t *testing.T) {
	engine := newTestEngine(t, 3, 10)

	tests := []struct {
		name string
		kind decision.Kind
		raw  map[string]interface{}
	}{
		{"options not a sequence", decision.KindJob, map[string]interface{}{"options": "a, b"}},
		{"cities not a sequence", decision.KindRelocation, map[string]interface{}{"cities": 3}},
		{"user context not a mapping", decision.KindRelocation, map[string]interface{}{"user_context": []interface{}{1}}},
		{"budget not a number", decision.KindPurchase, map[string]interface{}{"budget": "lots"}},
		{"zero amount", decision.KindInvestment, map[string]interface{}{"amount": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.Run(tt.kind, tt.raw, decision.ExternalData{}, montecarlo.NewSeededRand(1))
			if !errors.Is(err, decision.ErrMalformedFactors) {
				t.Fatalf("expected ErrMalformedFactors, got %v", err)
			}
			if out.Projections != nil || out.MonteCarlo != nil {
				t.Error("expected no partial output on error")
			}
		})
	}
}

func TestProjectionShapeForEveryKind(t *testing.T) {
	const horizon = 7
	engine := newTestEngine(t, horizon, 50)

	tests := []struct {
		kind    decision.Kind
		raw     map[string]interface{}
		options []string
	}{
		{decision.KindRelocation, map[string]interface{}{"cities": []interface{}{"Berlin", "Lisbon", "Oslo"}}, []string{"Berlin", "Lisbon", "Oslo"}},
		{decision.KindPurchase, map[string]interface{}{"options": []interface{}{"car", "bike"}}, []string{"car", "bike"}},
		{decision.KindJob, map[string]interface{}{"options": []interface{}{"startup", "bank", "agency"}}, []string{"startup", "bank", "agency"}},
		{decision.KindInvestment, map[string]interface{}{"options": []interface{}{"stocks", "gold"}}, []string{"stocks", "gold"}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			out, err := engine.Run(tt.kind, tt.raw, decision.ExternalData{}, montecarlo.NewSeededRand(5))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !reflect.DeepEqual(out.Options, tt.options) {
				t.Errorf("Options = %v, expected %v", out.Options, tt.options)
			}
			if len(out.Projections) != len(tt.options) {
				t.Fatalf("expected %d projections, got %d", len(tt.options), len(out.Projections))
			}
			for _, option := range tt.options {
				points, ok := out.Projections[option]
				if !ok {
					t.Fatalf("missing projection for %q", option)
				}
				if len(points) != horizon {
					t.Fatalf("%q has %d points, expected %d", option, len(points), horizon)
				}
				for i, p := range points {
					if p.YearIndex() != i+1 {
						t.Fatalf("%q point %d has year %d", option, i, p.YearIndex())
					}
					for _, f := range p.Fields() {
						if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
							t.Fatalf("%q year %d field %s is not finite", option, i+1, f.Name)
						}
					}
				}

				if tt.kind == decision.KindPurchase {
					continue
				}
				summary, ok := out.MonteCarlo[option]
				if !ok || summary == nil {
					t.Fatalf("missing Monte Carlo summary for %q", option)
				}
				assertOrdered(t, option, summary)
			}

			if tt.kind == decision.KindPurchase && out.MonteCarlo != nil {
				t.Errorf("expected nil MonteCarlo for purchase, got %v", out.MonteCarlo)
			}
			if out.Metadata.DecisionType != tt.kind {
				t.Errorf("DecisionType = %s, expected %s", out.Metadata.DecisionType, tt.kind)
			}
			if out.Metadata.TimeHorizonYears != horizon || out.Metadata.SampleCount != 50 {
				t.Errorf("unexpected metadata %+v", out.Metadata)
			}
		})
	}
}

func assertOrdered(t *testing.T, option string, s *montecarlo.Summary) {
	t.Helper()
	if s.Std < 0 {
		t.Errorf("%q std %v is negative", option, s.Std)
	}
	if s.P5 > s.P95 {
		t.Errorf("%q p5 %v above p95 %v", option, s.P5, s.P95)
	}
	if s.P25 != nil && !(s.P5 <= *s.P25 && *s.P25 <= *s.P50 && *s.P50 <= *s.P75 && *s.P75 <= s.P95) {
		t.Errorf("%q percentiles out of order: %+v", option, s)
	}
}

func TestRunIsReproducibleWithSeed(t *testing.T) {
	engine := newTestEngine(t, 5, 300)
	raw := map[string]interface{}{"cities": []interface{}{"Berlin", "Paris"}}

	first, err := engine.Run(decision.KindRelocation, raw, decision.ExternalData{}, montecarlo.NewSeededRand(99))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := engine.Run(decision.KindRelocation, raw, decision.ExternalData{}, montecarlo.NewSeededRand(99))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !reflect.DeepEqual(first.Projections, second.Projections) {
		t.Error("deterministic projections differ between identical runs")
	}
	if !reflect.DeepEqual(first.MonteCarlo, second.MonteCarlo) {
		t.Error("Monte Carlo summaries differ with the same seed")
	}
}

func TestRunWithoutRandUsesFreshEntropy(t *testing.T) {
	engine := newTestEngine(t, 5, 200)
	raw := map[string]interface{}{"options": []interface{}{"stocks"}}

	first, err := engine.Run(decision.KindInvestment, raw, decision.ExternalData{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := engine.Run(decision.KindInvestment, raw, decision.ExternalData{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !reflect.DeepEqual(first.Projections, second.Projections) {
		t.Error("deterministic projections differ between runs")
	}
	if first.MonteCarlo["stocks"].Mean == second.MonteCarlo["stocks"].Mean {
		t.Error("expected unseeded runs to differ")
	}
}

func TestRunStampsMetadata(t *testing.T) {
	engine := newTestEngine(t, 4, 20)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	engine.now = func() time.Time { return fixed }

	out, err := engine.Run(decision.KindInvestment, map[string]interface{}{"options": []interface{}{"bonds"}, "amount": 2500}, decision.ExternalData{}, montecarlo.NewSeededRand(1))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !out.Metadata.RunTimestamp.Equal(fixed) || out.Metadata.RunTimestamp.Location() != time.UTC {
		t.Errorf("RunTimestamp = %v, expected %v in UTC", out.Metadata.RunTimestamp, fixed)
	}
	if out.Metadata.InitialAmount == nil || *out.Metadata.InitialAmount != 2500 {
		t.Errorf("InitialAmount = %v, expected 2500", out.Metadata.InitialAmount)
	}
	if out.Metadata.Budget != nil || out.Metadata.BaseSalary != nil {
		t.Error("expected only investment metadata")
	}
}

func TestRunDuplicateOptions(t *testing.T) {
	engine := newTestEngine(t, 2, 20)
	raw := map[string]interface{}{"options": []interface{}{"A", "B", "A"}}

	out, err := engine.Run(decision.KindPurchase, raw, decision.ExternalData{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !reflect.DeepEqual(out.Options, []string{"A", "B", "A"}) {
		t.Errorf("Options = %v", out.Options)
	}
	if len(out.Projections) != 2 {
		t.Fatalf("expected 2 distinct projections, got %d", len(out.Projections))
	}
	// The last occurrence (i=2) owns the key.
	first := out.Projections["A"][0].(PurchaseYear)
	if first.MaintenanceCost != 3000 {
		t.Errorf("expected the third option's cost spread, got maintenance %v", first.MaintenanceCost)
	}
}

func TestRunEmptyOptions(t *testing.T) {
	engine := newTestEngine(t, 3, 10)
	out, err := engine.Run(decision.KindJob, nil, decision.ExternalData{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.Projections) != 0 || len(out.MonteCarlo) != 0 {
		t.Errorf("expected empty output, got %+v", out)
	}
	if out.MonteCarlo == nil {
		t.Error("expected an empty, non-nil MonteCarlo map for job")
	}
}

func TestOutputDecodesTypedPoints(t *testing.T) {
	engine := newTestEngine(t, 3, 50)
	out, err := engine.Run(decision.KindJob, map[string]interface{}{"options": []interface{}{"Acme", "Globex"}}, decision.ExternalData{}, montecarlo.NewSeededRand(4))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded Output
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	first, ok := decoded.Projections["Globex"][0].(JobYear)
	if !ok {
		t.Fatalf("decoded point has type %T, expected JobYear", decoded.Projections["Globex"][0])
	}
	if first != out.Projections["Globex"][0].(JobYear) {
		t.Errorf("decoded point = %+v, expected %+v", first, out.Projections["Globex"][0])
	}

	bad := []byte(`{"projections":{"A":[{"year":1}]},"metadata":{"decision_type":"lottery"}}`)
	if err := json.Unmarshal(bad, &decoded); !errors.Is(err, decision.ErrUnsupportedDecisionKind) {
		t.Errorf("Unmarshal() error = %v, expected ErrUnsupportedDecisionKind", err)
	}
}
