package projection

import (
	"math/rand"
	"strings"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/internal/montecarlo"
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"github.com/Artem7898/ai-decision-simulator/pkg/mathutil"
)

var referenceReturns = map[string]decision.MarketReturn{
	"stocks":      {ExpectedReturn: 0.10, Volatility: 0.20},
	"bonds":       {ExpectedReturn: 0.05, Volatility: 0.05},
	"real_estate": {ExpectedReturn: 0.07, Volatility: 0.10},
	"crypto":      {ExpectedReturn: 0.15, Volatility: 0.50},
}

// ReferenceReturns returns a copy of the built-in asset class assumptions.
func ReferenceReturns() map[string]decision.MarketReturn {
	out := make(map[string]decision.MarketReturn, len(referenceReturns))
	for k, v := range referenceReturns {
		out[k] = v
	}
	return out
}

// ReferenceReturn looks up an asset class by name, ignoring case and treating
// spaces and hyphens as underscores.
func ReferenceReturn(option string) (decision.MarketReturn, bool) {
	r, ok := referenceReturns[referenceKey(option)]
	return r, ok
}

func referenceKey(option string) string {
	key := strings.ToLower(strings.TrimSpace(option))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(key)
}

// resolveReturns picks the return assumption for option. Explicit factors win
// over external data, which wins over the reference table.
func resolveReturns(factors decision.InvestmentFactors, external decision.ExternalData, option string) decision.MarketReturn {
	r, ok := external.Returns(option)
	if !ok {
		r, ok = ReferenceReturn(option)
	}
	if !ok {
		r = decision.MarketReturn{
			ExpectedReturn: constants.DefaultExpectedReturn,
			Volatility:     constants.DefaultVolatility,
		}
	}
	if v, ok := decision.Lookup(factors.ExpectedReturns, option); ok {
		r.ExpectedReturn = v
	}
	if v, ok := decision.Lookup(factors.Volatilities, option); ok {
		r.Volatility = v
	}
	return r
}

type investmentStrategy struct{}

func (investmentStrategy) Kind() decision.Kind { return decision.KindInvestment }

func (investmentStrategy) Plan(f decision.Factors, external decision.ExternalData, horizon int) (Plan, error) {
	factors, ok := f.(decision.InvestmentFactors)
	if !ok {
		return Plan{}, factorsMismatch(decision.KindInvestment, f)
	}

	amount := factors.Amount
	plan := Plan{
		Options:    make([]OptionPlan, 0, len(factors.Options)),
		Stochastic: true,
		Extra:      Extra{InitialAmount: floatPtr(amount)},
	}

	for _, option := range factors.Options {
		r := resolveReturns(factors, external, option)
		plan.Options = append(plan.Options, OptionPlan{
			Name:   option,
			Points: investmentPoints(amount, r.ExpectedReturn, horizon),
			Sample: sampleTerminal(amount, func(v float64, rng *rand.Rand) float64 {
				return v * (1 + montecarlo.Normal(rng, r.ExpectedReturn, r.Volatility))
			}, identity),
			Summary: montecarlo.Options{Extended: true, LossReference: floatPtr(amount)},
		})
	}
	return plan, nil
}

func investmentPoints(amount, expectedReturn float64, horizon int) []YearlyPoint {
	points := make([]YearlyPoint, 0, horizon)
	for year := 1; year <= horizon; year++ {
		value := amount * mathutil.Compound(expectedReturn, year)
		points = append(points, InvestmentYear{
			Year:             year,
			Value:            mathutil.Round(value),
			TotalReturn:      mathutil.Round(value - amount),
			ReturnPercentage: mathutil.Round(mathutil.ToPercent(value/amount - 1)),
		})
	}
	return points
}
