package projection

import (
	"math/rand"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/internal/montecarlo"
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"github.com/Artem7898/ai-decision-simulator/pkg/mathutil"
)

type relocationStrategy struct{}

func (relocationStrategy) Kind() decision.Kind { return decision.KindRelocation }

func (relocationStrategy) Plan(f decision.Factors, external decision.ExternalData, horizon int) (Plan, error) {
	factors, ok := f.(decision.RelocationFactors)
	if !ok {
		return Plan{}, factorsMismatch(decision.KindRelocation, f)
	}

	plan := Plan{
		Options:    make([]OptionPlan, 0, len(factors.Cities)),
		Stochastic: true,
		Extra:      Extra{BaseSalary: floatPtr(factors.Salary)},
	}

	for _, city := range factors.Cities {
		monthly, ok := external.MonthlyCost(city)
		if !ok {
			monthly = constants.DefaultMonthlyCost
		}
		tax, ok := external.EffectiveTaxRate(city)
		if !ok {
			tax = constants.DefaultEffectiveTaxRate
		}

		plan.Options = append(plan.Options, OptionPlan{
			Name:    city,
			Points:  relocationPoints(factors.Salary, monthly*constants.MonthsPerYear, tax, horizon),
			Sample:  relocationSampler(factors.Salary, monthly*constants.MonthsPerYear, tax),
			Summary: montecarlo.Options{Extended: true},
		})
	}
	return plan, nil
}

func relocationPoints(salary, yearlyCost, tax float64, horizon int) []YearlyPoint {
	points := make([]YearlyPoint, 0, horizon)
	for year := 1; year <= horizon; year++ {
		gross := salary * mathutil.Compound(constants.SalaryGrowthRate, year)
		cost := yearlyCost * mathutil.Compound(constants.InflationRate, year)
		net := gross * (1 - tax)
		savings := net - cost

		points = append(points, RelocationYear{
			Year:          year,
			GrossIncome:   mathutil.Round(gross),
			NetIncome:     mathutil.Round(net),
			TotalExpenses: mathutil.Round(cost),
			Savings:       mathutil.Round(savings),
			// Scaled rather than summed across years.
			CumulativeSavings: mathutil.Round(savings * float64(year)),
		})
	}
	return points
}

type savingsPath struct {
	salary     float64
	cost       float64
	cumulative float64
}

func relocationSampler(salary, yearlyCost, tax float64) SampleFunc {
	step := func(p savingsPath, rng *rand.Rand) savingsPath {
		growth := montecarlo.Normal(rng, constants.SalaryGrowthRate, constants.SalaryGrowthStdDev)
		inflation := montecarlo.Normal(rng, constants.InflationRate, constants.InflationStdDev)
		p.salary *= 1 + growth
		p.cost *= 1 + inflation
		p.cumulative += p.salary*(1-tax) - p.cost
		return p
	}
	return sampleTerminal(savingsPath{salary: salary, cost: yearlyCost}, step, func(p savingsPath) float64 {
		return p.cumulative
	})
}
