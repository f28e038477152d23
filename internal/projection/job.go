package projection

import (
	"math/rand"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/internal/montecarlo"
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"github.com/Artem7898/ai-decision-simulator/pkg/mathutil"
)

type jobStrategy struct{}

func (jobStrategy) Kind() decision.Kind { return decision.KindJob }

func (jobStrategy) Plan(f decision.Factors, _ decision.ExternalData, horizon int) (Plan, error) {
	factors, ok := f.(decision.JobFactors)
	if !ok {
		return Plan{}, factorsMismatch(decision.KindJob, f)
	}

	plan := Plan{
		Options:    make([]OptionPlan, 0, len(factors.Options)),
		Stochastic: true,
	}

	for i, option := range factors.Options {
		salary, ok := decision.Lookup(factors.Salaries, option)
		if !ok {
			salary = constants.JobBaseSalary + constants.JobSalaryStep*float64(i)
		}
		growth, ok := decision.Lookup(factors.GrowthRates, option)
		if !ok {
			growth = constants.JobBaseGrowth + constants.JobGrowthStep*float64(i)
		}

		plan.Options = append(plan.Options, OptionPlan{
			Name:   option,
			Points: jobPoints(salary, growth, horizon),
			Sample: sampleTerminal(salary, func(s float64, rng *rand.Rand) float64 {
				return s * (1 + montecarlo.Normal(rng, growth, constants.JobGrowthStdDev))
			}, identity),
		})
	}
	return plan, nil
}

func jobPoints(salary, growth float64, horizon int) []YearlyPoint {
	points := make([]YearlyPoint, 0, horizon)
	cumulative := 0.0
	for year := 1; year <= horizon; year++ {
		current := salary * mathutil.Compound(growth, year)
		cumulative += current
		points = append(points, JobYear{
			Year:               year,
			Salary:             mathutil.Round(current),
			CumulativeEarnings: mathutil.Round(cumulative),
			GrowthRate:         mathutil.RoundTo(mathutil.ToPercent(growth), 1),
		})
	}
	return points
}
