package projection

import (
	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"github.com/Artem7898/ai-decision-simulator/pkg/mathutil"
)

type purchaseStrategy struct{}

func (purchaseStrategy) Kind() decision.Kind { return decision.KindPurchase }

// Plan projects ownership cost only; purchases have no stochastic component.
func (purchaseStrategy) Plan(f decision.Factors, _ decision.ExternalData, horizon int) (Plan, error) {
	factors, ok := f.(decision.PurchaseFactors)
	if !ok {
		return Plan{}, factorsMismatch(decision.KindPurchase, f)
	}

	plan := Plan{
		Options: make([]OptionPlan, 0, len(factors.Options)),
		Extra:   Extra{Budget: floatPtr(factors.Budget)},
	}

	for i, option := range factors.Options {
		initial, ok := decision.Lookup(factors.Costs, option)
		if !ok {
			// Spread placeholder costs across the options.
			initial = factors.Budget * (constants.PurchaseCostBase + constants.PurchaseCostStep*float64(i))
		}
		maintenanceRate, ok := decision.Lookup(factors.MaintenanceRates, option)
		if !ok {
			maintenanceRate = constants.DefaultMaintenanceRate
		}
		depreciation, ok := decision.Lookup(factors.DepreciationRates, option)
		if !ok {
			depreciation = constants.DefaultDepreciationRate
		}

		plan.Options = append(plan.Options, OptionPlan{
			Name:   option,
			Points: purchasePoints(initial, initial*maintenanceRate, depreciation, horizon),
		})
	}
	return plan, nil
}

func purchasePoints(initial, maintenance, depreciation float64, horizon int) []YearlyPoint {
	points := make([]YearlyPoint, 0, horizon)
	value := initial
	total := initial
	for year := 1; year <= horizon; year++ {
		value *= 1 - depreciation
		total += maintenance
		points = append(points, PurchaseYear{
			Year:            year,
			CurrentValue:    mathutil.Round(value),
			MaintenanceCost: mathutil.Round(maintenance),
			TotalCostToDate: mathutil.Round(total),
			NetValue:        mathutil.Round(value - total),
		})
	}
	return points
}
