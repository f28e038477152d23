package projection

import (
	"encoding/json"
	"fmt"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/internal/montecarlo"
)

// Field is one named value of a yearly point, in display order.
type Field struct {
	Name  string
	Value float64
}

// YearlyPoint is one year of a deterministic trajectory for one option.
type YearlyPoint interface {
	YearIndex() int
	Fields() []Field
}

// RelocationYear is one year of living in a city.
type RelocationYear struct {
	Year              int     `json:"year"`
	GrossIncome       float64 `json:"gross_income"`
	NetIncome         float64 `json:"net_income"`
	TotalExpenses     float64 `json:"total_expenses"`
	Savings           float64 `json:"savings"`
	CumulativeSavings float64 `json:"cumulative_savings"`
}

// YearIndex implements YearlyPoint.
func (p RelocationYear) YearIndex() int { return p.Year }

// Fields implements YearlyPoint.
func (p RelocationYear) Fields() []Field {
	return []Field{
		{Name: "gross_income", Value: p.GrossIncome},
		{Name: "net_income", Value: p.NetIncome},
		{Name: "total_expenses", Value: p.TotalExpenses},
		{Name: "savings", Value: p.Savings},
		{Name: "cumulative_savings", Value: p.CumulativeSavings},
	}
}

// PurchaseYear is one year of owning a purchased item.
type PurchaseYear struct {
	Year            int     `json:"year"`
	CurrentValue    float64 `json:"current_value"`
	MaintenanceCost float64 `json:"maintenance_cost"`
	TotalCostToDate float64 `json:"total_cost_to_date"`
	NetValue        float64 `json:"net_value"`
}

// YearIndex implements YearlyPoint.
func (p PurchaseYear) YearIndex() int { return p.Year }

// Fields implements YearlyPoint.
func (p PurchaseYear) Fields() []Field {
	return []Field{
		{Name: "current_value", Value: p.CurrentValue},
		{Name: "maintenance_cost", Value: p.MaintenanceCost},
		{Name: "total_cost_to_date", Value: p.TotalCostToDate},
		{Name: "net_value", Value: p.NetValue},
	}
}

// JobYear is one year of a job offer. GrowthRate is a percentage.
type JobYear struct {
	Year               int     `json:"year"`
	Salary             float64 `json:"salary"`
	CumulativeEarnings float64 `json:"cumulative_earnings"`
	GrowthRate         float64 `json:"growth_rate"`
}

// YearIndex implements YearlyPoint.
func (p JobYear) YearIndex() int { return p.Year }

// Fields implements YearlyPoint.
func (p JobYear) Fields() []Field {
	return []Field{
		{Name: "salary", Value: p.Salary},
		{Name: "cumulative_earnings", Value: p.CumulativeEarnings},
		{Name: "growth_rate", Value: p.GrowthRate},
	}
}

// InvestmentYear is one year of holding an asset class.
type InvestmentYear struct {
	Year             int     `json:"year"`
	Value            float64 `json:"value"`
	TotalReturn      float64 `json:"total_return"`
	ReturnPercentage float64 `json:"return_percentage"`
}

// YearIndex implements YearlyPoint.
func (p InvestmentYear) YearIndex() int { return p.Year }

// Fields implements YearlyPoint.
func (p InvestmentYear) Fields() []Field {
	return []Field{
		{Name: "value", Value: p.Value},
		{Name: "total_return", Value: p.TotalReturn},
		{Name: "return_percentage", Value: p.ReturnPercentage},
	}
}

type outputJSON struct {
	Options     []string                       `json:"options"`
	Projections map[string]json.RawMessage     `json:"projections"`
	MonteCarlo  map[string]*montecarlo.Summary `json:"monte_carlo"`
	Metadata    Metadata                       `json:"metadata"`
}

// UnmarshalJSON decodes an Output, choosing the point type from
// Metadata.DecisionType.
func (o *Output) UnmarshalJSON(data []byte) error {
	var raw outputJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	projections := make(map[string][]YearlyPoint, len(raw.Projections))
	for option, encoded := range raw.Projections {
		points, err := decodePoints(raw.Metadata.DecisionType, encoded)
		if err != nil {
			return fmt.Errorf("decode projection %q: %w", option, err)
		}
		projections[option] = points
	}

	*o = Output{
		Options:     raw.Options,
		Projections: projections,
		MonteCarlo:  raw.MonteCarlo,
		Metadata:    raw.Metadata,
	}
	return nil
}

func decodePoints(kind decision.Kind, data []byte) ([]YearlyPoint, error) {
	switch kind {
	case decision.KindRelocation:
		return decodeAs[RelocationYear](data)
	case decision.KindPurchase:
		return decodeAs[PurchaseYear](data)
	case decision.KindJob:
		return decodeAs[JobYear](data)
	case decision.KindInvestment:
		return decodeAs[InvestmentYear](data)
	default:
		return nil, fmt.Errorf("%w: %q", decision.ErrUnsupportedDecisionKind, string(kind))
	}
}

func decodeAs[P YearlyPoint](data []byte) ([]YearlyPoint, error) {
	var typed []P
	if err := json.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	points := make([]YearlyPoint, len(typed))
	for i, p := range typed {
		points[i] = p
	}
	return points, nil
}
