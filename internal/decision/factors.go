package decision

import (
	"fmt"
	"math"
	"strings"

	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"github.com/spf13/cast"
)

// Factors is the typed, defaulted description of one decision. The set of
// implementations is closed: one per Kind.
type Factors interface {
	Kind() Kind
	OptionNames() []string
}

// RelocationFactors compares living in several cities on one salary.
type RelocationFactors struct {
	Cities []string
	Salary float64
}

// Kind implements Factors.
func (f RelocationFactors) Kind() Kind { return KindRelocation }

// OptionNames implements Factors.
func (f RelocationFactors) OptionNames() []string { return append([]string(nil), f.Cities...) }

// PurchaseFactors compares buying one of several items within a budget.
// The per-option maps are keyed by lower-cased option name and override the
// budget-derived placeholders when present.
type PurchaseFactors struct {
	Options           []string
	Budget            float64
	Costs             map[string]float64
	MaintenanceRates  map[string]float64
	DepreciationRates map[string]float64
}

// Kind implements Factors.
func (f PurchaseFactors) Kind() Kind { return KindPurchase }

// OptionNames implements Factors.
func (f PurchaseFactors) OptionNames() []string { return append([]string(nil), f.Options...) }

// JobFactors compares several job offers.
type JobFactors struct {
	Options     []string
	Salaries    map[string]float64
	GrowthRates map[string]float64
}

// Kind implements Factors.
func (f JobFactors) Kind() Kind { return KindJob }

// OptionNames implements Factors.
func (f JobFactors) OptionNames() []string { return append([]string(nil), f.Options...) }

// InvestmentFactors compares placing one amount into several asset classes.
type InvestmentFactors struct {
	Options         []string
	Amount          float64
	ExpectedReturns map[string]float64
	Volatilities    map[string]float64
}

// Kind implements Factors.
func (f InvestmentFactors) Kind() Kind { return KindInvestment }

// OptionNames implements Factors.
func (f InvestmentFactors) OptionNames() []string { return append([]string(nil), f.Options...) }

// Lookup returns the value stored for name in a map keyed by lower-cased names.
func Lookup(values map[string]float64, name string) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	v, ok := values[normalizeKey(name)]
	return v, ok
}

// ParseFactors converts a loosely-typed factor map into the typed factors for
// kind. Missing optional keys take their documented defaults.
func ParseFactors(kind Kind, raw map[string]interface{}) (Factors, error) {
	if raw == nil {
		raw = map[string]interface{}{}
	}

	switch kind {
	case KindRelocation:
		return parseRelocation(raw)
	case KindPurchase:
		return parsePurchase(raw)
	case KindJob:
		return parseJob(raw)
	case KindInvestment:
		return parseInvestment(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDecisionKind, string(kind))
	}
}

func parseRelocation(raw map[string]interface{}) (RelocationFactors, error) {
	cities, err := readStrings(raw, "cities")
	if err != nil {
		return RelocationFactors{}, err
	}

	userContext, err := readMap(raw, "user_context")
	if err != nil {
		return RelocationFactors{}, err
	}
	salary, err := readNumber(userContext, "salary", constants.DefaultRelocationSalary)
	if err != nil {
		return RelocationFactors{}, fmt.Errorf("user_context: %w", err)
	}

	return RelocationFactors{Cities: cities, Salary: salary}, nil
}

func parsePurchase(raw map[string]interface{}) (PurchaseFactors, error) {
	var f PurchaseFactors
	var err error

	if f.Options, err = readStrings(raw, "options"); err != nil {
		return PurchaseFactors{}, err
	}
	if f.Budget, err = readNumber(raw, "budget", constants.DefaultPurchaseBudget); err != nil {
		return PurchaseFactors{}, err
	}
	if f.Costs, err = readNumberMap(raw, "costs"); err != nil {
		return PurchaseFactors{}, err
	}
	if f.MaintenanceRates, err = readNumberMap(raw, "maintenance_rates"); err != nil {
		return PurchaseFactors{}, err
	}
	if f.DepreciationRates, err = readNumberMap(raw, "depreciation_rates"); err != nil {
		return PurchaseFactors{}, err
	}
	return f, nil
}

func parseJob(raw map[string]interface{}) (JobFactors, error) {
	var f JobFactors
	var err error

	if f.Options, err = readStrings(raw, "options"); err != nil {
		return JobFactors{}, err
	}
	if f.Salaries, err = readNumberMap(raw, "salaries"); err != nil {
		return JobFactors{}, err
	}
	if f.GrowthRates, err = readNumberMap(raw, "growth_rates"); err != nil {
		return JobFactors{}, err
	}
	return f, nil
}

func parseInvestment(raw map[string]interface{}) (InvestmentFactors, error) {
	var f InvestmentFactors
	var err error

	if f.Options, err = readStrings(raw, "options"); err != nil {
		return InvestmentFactors{}, err
	}
	if f.Amount, err = readNumber(raw, "amount", constants.DefaultInvestmentAmount); err != nil {
		return InvestmentFactors{}, err
	}
	// Returns are reported relative to the initial amount.
	if f.Amount <= 0 {
		return InvestmentFactors{}, fmt.Errorf("%w: amount must be positive, got %v", ErrMalformedFactors, f.Amount)
	}
	if f.ExpectedReturns, err = readNumberMap(raw, "expected_returns"); err != nil {
		return InvestmentFactors{}, err
	}
	if f.Volatilities, err = readNumberMap(raw, "volatilities"); err != nil {
		return InvestmentFactors{}, err
	}
	return f, nil
}

func readStrings(raw map[string]interface{}, key string) ([]string, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return nil, nil
	}

	var items []interface{}
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []interface{}:
		items = v
	default:
		return nil, fmt.Errorf("%w: %s must be a sequence, got %T", ErrMalformedFactors, key, value)
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		s, err := cast.ToStringE(item)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrMalformedFactors, key, i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func readNumber(raw map[string]interface{}, key string, fallback float64) (float64, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return fallback, nil
	}
	n, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedFactors, key, err)
	}
	if !finite(n) {
		return 0, fmt.Errorf("%w: %s must be a finite number, got %v", ErrMalformedFactors, key, n)
	}
	return n, nil
}

func finite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

func readMap(raw map[string]interface{}, key string) (map[string]interface{}, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return map[string]interface{}{}, nil
	}
	switch value.(type) {
	case map[string]interface{}, map[interface{}]interface{}:
	default:
		return nil, fmt.Errorf("%w: %s must be a mapping, got %T", ErrMalformedFactors, key, value)
	}
	m, err := cast.ToStringMapE(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFactors, key, err)
	}
	return m, nil
}

func readNumberMap(raw map[string]interface{}, key string) (map[string]float64, error) {
	m, err := readMap(raw, key)
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}

	out := make(map[string]float64, len(m))
	for name, value := range m {
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrMalformedFactors, key, name, err)
		}
		if !finite(n) {
			return nil, fmt.Errorf("%w: %s.%s must be a finite number, got %v", ErrMalformedFactors, key, name, n)
		}
		out[normalizeKey(name)] = n
	}
	return out, nil
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
