package decision

import (
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"github.com/spf13/cast"
)

// MarketReturn is the yearly return assumption for one asset class.
type MarketReturn struct {
	ExpectedReturn float64 `json:"expected_return" yaml:"expected_return"`
	Volatility     float64 `json:"volatility" yaml:"volatility"`
}

// ExternalData holds the market and cost figures supplied alongside a
// decision. All keys are lower-cased so lookups are case-insensitive.
type ExternalData struct {
	CostOfLiving  map[string]map[string]float64 `json:"cost_of_living,omitempty"`
	TaxRates      map[string]map[string]float64 `json:"tax_rates,omitempty"`
	MarketReturns map[string]MarketReturn       `json:"market_returns,omitempty"`
}

// MonthlyCost returns the sum of every cost-of-living component for city.
func (d ExternalData) MonthlyCost(city string) (float64, bool) {
	components, ok := d.CostOfLiving[normalizeKey(city)]
	if !ok || len(components) == 0 {
		return 0, false
	}
	total := 0.0
	for _, v := range components {
		total += v
	}
	return total, true
}

// EffectiveTaxRate returns the effective_rate entry for city.
func (d ExternalData) EffectiveTaxRate(city string) (float64, bool) {
	rates, ok := d.TaxRates[normalizeKey(city)]
	if !ok {
		return 0, false
	}
	rate, ok := rates["effective_rate"]
	return rate, ok
}

// Returns returns the market return assumption for option.
func (d ExternalData) Returns(option string) (MarketReturn, bool) {
	r, ok := d.MarketReturns[normalizeKey(option)]
	return r, ok
}

// SetCostOfLiving stores the components for city.
func (d *ExternalData) SetCostOfLiving(city string, components map[string]float64) {
	if d.CostOfLiving == nil {
		d.CostOfLiving = make(map[string]map[string]float64)
	}
	d.CostOfLiving[normalizeKey(city)] = copyNumbers(components)
}

// SetTaxRates stores the tax fields for city.
func (d *ExternalData) SetTaxRates(city string, rates map[string]float64) {
	if d.TaxRates == nil {
		d.TaxRates = make(map[string]map[string]float64)
	}
	d.TaxRates[normalizeKey(city)] = copyNumbers(rates)
}

// SetReturns stores the market return assumption for option.
func (d *ExternalData) SetReturns(option string, r MarketReturn) {
	if d.MarketReturns == nil {
		d.MarketReturns = make(map[string]MarketReturn)
	}
	d.MarketReturns[normalizeKey(option)] = r
}

// Merge returns a copy of d in which every entry present in override
// replaces the corresponding entry of d.
func (d ExternalData) Merge(override ExternalData) ExternalData {
	var out ExternalData
	for city, c := range d.CostOfLiving {
		out.SetCostOfLiving(city, c)
	}
	for city, t := range d.TaxRates {
		out.SetTaxRates(city, t)
	}
	for option, r := range d.MarketReturns {
		out.SetReturns(option, r)
	}
	for city, c := range override.CostOfLiving {
		out.SetCostOfLiving(city, c)
	}
	for city, t := range override.TaxRates {
		out.SetTaxRates(city, t)
	}
	for option, r := range override.MarketReturns {
		out.SetReturns(option, r)
	}
	return out
}

// ParseExternalData converts a loosely-typed external data map. Unknown
// sections, entries that are not mappings and non-numeric components are
// skipped rather than rejected.
func ParseExternalData(raw map[string]interface{}) ExternalData {
	var data ExternalData

	for city, components := range numberSections(raw["cost_of_living"]) {
		data.SetCostOfLiving(city, components)
	}
	for city, rates := range numberSections(raw["tax_rates"]) {
		data.SetTaxRates(city, rates)
	}
	for option, fields := range numberSections(raw["market_returns"]) {
		expected, ok := fields["expected_return"]
		if !ok {
			continue
		}
		volatility, ok := fields["volatility"]
		if !ok {
			volatility = constants.DefaultVolatility
		}
		data.SetReturns(option, MarketReturn{ExpectedReturn: expected, Volatility: volatility})
	}

	return data
}

func numberSections(value interface{}) map[string]map[string]float64 {
	sections, err := cast.ToStringMapE(value)
	if err != nil || len(sections) == 0 {
		return nil
	}

	out := make(map[string]map[string]float64, len(sections))
	for name, section := range sections {
		fields, err := cast.ToStringMapE(section)
		if err != nil {
			continue
		}
		numbers := make(map[string]float64, len(fields))
		for field, v := range fields {
			switch v.(type) {
			case bool, string, nil:
				continue
			}
			n, err := cast.ToFloat64E(v)
			if err != nil {
				continue
			}
			numbers[normalizeKey(field)] = n
		}
		out[name] = numbers
	}
	return out
}

func copyNumbers(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[normalizeKey(k)] = v
	}
	return out
}
