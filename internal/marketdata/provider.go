// Package marketdata supplies the cost-of-living, tax and market return
// figures a decision needs, with optional caching in memory, Redis or SQLite.
package marketdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/internal/projection"
)

// Provider fetches external figures for one city or asset class.
type Provider interface {
	// CostOfLiving returns monthly cost components for city.
	CostOfLiving(ctx context.Context, city string) (map[string]float64, error)
	// TaxRates returns the tax fields for city, including effective_rate.
	TaxRates(ctx context.Context, city string) (map[string]float64, error)
	// MarketReturns returns the assumption for option, or false when the
	// provider has none.
	MarketReturns(ctx context.Context, option string) (decision.MarketReturn, bool, error)
}

// ReferenceProvider serves static reference tables.
type ReferenceProvider struct{}

// NewReferenceProvider creates a ReferenceProvider.
func NewReferenceProvider() *ReferenceProvider {
	return &ReferenceProvider{}
}

var referenceCostOfLiving = map[string]map[string]float64{
	"berlin":    {"rent": 1200, "food": 400, "transport": 86, "utilities": 200, "entertainment": 150},
	"amsterdam": {"rent": 1800, "food": 450, "transport": 100, "utilities": 180, "entertainment": 200},
	"london":    {"rent": 2200, "food": 500, "transport": 150, "utilities": 200, "entertainment": 250},
	"paris":     {"rent": 1600, "food": 480, "transport": 75, "utilities": 170, "entertainment": 180},
}

var fallbackCostOfLiving = map[string]float64{"rent": 1000, "food": 350, "transport": 80, "utilities": 150, "entertainment": 100}

var referenceTaxRates = map[string]map[string]float64{
	"berlin":    {"income_tax": 0.42, "social_security": 0.20, "effective_rate": 0.35},
	"amsterdam": {"income_tax": 0.495, "social_security": 0.15, "effective_rate": 0.38},
	"london":    {"income_tax": 0.45, "social_security": 0.12, "effective_rate": 0.32},
	"paris":     {"income_tax": 0.45, "social_security": 0.22, "effective_rate": 0.40},
}

var fallbackTaxRates = map[string]float64{"income_tax": 0.30, "social_security": 0.15, "effective_rate": 0.30}

// CostOfLiving implements Provider. Unknown cities get a generic table.
func (p *ReferenceProvider) CostOfLiving(_ context.Context, city string) (map[string]float64, error) {
	if c, ok := referenceCostOfLiving[normalize(city)]; ok {
		return copyMap(c), nil
	}
	return copyMap(fallbackCostOfLiving), nil
}

// TaxRates implements Provider. Unknown cities get a generic table.
func (p *ReferenceProvider) TaxRates(_ context.Context, city string) (map[string]float64, error) {
	if t, ok := referenceTaxRates[normalize(city)]; ok {
		return copyMap(t), nil
	}
	return copyMap(fallbackTaxRates), nil
}

// MarketReturns implements Provider.
func (p *ReferenceProvider) MarketReturns(_ context.Context, option string) (decision.MarketReturn, bool, error) {
	r, ok := projection.ReferenceReturn(option)
	return r, ok, nil
}

// Resolve fetches the external data factors need. Kinds without external
// inputs resolve to an empty ExternalData.
func Resolve(ctx context.Context, provider Provider, factors decision.Factors) (decision.ExternalData, error) {
	var data decision.ExternalData
	if provider == nil || factors == nil {
		return data, nil
	}

	switch factors.Kind() {
	case decision.KindRelocation:
		for _, city := range factors.OptionNames() {
			components, err := provider.CostOfLiving(ctx, city)
			if err != nil {
				return decision.ExternalData{}, fmt.Errorf("cost of living for %q: %w", city, err)
			}
			data.SetCostOfLiving(city, components)

			rates, err := provider.TaxRates(ctx, city)
			if err != nil {
				return decision.ExternalData{}, fmt.Errorf("tax rates for %q: %w", city, err)
			}
			data.SetTaxRates(city, rates)
		}
	case decision.KindInvestment:
		for _, option := range factors.OptionNames() {
			r, ok, err := provider.MarketReturns(ctx, option)
			if err != nil {
				return decision.ExternalData{}, fmt.Errorf("market returns for %q: %w", option, err)
			}
			if ok {
				data.SetReturns(option, r)
			}
		}
	}

	return data, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func copyMap(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
