package structuring

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
)

func TestKeywordStructurer(t *testing.T) {
	s := NewKeywordStructurer(nil)

	tests := []struct {
		name     string
		query    string
		kind     decision.Kind
		expected map[string]interface{}
	}{
		{
			name:  "relocation with salary",
			query: "Should I move to Berlin or Amsterdam with a salary of $95,000?",
			kind:  decision.KindRelocation,
			expected: map[string]interface{}{
				"cities":       []string{"Berlin", "Amsterdam"},
				"user_context": map[string]interface{}{"salary": 95000.0},
			},
		},
		{
			name:     "relocation without salary",
			query:    "Lisbon vs Porto",
			kind:     decision.KindRelocation,
			expected: map[string]interface{}{"cities": []string{"Lisbon", "Porto"}},
		},
		{
			name:  "purchase with shorthand budget",
			query: "Buy a Tesla Model 3 vs a Honda Civic, budget 40k",
			kind:  decision.KindPurchase,
			expected: map[string]interface{}{
				"options": []string{"Tesla Model 3", "Honda Civic"},
				"budget":  40000.0,
			},
		},
		{
			name:     "job offers",
			query:    "Offer from Acme vs offer from Globex",
			kind:     decision.KindJob,
			expected: map[string]interface{}{"options": []string{"Acme", "Globex"}},
		},
		{
			name:  "investment amount before options",
			query: "Invest $10,000 in stocks or bonds",
			kind:  decision.KindInvestment,
			expected: map[string]interface{}{
				"options": []string{"stocks", "bonds"},
				"amount":  10000.0,
			},
		},
		{
			name:  "investment list with trailing clause",
			query: "Stocks, bonds and crypto for 20k over 5 years",
			kind:  decision.KindInvestment,
			expected: map[string]interface{}{
				"options": []string{"Stocks", "bonds", "crypto"},
				"amount":  20000.0,
			},
		},
		{
			name:  "millions",
			query: "real estate or stocks with 1.5 million",
			kind:  decision.KindInvestment,
			expected: map[string]interface{}{
				"options": []string{"real estate", "stocks"},
				"amount":  1500000.0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Structure(context.Background(), tt.query, tt.kind)
			if err != nil {
				t.Fatalf("Structure() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Structure() = %#v, expected %#v", got, tt.expected)
			}
		})
	}
}

func TestKeywordStructurerFeedsFactorParsing(t *testing.T) {
	s := NewKeywordStructurer(nil)
	raw, err := s.Structure(context.Background(), "Move to Paris or London earning 70k", decision.KindRelocation)
	if err != nil {
		t.Fatalf("Structure() error = %v", err)
	}

	factors, err := decision.ParseFactors(decision.KindRelocation, raw)
	if err != nil {
		t.Fatalf("ParseFactors() error = %v", err)
	}
	relocation := factors.(decision.RelocationFactors)
	if relocation.Salary != 70000 {
		t.Errorf("Salary = %v, expected 70000", relocation.Salary)
	}
	if !reflect.DeepEqual(relocation.Cities, []string{"Paris", "London"}) {
		t.Errorf("Cities = %v", relocation.Cities)
	}
}

func TestKeywordStructurerErrors(t *testing.T) {
	s := NewKeywordStructurer(nil)

	if _, err := s.Structure(context.Background(), "  ?", decision.KindJob); !errors.Is(err, ErrUnstructured) {
		t.Errorf("expected ErrUnstructured, got %v", err)
	}
	if _, err := s.Structure(context.Background(), "a or b", decision.Kind("pets")); !errors.Is(err, decision.ErrUnsupportedDecisionKind) {
		t.Errorf("expected ErrUnsupportedDecisionKind, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Structure(ctx, "a or b", decision.KindJob); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExtractAmountIgnoresSmallBareNumbers(t *testing.T) {
	tests := []struct {
		text  string
		found bool
		value float64
	}{
		{"stocks for 5 years", false, 0},
		{"2 cars or 3 bikes", false, 0},
		{"salary 120000", true, 120000},
		{"€800 budget", true, 800},
		{"with 25K", true, 25000},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			value, found, _ := extractAmount(tt.text)
			if found != tt.found || value != tt.value {
				t.Errorf("extractAmount(%q) = %v %v, expected %v %v", tt.text, value, found, tt.value, tt.found)
			}
		})
	}
}
