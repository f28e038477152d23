// Package decision defines the typed inputs of a comparative decision: the
// decision kind, the per-kind structured factors and the external market data
// that accompanies them.
//
// Loosely-typed maps coming from configuration files, HTTP payloads or the
// text-structuring step are converted here, once, with every documented
// default applied. Nothing downstream sees an untyped factor bag.
package decision

import (
	"fmt"
	"strings"
)

// Kind selects the projection strategy for a decision.
type Kind string

// Supported decision kinds.
const (
	KindRelocation Kind = "relocation"
	KindPurchase   Kind = "purchase"
	KindJob        Kind = "job"
	KindInvestment Kind = "investment"
)

// Kinds lists every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindRelocation, KindPurchase, KindJob, KindInvestment}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindRelocation, KindPurchase, KindJob, KindInvestment:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a case-insensitive name into a Kind.
func ParseKind(value string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(value)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDecisionKind, value)
	}
	return k, nil
}
