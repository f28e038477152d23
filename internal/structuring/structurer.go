// Package structuring turns a free-form decision query into the factor map
// the projection engine consumes.
package structuring

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"go.uber.org/zap"
)

// ErrUnstructured is returned when no options can be read from a query.
var ErrUnstructured = errors.New("could not identify options in query")

// Structurer extracts structured factors from a query.
type Structurer interface {
	Structure(ctx context.Context, query string, kind decision.Kind) (map[string]interface{}, error)
}

// KeywordStructurer reads options and a money amount from a query using
// separators ("vs", "or", commas) and a fixed vocabulary of leading verbs.
type KeywordStructurer struct {
	logger *zap.Logger
}

// NewKeywordStructurer creates a KeywordStructurer.
func NewKeywordStructurer(logger *zap.Logger) *KeywordStructurer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeywordStructurer{logger: logger}
}

var (
	amountPattern    = regexp.MustCompile(`(?i)([$€£])?\s*(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)\s*(k|m|thousand|million)?\b`)
	separatorPattern = regexp.MustCompile(`(?i)\s+(?:vs\.?|versus|or|and)\s+|\s*[,;/]\s*`)
)

// Leading phrases removed from each option, longest first within a group.
var leadingPhrases = []string{
	"should i", "should we", "i", "we", "whether to", "between", "compare", "choose",
	"relocate to", "relocating to", "move to", "moving to", "live in", "living in",
	"buy", "buying", "purchase", "purchasing", "get",
	"invest in", "investing in", "put money in", "put it in", "invest",
	"accept", "take", "join", "work at", "working at",
	"a job at", "job at", "a job with", "job with", "an offer from", "the offer from", "offer from",
	"the", "a", "an",
}

// Words that start a trailing clause which is not part of an option name.
var clauseMarkers = []string{
	"with", "budget", "salary", "earning", "making", "given", "for", "over", "within", "on a",
}

// Structure implements Structurer.
func (s *KeywordStructurer) Structure(ctx context.Context, query string, kind decision.Kind) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", decision.ErrUnsupportedDecisionKind, string(kind))
	}

	text := strings.TrimRight(strings.TrimSpace(query), "?!. ")
	amount, found, text := extractAmount(text)
	options := splitOptions(text)
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnstructured, query)
	}

	factors := map[string]interface{}{}
	switch kind {
	case decision.KindRelocation:
		factors["cities"] = options
		if found {
			factors["user_context"] = map[string]interface{}{"salary": amount}
		}
	case decision.KindPurchase:
		factors["options"] = options
		if found {
			factors["budget"] = amount
		}
	case decision.KindJob:
		factors["options"] = options
	case decision.KindInvestment:
		factors["options"] = options
		if found {
			factors["amount"] = amount
		}
	}

	s.logger.Debug("structured query",
		zap.String("op", "structuring.KeywordStructurer.Structure"),
		zap.String("kind", kind.String()),
		zap.Strings("options", options),
		zap.Bool("amount_found", found),
	)
	return factors, nil
}

// extractAmount finds the first money amount in text and returns it along
// with text minus the amount. Bare numbers below 1000 are not amounts.
func extractAmount(text string) (float64, bool, string) {
	for _, m := range amountPattern.FindAllStringSubmatchIndex(text, -1) {
		symbol := m[2] != -1
		suffix := ""
		if m[6] != -1 {
			suffix = strings.ToLower(text[m[6]:m[7]])
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(text[m[4]:m[5]], ",", ""), 64)
		if err != nil {
			continue
		}
		switch suffix {
		case "k", "thousand":
			value *= 1e3
		case "m", "million":
			value *= 1e6
		}
		if !symbol && suffix == "" && value < 1000 {
			continue
		}
		rest := strings.Join(strings.Fields(text[:m[0]]+" "+text[m[1]:]), " ")
		return value, true, rest
	}
	return 0, false, text
}

func splitOptions(text string) []string {
	var options []string
	for _, part := range separatorPattern.Split(text, -1) {
		option := trimClause(stripLeading(strings.Join(strings.Fields(part), " ")))
		option = strings.Trim(option, `"'()`)
		if option != "" {
			options = append(options, option)
		}
	}
	return options
}

func stripLeading(option string) string {
	for {
		lower := strings.ToLower(option)
		stripped := false
		for _, phrase := range leadingPhrases {
			if lower == phrase {
				return ""
			}
			if strings.HasPrefix(lower, phrase+" ") {
				option = strings.TrimSpace(option[len(phrase)+1:])
				stripped = true
				break
			}
		}
		if !stripped {
			return option
		}
	}
}

func trimClause(option string) string {
	lower := " " + strings.ToLower(option) + " "
	cut := len(option)
	for _, marker := range clauseMarkers {
		if i := strings.Index(lower, " "+marker+" "); i != -1 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(option[:cut])
}
