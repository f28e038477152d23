package decision

import "errors"

// Engine errors. Callers match them with errors.Is; messages carry context
// through fmt.Errorf wrapping.
var (
	// ErrUnsupportedDecisionKind is returned for a kind outside the four
	// supported comparison domains.
	ErrUnsupportedDecisionKind = errors.New("unsupported decision kind")

	// ErrInvalidRunConfig is returned for a non-positive horizon or sample count.
	ErrInvalidRunConfig = errors.New("invalid run config")

	// ErrMalformedFactors is returned when the structured factors have a shape
	// that no documented default can repair.
	ErrMalformedFactors = errors.New("malformed factors")
)
