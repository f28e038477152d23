package validation

import (
	"fmt"
	"strings"

	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
)

// ValidateRunSettings checks the run settings a decision will be simulated with.
func ValidateRunSettings(decisionName string, timeHorizonYears, sampleCount int) []string {
	var warnings []string

	if timeHorizonYears < 1 {
		warnings = append(warnings, fmt.Sprintf("Decision '%s' has a time horizon of %d years - the run will fail",
			decisionName, timeHorizonYears))
	} else if timeHorizonYears > constants.LongHorizonYears {
		warnings = append(warnings, fmt.Sprintf("Decision '%s' projects %d years ahead (> %d) - growth assumptions are unreliable that far out",
			decisionName, timeHorizonYears, constants.LongHorizonYears))
	}

	if sampleCount < 1 {
		warnings = append(warnings, fmt.Sprintf("Decision '%s' has a sample count of %d - the run will fail",
			decisionName, sampleCount))
	} else if sampleCount < constants.NoisySampleCount {
		warnings = append(warnings, fmt.Sprintf("Decision '%s' uses %d samples (< %d) - Monte Carlo statistics will be noisy",
			decisionName, sampleCount, constants.NoisySampleCount))
	}

	return warnings
}

// ConfigValidator holds the parts of a decision configuration that are
// checked before anything is simulated.
type ConfigValidator struct {
	Decisions  []DecisionConfig
	KnownTypes []string
}

// DecisionConfig is the validation view of one configured decision.
type DecisionConfig struct {
	Name             string
	Type             string
	Active           bool
	Query            string
	OptionCount      int
	TimeHorizonYears int
	SampleCount      int
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	seen := make(map[string]bool, len(cv.Decisions))
	active := 0
	for _, d := range cv.Decisions {
		if seen[d.Name] {
			warnings = append(warnings, fmt.Sprintf("Decision name '%s' is used more than once - results will be hard to tell apart", d.Name))
		}
		seen[d.Name] = true

		if !d.Active {
			continue
		}
		active++

		if !cv.knownType(d.Type) {
			warnings = append(warnings, fmt.Sprintf("Decision '%s' has unsupported type '%s' (expected one of %s)",
				d.Name, d.Type, strings.Join(cv.KnownTypes, ", ")))
		}
		if d.OptionCount == 0 && strings.TrimSpace(d.Query) == "" {
			warnings = append(warnings, fmt.Sprintf("Decision '%s' has neither options nor a query - nothing to compare", d.Name))
		}
		warnings = append(warnings, ValidateRunSettings(d.Name, d.TimeHorizonYears, d.SampleCount)...)
	}

	if active == 0 {
		warnings = append(warnings, "No active decisions - nothing will be simulated")
	}

	return warnings
}

func (cv *ConfigValidator) knownType(kind string) bool {
	for _, known := range cv.KnownTypes {
		if strings.EqualFold(strings.TrimSpace(kind), known) {
			return true
		}
	}
	return false
}
