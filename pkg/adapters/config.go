// Package adapters provides adapter implementations between different package interfaces.
package adapters

import (
	"fmt"

	"github.com/Artem7898/ai-decision-simulator/internal/config"
	"github.com/Artem7898/ai-decision-simulator/internal/runner"
	"go.uber.org/zap"
)

// DecisionToRequest converts a configured decision into a run request, with
// unset run settings taken from defaults.
func DecisionToRequest(d config.Decision, defaults config.Simulation) (runner.Request, error) {
	kind, err := d.Kind()
	if err != nil {
		return runner.Request{}, fmt.Errorf("decision %q: %w", d.Name, err)
	}

	settings := d.Settings(defaults)
	return runner.Request{
		Name:             d.Name,
		DecisionType:     kind,
		Query:            d.Query,
		Factors:          d.Factors,
		ExternalData:     d.ExternalData,
		TimeHorizonYears: settings.TimeHorizonYears,
		SampleCount:      settings.SampleCount,
		Seed:             settings.Seed,
	}, nil
}

// ConfigurationToRequests converts every active decision of conf into a run
// request, in file order.
func ConfigurationToRequests(logger *zap.Logger, conf config.Configuration) ([]runner.Request, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var requests []runner.Request
	for _, d := range conf.Decisions {
		if !d.Active {
			logger.Debug(fmt.Sprintf("skipping decision %s because it is inactive", d.Name),
				zap.String("op", "adapters.ConfigurationToRequests"),
			)
			continue
		}
		req, err := DecisionToRequest(d, conf.Simulation)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}
