// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/Artem7898/ai-decision-simulator/internal/runner"
)

// FindResult finds a result by decision name in the results slice.
// Returns a pointer to the result if found, nil otherwise.
func FindResult(results []runner.Result, name string) *runner.Result {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}
