package validation

import (
	"strings"
	"testing"

	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
)

func TestValidateOutputFormatAcceptsEveryRenderer(t *testing.T) {
	for _, format := range []string{
		constants.OutputFormatPretty,
		constants.OutputFormatCSV,
		constants.OutputFormatJSON,
	} {
		if err := ValidateOutputFormat(format); err != nil {
			t.Errorf("ValidateOutputFormat(%q) unexpected error = %v", format, err)
		}
	}
}

func TestValidateOutputFormatRejects(t *testing.T) {
	tests := map[string]string{
		"empty":                  "",
		"uppercase json":         "JSON",
		"capitalised csv":        "Csv",
		"padded json":            " json",
		"trailing newline":       "pretty\n",
		"json lines":             "jsonl",
		"yaml is not a renderer": "yaml",
		"combined formats":       "csv,json",
	}

	for name, format := range tests {
		t.Run(name, func(t *testing.T) {
			err := ValidateOutputFormat(format)
			if err == nil {
				t.Fatalf("ValidateOutputFormat(%q) expected error but got none", format)
			}
			// The message lists the accepted formats so CLI users can correct the flag.
			for _, accepted := range []string{"pretty", "csv", "json"} {
				if !strings.Contains(err.Error(), accepted) {
					t.Errorf("error %q does not mention %s", err, accepted)
				}
			}
		})
	}
}
