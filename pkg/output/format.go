// Package output provides utilities for formatting and displaying simulation results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Artem7898/ai-decision-simulator/internal/montecarlo"
	"github.com/Artem7898/ai-decision-simulator/internal/runner"
	"github.com/Artem7898/ai-decision-simulator/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stat is one named Monte Carlo statistic.
type Stat struct {
	Name  string
	Value float64
}

// SummaryStats lists the statistics present in s, in display order.
func SummaryStats(s *montecarlo.Summary) []Stat {
	if s == nil {
		return nil
	}
	stats := []Stat{{"mean", s.Mean}, {"std", s.Std}, {"p5", s.P5}}
	for _, optional := range []struct {
		name  string
		value *float64
	}{{"p25", s.P25}, {"p50", s.P50}, {"p75", s.P75}} {
		if optional.value != nil {
			stats = append(stats, Stat{optional.name, *optional.value})
		}
	}
	stats = append(stats, Stat{"p95", s.P95})
	if s.ProbLoss != nil {
		stats = append(stats, Stat{"prob_loss", *s.ProbLoss})
	}
	return stats
}

// isPercent reports whether a field or statistic is a percentage rather
// than an amount.
func isPercent(name string) bool {
	return name == "prob_loss" || strings.HasSuffix(name, "_rate") || strings.HasSuffix(name, "_percentage")
}

func display(name string, value float64) string {
	if isPercent(name) {
		return format.Percent(value)
	}
	return format.Currency(value)
}

// PrettyFormat writes a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, results []runner.Result) {
	p := message.NewPrinter(language.English)
	for i, result := range results {
		_, _ = fmt.Fprintf(w, "--- Results for decision %s (%s) ---\n", result.Name, result.DecisionType)
		if result.Output == nil {
			_, _ = fmt.Fprintf(w, "FAILED: %s\n", result.Error)
			if i < len(results)-1 {
				_, _ = fmt.Fprintf(w, "\n")
			}
			continue
		}

		out := result.Output
		_, _ = p.Fprintf(w, "Horizon: %d years | Samples: %d",
			out.Metadata.TimeHorizonYears, out.Metadata.SampleCount)
		_, _ = fmt.Fprintf(w, " | Seed: %d\n", result.Seed)

		// Duplicate names share one projection; print it once.
		printed := make(map[string]bool, len(out.Options))
		for _, option := range out.Options {
			if printed[option] {
				continue
			}
			printed[option] = true

			_, _ = fmt.Fprintf(w, "\n%s\n", option)
			points := out.Projections[option]
			if len(points) > 0 {
				header := []string{"Year"}
				for _, field := range points[0].Fields() {
					header = append(header, field.Name)
				}
				_, _ = fmt.Fprintf(w, "%s\n", strings.Join(header, " | "))
				for _, point := range points {
					row := []string{strconv.Itoa(point.YearIndex())}
					for _, field := range point.Fields() {
						row = append(row, display(field.Name, field.Value))
					}
					_, _ = fmt.Fprintf(w, "%s\n", strings.Join(row, " | "))
				}
			}

			if stats := SummaryStats(out.MonteCarlo[option]); len(stats) > 0 {
				parts := make([]string, 0, len(stats))
				for _, stat := range stats {
					parts = append(parts, stat.Name+"="+display(stat.Name, stat.Value))
				}
				_, _ = fmt.Fprintf(w, "Monte Carlo: %s\n", strings.Join(parts, ", "))
			}
		}
		if i < len(results)-1 {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}
}

// CsvFormat writes one quoted row per projected field and per Monte Carlo
// statistic. Summary rows leave the year empty.
func CsvFormat(w io.Writer, results []runner.Result) {
	_, _ = fmt.Fprintf(w, `"decision","type","option","section","year","metric","value"`+"\n")
	for _, result := range results {
		if result.Output == nil {
			continue
		}
		out := result.Output
		printed := make(map[string]bool, len(out.Options))
		for _, option := range out.Options {
			if printed[option] {
				continue
			}
			printed[option] = true

			for _, point := range out.Projections[option] {
				for _, field := range point.Fields() {
					writeRow(w, result.Name, string(result.DecisionType), option, "projection",
						strconv.Itoa(point.YearIndex()), field.Name, field.Value)
				}
			}
			for _, stat := range SummaryStats(out.MonteCarlo[option]) {
				writeRow(w, result.Name, string(result.DecisionType), option, "monte_carlo",
					"", stat.Name, stat.Value)
			}
		}
	}
}

func writeRow(w io.Writer, decision, kind, option, section, year, metric string, value float64) {
	_, _ = fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s,\"%.2f\"\n",
		quote(decision), quote(kind), quote(option), quote(section), quote(year), quote(metric), value)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// JSONFormat writes the results as an indented JSON array.
func JSONFormat(w io.Writer, results []runner.Result) error {
	if results == nil {
		results = []runner.Result{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}
