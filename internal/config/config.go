// Package config defines the data structures related to configuration and
// includes functions for loading, defaulting and validating the config.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"github.com/Artem7898/ai-decision-simulator/pkg/validation"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that override configuration keys,
// e.g. DECISION_SIMULATOR_SIMULATION_SAMPLECOUNT.
const EnvPrefix = "DECISION_SIMULATOR"

// Configuration holds all configuration for decision-simulator.
type Configuration struct {
	Simulation Simulation    `yaml:"simulation,omitempty"`
	Decisions  []Decision    `yaml:"decisions"`
	Logging    LoggingConfig `yaml:"logging,omitempty"`
	Output     OutputConfig  `yaml:"output,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// Simulation holds the run settings shared by every decision.
type Simulation struct {
	TimeHorizonYears int    `yaml:"timeHorizonYears,omitempty"`
	SampleCount      int    `yaml:"sampleCount,omitempty"`
	Seed             *int64 `yaml:"seed,omitempty"`
}

// Decision is one comparative decision to simulate. Factors and ExternalData
// are kept loosely typed here and parsed by the decision package at run time.
// Zero run settings are inherited from Simulation.
type Decision struct {
	Name             string                 `yaml:"name"`
	Active           bool                   `yaml:"active"`
	Type             string                 `yaml:"type"`
	Query            string                 `yaml:"query,omitempty"`
	Factors          map[string]interface{} `yaml:"factors,omitempty"`
	ExternalData     map[string]interface{} `yaml:"externalData,omitempty"`
	TimeHorizonYears int                    `yaml:"timeHorizonYears,omitempty"`
	SampleCount      int                    `yaml:"sampleCount,omitempty"`
	Seed             *int64                 `yaml:"seed,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r,
// e.g. an uploaded file.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("simulation.timeHorizonYears", constants.DefaultTimeHorizonYears)
	v.SetDefault("simulation.sampleCount", constants.DefaultSampleCount)
	v.SetDefault("output.format", constants.OutputFormatPretty)
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// ActiveDecisions returns the decisions marked active, in file order.
func (conf *Configuration) ActiveDecisions() []Decision {
	var active []Decision
	for _, d := range conf.Decisions {
		if d.Active {
			active = append(active, d)
		}
	}
	return active
}

// Settings returns the decision's run settings with unset values taken from
// defaults.
func (d Decision) Settings(defaults Simulation) Simulation {
	settings := defaults
	if settings.TimeHorizonYears == 0 {
		settings.TimeHorizonYears = constants.DefaultTimeHorizonYears
	}
	if settings.SampleCount == 0 {
		settings.SampleCount = constants.DefaultSampleCount
	}
	if d.TimeHorizonYears != 0 {
		settings.TimeHorizonYears = d.TimeHorizonYears
	}
	if d.SampleCount != 0 {
		settings.SampleCount = d.SampleCount
	}
	if d.Seed != nil {
		seed := *d.Seed
		settings.Seed = &seed
	}
	return settings
}

// Kind parses the decision type.
func (d Decision) Kind() (decision.Kind, error) {
	return decision.ParseKind(d.Type)
}

// OptionNames returns the options or cities listed in the factors, if any.
func (d Decision) OptionNames() []string {
	for _, key := range []string{"options", "cities"} {
		raw, ok := d.Factors[key]
		if !ok {
			continue
		}
		names, err := cast.ToStringSliceE(raw)
		if err == nil {
			return names
		}
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (conf *Configuration) ValidateConfiguration() []string {
	known := make([]string, 0, len(decision.Kinds()))
	for _, kind := range decision.Kinds() {
		known = append(known, kind.String())
	}

	validator := validation.ConfigValidator{KnownTypes: known}
	for _, d := range conf.Decisions {
		settings := d.Settings(conf.Simulation)
		validator.Decisions = append(validator.Decisions, validation.DecisionConfig{
			Name:             d.Name,
			Type:             d.Type,
			Active:           d.Active,
			Query:            d.Query,
			OptionCount:      len(d.OptionNames()),
			TimeHorizonYears: settings.TimeHorizonYears,
			SampleCount:      settings.SampleCount,
		})
	}

	return validator.ValidateAll()
}
