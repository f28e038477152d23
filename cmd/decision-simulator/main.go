package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Artem7898/ai-decision-simulator/internal/config"
	"github.com/Artem7898/ai-decision-simulator/internal/logging"
	"github.com/Artem7898/ai-decision-simulator/internal/marketdata"
	"github.com/Artem7898/ai-decision-simulator/internal/projection"
	"github.com/Artem7898/ai-decision-simulator/internal/runner"
	"github.com/Artem7898/ai-decision-simulator/pkg/adapters"
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"github.com/Artem7898/ai-decision-simulator/pkg/output"
	"github.com/Artem7898/ai-decision-simulator/pkg/validation"
	"go.uber.org/zap"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	// Initialize logging based on config and CLI override
	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}

	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	// Validate configuration and display any warnings
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	requests, err := adapters.ConfigurationToRequests(logger, *conf)
	if err != nil {
		logger.Fatal("failed to build simulation requests",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	// Reference data is static, so lookups are cached for the life of the process.
	provider := marketdata.NewCachingProvider(logger, marketdata.NewReferenceProvider(),
		marketdata.NewMemoryCache(), 0, nil)

	svc := runner.NewService(logger, runner.Options{
		Provider: provider,
		Defaults: projection.RunConfig{
			TimeHorizonYears: conf.Simulation.TimeHorizonYears,
			SampleCount:      conf.Simulation.SampleCount,
		},
	})

	results, runErr := svc.ExecuteBatch(context.Background(), requests)

	// Handle output.
	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(os.Stdout, results)
	case constants.OutputFormatCSV:
		output.CsvFormat(os.Stdout, results)
	case constants.OutputFormatJSON:
		if err := output.JSONFormat(os.Stdout, results); err != nil {
			logger.Fatal("failed to write results",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}

	if runErr != nil {
		logger.Fatal("one or more decisions failed to simulate",
			zap.String("op", "main"),
			zap.Error(runErr),
		)
	}
}
