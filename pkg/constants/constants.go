// Package constants provides shared constants for the decision simulator.
package constants

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Run configuration defaults
const (
	// DefaultTimeHorizonYears is used when neither the decision nor the
	// simulation section sets a horizon.
	DefaultTimeHorizonYears = 5

	// DefaultSampleCount is the default number of Monte Carlo trials.
	DefaultSampleCount = 1000

	// NoisySampleCount is the trial count below which summaries are flagged
	// as statistically noisy.
	NoisySampleCount = 30

	// LongHorizonYears is the horizon above which a warning is raised.
	LongHorizonYears = 30
)

// Relocation defaults
const (
	// DefaultMonthlyCost applies when no cost-of-living entry exists for a city.
	DefaultMonthlyCost = 2000.0

	// DefaultEffectiveTaxRate applies when no tax entry exists for a city.
	DefaultEffectiveTaxRate = 0.30

	// DefaultRelocationSalary applies when user_context.salary is absent.
	DefaultRelocationSalary = 80000.0

	// SalaryGrowthRate is the fixed deterministic yearly salary growth.
	SalaryGrowthRate = 0.02

	// SalaryGrowthStdDev is the per-year stochastic salary growth spread.
	SalaryGrowthStdDev = 0.02

	// InflationRate is the fixed deterministic yearly cost inflation.
	InflationRate = 0.03

	// InflationStdDev is the per-year stochastic inflation spread.
	InflationStdDev = 0.01
)

// Purchase defaults
const (
	// DefaultPurchaseBudget applies when budget is absent.
	DefaultPurchaseBudget = 50000.0

	// PurchaseCostBase and PurchaseCostStep spread option costs as
	// budget * (base + step*i).
	PurchaseCostBase = 0.8
	PurchaseCostStep = 0.2

	// DefaultMaintenanceRate is the flat yearly maintenance share of the initial cost.
	DefaultMaintenanceRate = 0.05

	// DefaultDepreciationRate is the compounding yearly depreciation.
	DefaultDepreciationRate = 0.15
)

// Job defaults
const (
	// JobBaseSalary and JobSalaryStep give option i a salary of base + step*i.
	JobBaseSalary = 70000.0
	JobSalaryStep = 15000.0

	// JobBaseGrowth and JobGrowthStep give option i a growth of base + step*i.
	JobBaseGrowth = 0.05
	JobGrowthStep = 0.02

	// JobGrowthStdDev is the per-year stochastic growth spread.
	JobGrowthStdDev = 0.03
)

// Investment defaults
const (
	// DefaultInvestmentAmount applies when amount is absent.
	DefaultInvestmentAmount = 10000.0

	// DefaultExpectedReturn and DefaultVolatility apply to unknown options.
	DefaultExpectedReturn = 0.06
	DefaultVolatility     = 0.12
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the machine-readable JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultDatabasePath is the default SQLite file for run records
	DefaultDatabasePath = "decision-simulator.db"

	// DefaultRunTimeoutSeconds is the default wall-clock budget for one run
	DefaultRunTimeoutSeconds = 120

	// DefaultCacheTTLSeconds is the default external-data cache lifetime (24 hours)
	DefaultCacheTTLSeconds = 86400

	// MetricsNamespace prefixes every exported Prometheus metric
	MetricsNamespace = "decision_simulator"
)
