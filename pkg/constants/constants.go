// Package constants provides shared constants for the spend-allocator application.
package constants

// Solver defaults
const (
	// DefaultTolerance is the default objective-change convergence tolerance
	DefaultTolerance = 1e-9

	// DefaultConstraintTolerance is the default feasibility tolerance for constraints
	DefaultConstraintTolerance = 1e-8

	// DefaultMaxIterations is the default iteration cap for the minimizer
	DefaultMaxIterations = 1000
)

// Response model defaults
const (
	// DefaultMaxLag is the default carry-over window length in periods
	DefaultMaxLag = 4

	// DefaultNumDays is the default length of the planning horizon in days
	DefaultNumDays = 30
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Comparison constants
const (
	// BudgetTolerance is the tolerance for comparing allocated totals against the budget
	BudgetTolerance = 1e-6

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)
