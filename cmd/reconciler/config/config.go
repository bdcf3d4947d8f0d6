// Package config builds component configurations from CLI inputs.
package config

import (
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/reporter"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// CreateServiceConfig creates a reconciliation service configuration
// from CLI flag values.
func CreateServiceConfig(tolerance float64, showProgress bool) *reconciler.Config {
	config := reconciler.DefaultConfig()

	config.Tolerance = decimal.NewFromFloat(tolerance)
	config.ShowProgress = showProgress

	return config
}

// CreateReportConfig creates a report configuration for the specified
// output format.
func CreateReportConfig(format string) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
		config.IncludeMismatches = true
		config.IncludeMissing = true
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
		config.CSVHeaders = true
		config.CSVDelimiter = ','
		config.IncludeMatches = true
		config.IncludeMismatches = true
		config.IncludeMissing = true
	}

	return config
}

// CreateLoggerConfig creates a logger configuration honoring the
// verbose flag.
func CreateLoggerConfig(verbose bool) *logger.Config {
	if verbose {
		return logger.DebugConfig()
	}
	return logger.DefaultConfig()
}
