// Package reporter renders reconciliation outcomes for people and
// machines. Three formats are supported: a console summary for
// interactive runs, JSON preserving the full serialization contract of
// the outcome, and CSV for spreadsheet review.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"invoice-reconciliation-service/internal/models"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// Match-rate bands for the overall run status line.
const (
	excellentRateThreshold = 95.0
	goodRateThreshold      = 85.0
)

// StatusFor maps a match rate percentage onto the run status line shown
// in reports.
func StatusFor(matchRate float64) string {
	switch {
	case matchRate >= excellentRateThreshold:
		return "EXCELLENT - Minimal discrepancies"
	case matchRate >= goodRateThreshold:
		return "GOOD - Some review needed"
	default:
		return "ATTENTION REQUIRED - Significant discrepancies"
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeMatches    bool `json:"include_matches"`
	IncludeMismatches bool `json:"include_mismatches"`
	IncludeMissing    bool `json:"include_missing"`

	// MaxListedRecords caps each console section; the remainder is
	// summarized as a count. Zero means unlimited.
	MaxListedRecords int `json:"max_listed_records"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:            FormatConsole,
		IncludeMatches:    false,
		IncludeMismatches: true,
		IncludeMissing:    true,
		MaxListedRecords:  20,
		CSVDelimiter:      ',',
		CSVHeaders:        true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.MaxListedRecords < 0 {
		return fmt.Errorf("max listed records cannot be negative: %d", c.MaxListedRecords)
	}

	return nil
}

// ReportGenerator renders reconciliation outcomes in the configured
// format.
type ReportGenerator struct {
	config *ReportConfig
	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
		now:    time.Now,
	}, nil
}

// GenerateReport renders the outcome and writes it to the provided writer
func (rg *ReportGenerator) GenerateReport(outcome *models.ReconciliationOutcome, writer io.Writer) error {
	if outcome == nil {
		return fmt.Errorf("reconciliation outcome cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(outcome, writer)
	case FormatJSON:
		return rg.generateJSONReport(outcome, writer)
	case FormatCSV:
		return rg.generateCSVReport(outcome, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport renders a human-readable summary
func (rg *ReportGenerator) generateConsoleReport(outcome *models.ReconciliationOutcome, writer io.Writer) error {
	summary := outcome.Summary()

	fmt.Fprintf(writer, "INVOICE RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n\n", rg.now().Format(time.RFC3339))

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Authoritative records:   %d\n", summary.TotalAuthoritative)
	fmt.Fprintf(writer, "External records:        %d\n", summary.TotalExternal)
	fmt.Fprintf(writer, "Matches:                 %d\n", summary.Matches)
	fmt.Fprintf(writer, "Mismatches:              %d\n", summary.Mismatches)
	fmt.Fprintf(writer, "Missing external side:   %d\n", summary.MissingExternalSide)
	fmt.Fprintf(writer, "Missing authoritative:   %d\n", summary.MissingAuthoritativeSide)
	fmt.Fprintf(writer, "Match rate:              %.1f%%\n", summary.MatchRate)
	fmt.Fprintf(writer, "Status:                  %s\n\n", StatusFor(summary.MatchRate))

	if rg.config.IncludeMatches && len(outcome.Matches) > 0 {
		fmt.Fprintf(writer, "=== MATCHES ===\n")
		rg.printPairs(outcome.Matches, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeMismatches && len(outcome.Mismatches) > 0 {
		fmt.Fprintf(writer, "=== MISMATCHES ===\n")
		rg.printPairs(outcome.Mismatches, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeMissing && len(outcome.MissingExternalSide) > 0 {
		fmt.Fprintf(writer, "=== MISSING ON EXTERNAL SIDE ===\n")
		rg.printRecords(outcome.MissingExternalSide, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeMissing && len(outcome.MissingAuthoritativeSide) > 0 {
		fmt.Fprintf(writer, "=== MISSING ON AUTHORITATIVE SIDE ===\n")
		rg.printRecords(outcome.MissingAuthoritativeSide, writer)
		fmt.Fprintf(writer, "\n")
	}

	return nil
}

func (rg *ReportGenerator) printPairs(pairs []*models.MatchedPair, writer io.Writer) {
	limit := rg.limit(len(pairs))

	for _, pair := range pairs[:limit] {
		fmt.Fprintf(writer, "  %s | %s | %s %s vs %s %s | confidence %.1f\n",
			pair.Authoritative.InvoiceNumber,
			pair.Authoritative.VendorNormalized,
			pair.Authoritative.TotalAmount.StringFixed(2),
			pair.Authoritative.Currency,
			pair.External.TotalAmount.StringFixed(2),
			pair.External.Currency,
			pair.Confidence,
		)
		for _, disc := range pair.Discrepancies {
			fmt.Fprintf(writer, "    - %s\n", disc)
		}
	}

	if rest := len(pairs) - limit; rest > 0 {
		fmt.Fprintf(writer, "  ... and %d more\n", rest)
	}
}

func (rg *ReportGenerator) printRecords(records []*models.InvoiceRecord, writer io.Writer) {
	limit := rg.limit(len(records))

	for _, record := range records[:limit] {
		fmt.Fprintf(writer, "  %s | %s | %s %s | %s\n",
			record.InvoiceNumber,
			record.VendorNormalized,
			record.TotalAmount.StringFixed(2),
			record.Currency,
			record.SourceFile,
		)
	}

	if rest := len(records) - limit; rest > 0 {
		fmt.Fprintf(writer, "  ... and %d more\n", rest)
	}
}

func (rg *ReportGenerator) limit(n int) int {
	if rg.config.MaxListedRecords > 0 && n > rg.config.MaxListedRecords {
		return rg.config.MaxListedRecords
	}
	return n
}

// generateJSONReport emits the outcome's full serialized form.
func (rg *ReportGenerator) generateJSONReport(outcome *models.ReconciliationOutcome, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(outcome)
}

// generateCSVReport renders one row per record or pair for spreadsheet
// review.
func (rg *ReportGenerator) generateCSVReport(outcome *models.ReconciliationOutcome, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Type",
			"Invoice_Number",
			"Vendor",
			"Authoritative_Amount",
			"External_Amount",
			"Difference",
			"Confidence",
			"Source_File",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	writePair := func(kind string, pair *models.MatchedPair) error {
		difference := ""
		for _, disc := range pair.Discrepancies {
			if amount, ok := disc.(models.AmountDiscrepancy); ok {
				difference = amount.Magnitude.StringFixed(2)
			}
		}
		return csvWriter.Write([]string{
			kind,
			pair.Authoritative.InvoiceNumber,
			pair.Authoritative.VendorNormalized,
			pair.Authoritative.TotalAmount.StringFixed(2),
			pair.External.TotalAmount.StringFixed(2),
			difference,
			fmt.Sprintf("%.1f", pair.Confidence),
			pair.External.SourceFile,
		})
	}

	writeRecord := func(kind string, record *models.InvoiceRecord) error {
		authAmount, extAmount := record.TotalAmount.StringFixed(2), ""
		if record.Side == models.SideExternal {
			authAmount, extAmount = "", record.TotalAmount.StringFixed(2)
		}
		return csvWriter.Write([]string{
			kind,
			record.InvoiceNumber,
			record.VendorNormalized,
			authAmount,
			extAmount,
			"",
			"",
			record.SourceFile,
		})
	}

	if rg.config.IncludeMatches {
		for _, pair := range outcome.Matches {
			if err := writePair("Match", pair); err != nil {
				return fmt.Errorf("failed to write match row: %w", err)
			}
		}
	}

	if rg.config.IncludeMismatches {
		for _, pair := range outcome.Mismatches {
			if err := writePair("Mismatch", pair); err != nil {
				return fmt.Errorf("failed to write mismatch row: %w", err)
			}
		}
	}

	if rg.config.IncludeMissing {
		for _, record := range outcome.MissingExternalSide {
			if err := writeRecord("Missing External", record); err != nil {
				return fmt.Errorf("failed to write missing-external row: %w", err)
			}
		}
		for _, record := range outcome.MissingAuthoritativeSide {
			if err := writeRecord("Missing Authoritative", record); err != nil {
				return fmt.Errorf("failed to write missing-authoritative row: %w", err)
			}
		}
	}

	return nil
}

// UpdateConfiguration replaces the generator configuration after
// validating it.
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if config == nil {
		return fmt.Errorf("report configuration cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}
	rg.config = config
	return nil
}
