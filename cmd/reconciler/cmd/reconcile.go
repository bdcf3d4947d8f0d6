package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	authoritativeFile string
	externalFile      string
	outputFormat      string
	outputFile        string
	tolerance         float64
	showProgress      bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a ledger extract with externally derived invoice records",
	Long: `Reconcile compares an authoritative ledger extract with invoice records
derived from external source documents, identifying matched invoices,
amount discrepancies, and records missing on either side.

This command requires:
- An authoritative dataset file (JSON, from the ledger extraction)
- An external dataset file (JSON, from the document extraction)

Examples:
  # Basic reconciliation with a console report
  reconciler reconcile --authoritative-file ledger.json --external-file documents.json

  # Machine-readable output to a file
  reconciler reconcile -a ledger.json -e documents.json \
    --output-format json --output-file report.json

  # Looser amount tolerance, with progress logging
  reconciler reconcile -a ledger.json -e documents.json --tolerance 0.05 --progress`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&authoritativeFile, "authoritative-file", "a", "", "path to the authoritative dataset JSON file (required)")
	reconcileCmd.Flags().StringVarP(&externalFile, "external-file", "e", "", "path to the external dataset JSON file (required)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Matching configuration flags
	reconcileCmd.Flags().Float64VarP(&tolerance, "tolerance", "t", 0.01, "amount equality tolerance in currency units")

	// UI flags
	reconcileCmd.Flags().BoolVar(&showProgress, "progress", false, "log progress while loading large datasets")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("authoritative-file")
	reconcileCmd.MarkFlagRequired("external-file")

	// Bind flags to viper
	viper.BindPFlag("authoritative-file", reconcileCmd.Flags().Lookup("authoritative-file"))
	viper.BindPFlag("external-file", reconcileCmd.Flags().Lookup("external-file"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("tolerance", reconcileCmd.Flags().Lookup("tolerance"))
	viper.BindPFlag("progress", reconcileCmd.Flags().Lookup("progress"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	authoritativeFile = viper.GetString("authoritative-file")
	externalFile = viper.GetString("external-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	tolerance = viper.GetFloat64("tolerance")
	showProgress = viper.GetBool("progress")

	// Validate required flags
	if authoritativeFile == "" {
		return fmt.Errorf("authoritative-file is required")
	}
	if externalFile == "" {
		return fmt.Errorf("external-file is required")
	}

	// Validate file existence
	if err := validateFileExists(authoritativeFile, "authoritative dataset file"); err != nil {
		return err
	}
	if err := validateFileExists(externalFile, "external dataset file"); err != nil {
		return err
	}

	// Validate output format
	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	// Validate tolerance
	if tolerance < 0.0 {
		return fmt.Errorf("tolerance cannot be negative")
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Authoritative file: %s\n", authoritativeFile)
		fmt.Fprintf(os.Stderr, "External file: %s\n", externalFile)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	// Create reconciliation service
	service, err := reconciler.NewService(config.CreateServiceConfig(tolerance, showProgress))
	if err != nil {
		return err
	}

	// Perform reconciliation
	result, err := service.ReconcileDatasets(ctx, &reconciler.Request{
		AuthoritativeFile: authoritativeFile,
		ExternalFile:      externalFile,
	})
	if err != nil {
		return err
	}

	// Generate report
	reportGenerator, err := reporter.NewReportGenerator(config.CreateReportConfig(outputFormat))
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	// Determine output destination
	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := reportGenerator.GenerateReport(result.Outcome, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	// Show completion message
	if viper.GetBool("verbose") {
		summary := result.Outcome.Summary()
		fmt.Fprintf(os.Stderr, "\nReconciliation completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Processed %d authoritative and %d external records.\n",
			summary.TotalAuthoritative, summary.TotalExternal)
		fmt.Fprintf(os.Stderr, "Found %d matches, %d mismatches, %d missing externally, %d missing in the ledger.\n",
			summary.Matches, summary.Mismatches, summary.MissingExternalSide, summary.MissingAuthoritativeSide)
		if result.AuthoritativeStats.AmountFallbacks+result.ExternalStats.AmountFallbacks > 0 {
			fmt.Fprintf(os.Stderr, "Applied %d amount fallbacks during loading; review the warnings above.\n",
				result.AuthoritativeStats.AmountFallbacks+result.ExternalStats.AmountFallbacks)
		}
	}

	return nil
}
