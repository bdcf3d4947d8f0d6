// Package reconciler provides the high-level reconciliation workflow:
// loading the two datasets, running the matching engine, and folding
// the result into an outcome ready for reporting.
package reconciler

import (
	"context"

	"invoice-reconciliation-service/internal/loader"
	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	apperrors "invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Config holds the reconciliation service configuration.
type Config struct {
	// Tolerance is the amount-equality slack in currency units.
	Tolerance decimal.Decimal `json:"tolerance"`
	// ShowProgress enables progress logging during dataset loads.
	ShowProgress bool `json:"show_progress"`
}

// DefaultConfig returns the standard service configuration.
func DefaultConfig() *Config {
	return &Config{Tolerance: matcher.DefaultConfig().Tolerance}
}

// Validate checks the service configuration.
func (c *Config) Validate() error {
	if c.Tolerance.IsNegative() {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "tolerance", c.Tolerance.String(), nil)
	}
	return nil
}

// Service runs invoice reconciliations.
type Service struct {
	engine *matcher.Engine
	loader *loader.DatasetLoader
	logger logger.Logger
}

// NewService creates a reconciliation service. A nil config selects the
// defaults.
func NewService(config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	engine, err := matcher.NewEngine(&matcher.Config{Tolerance: config.Tolerance})
	if err != nil {
		return nil, apperrors.WrapIfNeeded(err, apperrors.CategoryConfiguration, apperrors.CodeInvalidConfig, "invalid matching configuration")
	}

	log := logger.WithComponent("reconciler")

	return &Service{
		engine: engine,
		loader: loader.NewDatasetLoader(&loader.Config{
			ShowProgress: config.ShowProgress,
			Logger:       log,
		}),
		logger: log,
	}, nil
}

// Reconcile pairs authoritative records against external records and
// returns the partitioned outcome. externalByVendor is an optional
// pre-computed grouping of external by normalized vendor; pass nil to
// derive it.
//
// The operation is pure: identical ordered inputs and configuration
// produce an identical outcome.
func (s *Service) Reconcile(authoritative, external []*models.InvoiceRecord, externalByVendor map[string][]*models.InvoiceRecord) *models.ReconciliationOutcome {
	result := s.engine.Match(authoritative, external, externalByVendor)
	outcome := matcher.Aggregate(result)

	s.logger.WithFields(logger.Fields{
		"authoritative":         outcome.TotalAuthoritative(),
		"external":              outcome.TotalExternal(),
		"matches":               len(outcome.Matches),
		"mismatches":            len(outcome.Mismatches),
		"missing_external":      len(outcome.MissingExternalSide),
		"missing_authoritative": len(outcome.MissingAuthoritativeSide),
		"match_rate":            outcome.MatchRate(),
	}).Info("Reconciliation completed")

	return outcome
}

// Request describes a file-driven reconciliation run.
type Request struct {
	// AuthoritativeFile is the ledger extract dataset.
	AuthoritativeFile string
	// ExternalFile is the document-derived dataset.
	ExternalFile string
}

// RunResult carries the outcome of a file-driven run together with the
// load statistics of both inputs.
type RunResult struct {
	Outcome            *models.ReconciliationOutcome
	AuthoritativeStats loader.LoadStats
	ExternalStats      loader.LoadStats
}

// ReconcileDatasets loads both dataset files and reconciles them. The
// external file's own vendor grouping is used when it carries one.
func (s *Service) ReconcileDatasets(ctx context.Context, request *Request) (*RunResult, error) {
	if request == nil || request.AuthoritativeFile == "" {
		return nil, apperrors.ConfigurationError(apperrors.CodeMissingConfig, "authoritative-file", nil, nil)
	}
	if request.ExternalFile == "" {
		return nil, apperrors.ConfigurationError(apperrors.CodeMissingConfig, "external-file", nil, nil)
	}

	authoritative, err := s.loader.LoadFile(ctx, request.AuthoritativeFile, models.SideAuthoritative)
	if err != nil {
		return nil, err
	}

	external, err := s.loader.LoadFile(ctx, request.ExternalFile, models.SideExternal)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, apperrors.ReconciliationError(apperrors.CodeCancelled, "reconciliation", err)
	}

	result := &RunResult{
		AuthoritativeStats: authoritative.Stats,
		ExternalStats:      external.Stats,
	}

	err = logger.TimedOperation("match invoices", s.logger, func() error {
		result.Outcome = s.Reconcile(authoritative.Records, external.Records, external.ByVendor)
		return nil
	})
	if err != nil {
		return nil, apperrors.ReconciliationError(apperrors.CodeMatchingFailed, "reconciliation", err)
	}

	return result, nil
}
