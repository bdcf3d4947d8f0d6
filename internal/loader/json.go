// Package loader reads invoice datasets produced by the upstream
// extraction pipelines and converts them into domain records.
//
// A dataset file is a JSON document with a flat "all_invoices" list and
// an optional "by_vendor" grouping:
//
//	{
//	  "all_invoices": [ {invoice fields...}, ... ],
//	  "by_vendor": { "VENDOR": {"invoices": [...]}, ... }
//	}
//
// Monetary fields are EUR-denominated ("total_amount_eur" and friends).
// Amount parsing is fail-soft: a malformed amount becomes 0.00 with a
// warning and a counter bump, never a load failure. Structural problems
// (unreadable file, invalid JSON, no invoice list) fail the load.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/rules"
	apperrors "invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// cancelCheckInterval is how many records are converted between context
// cancellation checks.
const cancelCheckInterval = 1000

// Config controls dataset loading behavior.
type Config struct {
	// ShowProgress enables interval progress logging for large files.
	ShowProgress bool
	Logger       logger.Logger
}

// DatasetLoader reads and converts invoice dataset files.
type DatasetLoader struct {
	logger       logger.Logger
	showProgress bool
}

// NewDatasetLoader creates a loader. A nil config selects defaults.
func NewDatasetLoader(config *Config) *DatasetLoader {
	if config == nil {
		config = &Config{}
	}

	log := config.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	return &DatasetLoader{
		logger:       log.WithComponent("loader"),
		showProgress: config.ShowProgress,
	}
}

// Dataset is the loaded, domain-shaped form of one dataset file.
type Dataset struct {
	Records []*models.InvoiceRecord
	// ByVendor is the grouping carried in the file when present,
	// otherwise derived from Records.
	ByVendor map[string][]*models.InvoiceRecord
	Stats    LoadStats
}

// LoadStats summarizes data quality findings from one load.
type LoadStats struct {
	SourceFile        string `json:"source_file"`
	TotalRecords      int    `json:"total_records"`
	AmountFallbacks   int    `json:"amount_fallbacks"`
	NormalizedVendors int    `json:"normalized_vendors"`
	PreGroupedVendors int    `json:"pre_grouped_vendors"`
}

// flexAmount captures an amount field as text regardless of whether the
// pipeline wrote it as a JSON number, a quoted string, or garbage. The
// decision whether the text is a usable amount belongs to decimal
// parsing, not to JSON decoding.
type flexAmount string

func (a *flexAmount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = flexAmount(s)
		return nil
	}

	trimmed := string(bytes.TrimSpace(data))
	if trimmed == "null" {
		*a = ""
		return nil
	}
	*a = flexAmount(trimmed)
	return nil
}

// rawInvoice mirrors one invoice object as the extraction pipelines
// write it.
type rawInvoice struct {
	InvoiceNumber    string     `json:"invoice_number"`
	VendorNormalized string     `json:"vendor_normalized"`
	Vendor           string     `json:"vendor"`
	TotalAmount      flexAmount `json:"total_amount_eur"`
	Currency         string     `json:"currency"`
	InvoiceDate      string     `json:"invoice_date"`
	SourceFile       string     `json:"source_file"`
	Filename         string     `json:"filename"`
	NetAmount        flexAmount `json:"net_amount_eur"`
	VatAmount        flexAmount `json:"vat_amount_eur"`
	Customer         string     `json:"customer"`
	Confidence       *int       `json:"confidence"`
}

type rawVendorGroup struct {
	Invoices []rawInvoice `json:"invoices"`
}

type rawDataset struct {
	AllInvoices []rawInvoice              `json:"all_invoices"`
	ByVendor    map[string]rawVendorGroup `json:"by_vendor"`
}

// LoadFile reads one dataset file and converts every invoice to a
// domain record tagged with the given side.
func (l *DatasetLoader) LoadFile(ctx context.Context, path string, side models.Side) (*Dataset, error) {
	if !side.IsValid() {
		return nil, apperrors.ValidationError(apperrors.CodeInvalidSide, "side", string(side), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, apperrors.FileError(apperrors.CodeFilePermission, path, err)
		}
		return nil, apperrors.FileError(apperrors.CodeFileCorrupted, path, err)
	}

	var raw rawDataset
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.DatasetError(apperrors.CodeInvalidJSON, path, err.Error(), err)
	}

	if raw.AllInvoices == nil {
		return nil, apperrors.DatasetError(apperrors.CodeInvalidDataset, path, "missing all_invoices list", nil)
	}

	dataset, err := l.convert(ctx, path, &raw, side)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logger.Fields{
		"file":             path,
		"side":             side.String(),
		"records":          dataset.Stats.TotalRecords,
		"amount_fallbacks": dataset.Stats.AmountFallbacks,
		"vendors":          len(dataset.ByVendor),
	}).Info("Dataset loaded")

	return dataset, nil
}

func (l *DatasetLoader) convert(ctx context.Context, path string, raw *rawDataset, side models.Side) (*Dataset, error) {
	dataset := &Dataset{
		Records: make([]*models.InvoiceRecord, 0, len(raw.AllInvoices)),
		Stats:   LoadStats{SourceFile: path},
	}

	var tracker *logger.ProgressTracker
	if l.showProgress {
		tracker = logger.NewProgressTracker(logger.ProgressConfig{
			Operation: "load " + path,
			Total:     int64(len(raw.AllInvoices)),
			Logger:    l.logger,
		})
	}

	for i := range raw.AllInvoices {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				if tracker != nil {
					tracker.CompleteWithError(err)
				}
				return nil, apperrors.ReconciliationError(apperrors.CodeCancelled, "dataset load", err)
			}
		}

		record := l.convertRecord(&raw.AllInvoices[i], side, &dataset.Stats)
		dataset.Records = append(dataset.Records, record)
		if tracker != nil {
			tracker.Increment()
		}
	}
	if tracker != nil {
		tracker.Complete()
	}

	dataset.Stats.TotalRecords = len(dataset.Records)

	if len(raw.ByVendor) > 0 {
		dataset.ByVendor = make(map[string][]*models.InvoiceRecord, len(raw.ByVendor))
		for vendor, group := range raw.ByVendor {
			records := make([]*models.InvoiceRecord, 0, len(group.Invoices))
			for i := range group.Invoices {
				// Grouping stats are already counted from the flat list.
				var scratch LoadStats
				records = append(records, l.convertRecord(&group.Invoices[i], side, &scratch))
			}
			dataset.ByVendor[rules.NormalizeVendor(vendor)] = records
		}
		dataset.Stats.PreGroupedVendors = len(dataset.ByVendor)
	} else {
		dataset.ByVendor = models.GroupByVendor(dataset.Records)
	}

	return dataset, nil
}

// convertRecord maps one raw invoice onto a domain record. Amounts fall
// soft to 0.00, vendor normalization fills in when the pipeline left it
// blank.
func (l *DatasetLoader) convertRecord(raw *rawInvoice, side models.Side, stats *LoadStats) *models.InvoiceRecord {
	vendorNormalized := raw.VendorNormalized
	if vendorNormalized == "" {
		vendorNormalized = rules.NormalizeVendor(raw.Vendor)
		if vendorNormalized != "" {
			stats.NormalizedVendors++
		}
	}

	total, ok := l.parseAmount(raw.TotalAmount)
	if !ok {
		stats.AmountFallbacks++
		l.logger.WithFields(logger.Fields{
			"invoice_number": raw.InvoiceNumber,
			"vendor":         vendorNormalized,
			"raw_amount":     string(raw.TotalAmount),
		}).Warn("Invalid total amount, falling back to 0.00")
	}

	record := models.NewInvoiceRecord(raw.InvoiceNumber, raw.Vendor, vendorNormalized, total, side)

	if raw.Currency != "" {
		record.Currency = raw.Currency
	}
	record.InvoiceDate = raw.InvoiceDate
	record.Customer = raw.Customer
	record.ExtractionConfidence = raw.Confidence

	// Document-derived files carry "filename", ledger extracts carry
	// "source_file".
	record.SourceFile = raw.Filename
	if record.SourceFile == "" {
		record.SourceFile = raw.SourceFile
	}

	if net, ok := l.parseOptionalAmount(raw.NetAmount); ok {
		record.NetAmount = &net
	}
	if vat, ok := l.parseOptionalAmount(raw.VatAmount); ok {
		record.VatAmount = &vat
	}

	return record
}

// parseAmount converts a required amount. Reports false when the input
// was unusable and the 0.00 fallback applied.
func (l *DatasetLoader) parseAmount(raw flexAmount) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Zero.Round(2), false
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero.Round(2), false
	}
	return rules.Quantize(d), true
}

// parseOptionalAmount converts an optional amount. Absent or malformed
// values are simply dropped.
func (l *DatasetLoader) parseOptionalAmount(raw flexAmount) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return rules.Quantize(d), true
}
