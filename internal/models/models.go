// Package models defines the domain entities for invoice reconciliation:
// invoice records from both sides, field-level discrepancies, matched
// pairs, and the complete reconciliation outcome.
//
// Monetary fields are represented as shopspring decimals exclusively;
// binary floating point never touches an amount. All entities are
// constructed fresh per reconciliation run and are treated as immutable
// once produced.
package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side identifies which dataset an invoice record was observed in.
type Side string

const (
	// SideAuthoritative marks records from the internal ledger extract,
	// treated as ground truth for "total counted" purposes.
	SideAuthoritative Side = "AUTHORITATIVE"
	// SideExternal marks records derived from external source documents.
	SideExternal Side = "EXTERNAL"
)

// String returns the string representation of Side
func (s Side) String() string {
	return string(s)
}

// IsValid checks if the side is one of the two known datasets
func (s Side) IsValid() bool {
	return s == SideAuthoritative || s == SideExternal
}

// SourceType returns the serialized source label for the side.
func (s Side) SourceType() string {
	if s == SideAuthoritative {
		return "ledger"
	}
	return "document"
}

// DefaultCurrency is assumed when a record carries no currency code.
const DefaultCurrency = "EUR"

// InvoiceRecord is one invoice observation from one side of the
// reconciliation. Optional fields are pointers; absence is meaningful
// and survives serialization as null.
type InvoiceRecord struct {
	InvoiceNumber    string
	Vendor           string
	VendorNormalized string
	TotalAmount      decimal.Decimal
	Currency         string
	InvoiceDate      string
	NetAmount        *decimal.Decimal
	VatAmount        *decimal.Decimal
	Customer         string
	Side             Side
	SourceFile       string

	// ExtractionConfidence is carried through from the upstream
	// extraction pipeline, never computed here.
	ExtractionConfidence *int
}

// NewInvoiceRecord creates an InvoiceRecord with the currency defaulted
// and the side set.
func NewInvoiceRecord(invoiceNumber, vendor, vendorNormalized string, total decimal.Decimal, side Side) *InvoiceRecord {
	return &InvoiceRecord{
		InvoiceNumber:    invoiceNumber,
		Vendor:           vendor,
		VendorNormalized: vendorNormalized,
		TotalAmount:      total,
		Currency:         DefaultCurrency,
		Side:             side,
	}
}

// Validate performs basic sanity checks on the record. Reconciliation
// itself accepts any record shape; this is for collaborator layers that
// want to reject obviously broken input early.
func (r *InvoiceRecord) Validate() error {
	if strings.TrimSpace(r.VendorNormalized) == "" {
		return fmt.Errorf("invoice record has no normalized vendor")
	}

	if !r.Side.IsValid() {
		return fmt.Errorf("invalid record side: %q", r.Side)
	}

	return nil
}

// String returns a string representation of the InvoiceRecord
func (r *InvoiceRecord) String() string {
	return fmt.Sprintf("InvoiceRecord{Number: %s, Vendor: %s, Total: %s %s, Side: %s}",
		r.InvoiceNumber, r.VendorNormalized, r.TotalAmount.StringFixed(2), r.Currency, r.Side)
}

// invoiceRecordJSON is the serialization contract for downstream
// reporting. Amounts are emitted as fixed two-decimal strings so no
// precision is lost on the way out.
type invoiceRecordJSON struct {
	InvoiceNumber    string  `json:"invoice_number"`
	VendorNormalized string  `json:"vendor_normalized"`
	Vendor           string  `json:"vendor"`
	TotalAmount      string  `json:"total_amount"`
	Currency         string  `json:"currency"`
	InvoiceDate      *string `json:"invoice_date"`
	SourceType       string  `json:"source_type"`
	SourceFile       string  `json:"source_file"`
	NetAmount        *string `json:"net_amount"`
	VatAmount        *string `json:"vat_amount"`
	Customer         *string `json:"customer"`
	Confidence       *int    `json:"confidence"`
}

// MarshalJSON implements custom JSON marshaling for InvoiceRecord
func (r *InvoiceRecord) MarshalJSON() ([]byte, error) {
	out := invoiceRecordJSON{
		InvoiceNumber:    r.InvoiceNumber,
		VendorNormalized: r.VendorNormalized,
		Vendor:           r.Vendor,
		TotalAmount:      r.TotalAmount.StringFixed(2),
		Currency:         r.Currency,
		SourceType:       r.Side.SourceType(),
		SourceFile:       r.SourceFile,
		Confidence:       r.ExtractionConfidence,
	}

	if r.InvoiceDate != "" {
		out.InvoiceDate = &r.InvoiceDate
	}
	if r.NetAmount != nil {
		s := r.NetAmount.StringFixed(2)
		out.NetAmount = &s
	}
	if r.VatAmount != nil {
		s := r.VatAmount.StringFixed(2)
		out.VatAmount = &s
	}
	if r.Customer != "" {
		out.Customer = &r.Customer
	}

	return json.Marshal(out)
}

// GroupByVendor buckets records by their normalized vendor name. Order
// within a bucket follows input order, which the matching contract
// depends on.
func GroupByVendor(records []*InvoiceRecord) map[string][]*InvoiceRecord {
	grouped := make(map[string][]*InvoiceRecord)
	for _, rec := range records {
		grouped[rec.VendorNormalized] = append(grouped[rec.VendorNormalized], rec)
	}
	return grouped
}

// DiscrepancyKind labels the field a discrepancy was detected on.
type DiscrepancyKind string

const (
	// DiscrepancyAmount flags a total-amount inconsistency between the
	// two sides of a matched pair.
	DiscrepancyAmount DiscrepancyKind = "amount"
)

// Discrepancy is one field-level mismatch inside a matched pair. Each
// kind carries its own typed payload; new kinds (date, currency) add new
// implementations without touching the pairing algorithm.
type Discrepancy interface {
	Kind() DiscrepancyKind
	json.Marshaler
}

// AmountDiscrepancy reports a total-amount mismatch. Magnitude is the
// raw absolute difference used for reporting.
type AmountDiscrepancy struct {
	Authoritative decimal.Decimal
	External      decimal.Decimal
	Magnitude     decimal.Decimal
}

// Kind implements Discrepancy
func (AmountDiscrepancy) Kind() DiscrepancyKind {
	return DiscrepancyAmount
}

// MarshalJSON implements the discrepancy serialization contract
func (d AmountDiscrepancy) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type               DiscrepancyKind `json:"type"`
		AuthoritativeValue string          `json:"authoritative_value"`
		ExternalValue      string          `json:"external_value"`
		Difference         string          `json:"difference"`
	}{
		Type:               DiscrepancyAmount,
		AuthoritativeValue: d.Authoritative.StringFixed(2),
		ExternalValue:      d.External.StringFixed(2),
		Difference:         d.Magnitude.StringFixed(2),
	})
}

// String returns a short human-readable form of the discrepancy
func (d AmountDiscrepancy) String() string {
	return fmt.Sprintf("amount: authoritative=%s, external=%s, diff=%s",
		d.Authoritative.StringFixed(2), d.External.StringFixed(2), d.Magnitude.StringFixed(2))
}

// MatchedPair is the result of pairing one authoritative record with
// zero-or-one external record. External is nil only while a record sits
// in a missing bucket; true pairs always carry both sides.
type MatchedPair struct {
	Authoritative *InvoiceRecord
	External      *InvoiceRecord
	Confidence    float64
	Discrepancies []Discrepancy
}

// IsPerfectMatch reports whether the pair has no discrepancies.
func (p *MatchedPair) IsPerfectMatch() bool {
	return len(p.Discrepancies) == 0
}

// HasExternal reports whether an external record was found for the pair.
func (p *MatchedPair) HasExternal() bool {
	return p.External != nil
}

// MarshalJSON implements custom JSON marshaling for MatchedPair
func (p *MatchedPair) MarshalJSON() ([]byte, error) {
	discrepancies := p.Discrepancies
	if discrepancies == nil {
		discrepancies = []Discrepancy{}
	}

	return json.Marshal(struct {
		Authoritative *InvoiceRecord `json:"authoritative"`
		External      *InvoiceRecord `json:"external"`
		Confidence    float64        `json:"confidence"`
		Discrepancies []Discrepancy  `json:"discrepancies"`
	}{
		Authoritative: p.Authoritative,
		External:      p.External,
		Confidence:    p.Confidence,
		Discrepancies: discrepancies,
	})
}

// ReconciliationOutcome is the full result of one reconciliation run.
//
// Invariants maintained by the matching engine and aggregator:
//   - every external record appears in at most one MatchedPair,
//   - len(Matches) + len(Mismatches) + len(MissingExternalSide) equals
//     the authoritative input count,
//   - every external input lands in exactly one of {a MatchedPair,
//     MissingAuthoritativeSide}.
type ReconciliationOutcome struct {
	Matches                  []*MatchedPair
	Mismatches               []*MatchedPair
	MissingExternalSide      []*InvoiceRecord
	MissingAuthoritativeSide []*InvoiceRecord
}

// NewReconciliationOutcome returns an outcome with all buckets empty but
// non-nil, so an empty run still serializes to empty lists.
func NewReconciliationOutcome() *ReconciliationOutcome {
	return &ReconciliationOutcome{
		Matches:                  []*MatchedPair{},
		Mismatches:               []*MatchedPair{},
		MissingExternalSide:      []*InvoiceRecord{},
		MissingAuthoritativeSide: []*InvoiceRecord{},
	}
}

// TotalAuthoritative returns the number of authoritative records the
// run consumed.
func (o *ReconciliationOutcome) TotalAuthoritative() int {
	return len(o.Matches) + len(o.Mismatches) + len(o.MissingExternalSide)
}

// TotalExternal returns the number of external records the run consumed.
func (o *ReconciliationOutcome) TotalExternal() int {
	return len(o.Matches) + len(o.Mismatches) + len(o.MissingAuthoritativeSide)
}

// MatchRate is the percentage of authoritative records that matched
// perfectly. Zero when there was no authoritative input.
func (o *ReconciliationOutcome) MatchRate() float64 {
	total := o.TotalAuthoritative()
	if total == 0 {
		return 0.0
	}
	return float64(len(o.Matches)) / float64(total) * 100
}

// OutcomeSummary is the aggregate view of a reconciliation outcome.
type OutcomeSummary struct {
	TotalAuthoritative       int     `json:"total_authoritative"`
	TotalExternal            int     `json:"total_external"`
	Matches                  int     `json:"matches"`
	Mismatches               int     `json:"mismatches"`
	MissingExternalSide      int     `json:"missing_external_side"`
	MissingAuthoritativeSide int     `json:"missing_authoritative_side"`
	MatchRate                float64 `json:"match_rate"`
}

// Summary computes the aggregate counters for the outcome.
func (o *ReconciliationOutcome) Summary() OutcomeSummary {
	return OutcomeSummary{
		TotalAuthoritative:       o.TotalAuthoritative(),
		TotalExternal:            o.TotalExternal(),
		Matches:                  len(o.Matches),
		Mismatches:               len(o.Mismatches),
		MissingExternalSide:      len(o.MissingExternalSide),
		MissingAuthoritativeSide: len(o.MissingAuthoritativeSide),
		MatchRate:                o.MatchRate(),
	}
}

// MarshalJSON implements the outcome serialization contract
func (o *ReconciliationOutcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Summary                  OutcomeSummary   `json:"summary"`
		Matches                  []*MatchedPair   `json:"matches"`
		Mismatches               []*MatchedPair   `json:"mismatches"`
		MissingExternalSide      []*InvoiceRecord `json:"missing_external_side"`
		MissingAuthoritativeSide []*InvoiceRecord `json:"missing_authoritative_side"`
	}{
		Summary:                  o.Summary(),
		Matches:                  orEmptyPairs(o.Matches),
		Mismatches:               orEmptyPairs(o.Mismatches),
		MissingExternalSide:      orEmptyRecords(o.MissingExternalSide),
		MissingAuthoritativeSide: orEmptyRecords(o.MissingAuthoritativeSide),
	})
}

func orEmptyPairs(pairs []*MatchedPair) []*MatchedPair {
	if pairs == nil {
		return []*MatchedPair{}
	}
	return pairs
}

func orEmptyRecords(records []*InvoiceRecord) []*InvoiceRecord {
	if records == nil {
		return []*InvoiceRecord{}
	}
	return records
}
