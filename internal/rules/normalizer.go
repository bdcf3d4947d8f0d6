// Package rules contains the pure matching rules for invoice
// reconciliation: identifier normalization, tolerance-aware amount
// comparison, fuzzy vendor similarity, and confidence scoring.
//
// Everything in this package is stateless and side-effect free. The
// matching engine composes these rules; nothing here performs I/O,
// raises panics on malformed input, or keeps state between calls.
package rules

import (
	"regexp"
	"strings"
)

// invoicePrefixPattern strips one leading prefix token, optionally
// followed by a colon or dash separator. Longer tokens come first so
// "INVOICE" is consumed as a whole rather than as "INV" + leftovers.
var invoicePrefixPattern = regexp.MustCompile(`^(INVOICE|INV|FAKTURA|DOC|№|NO\.?|#)\s*[-:]?\s*`)

// nonAlphanumericPattern matches every rune that is not a letter or a
// digit, across scripts. Invoice numbers captured from documents carry
// dashes, slashes, and stray punctuation that must not affect equality.
var nonAlphanumericPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// NormalizeInvoiceNumber canonicalizes an invoice number for matching
// and claim-tracking. Blank input normalizes to the empty string, which
// deliberately can never satisfy the invoice-number equality criterion.
//
// Examples:
//
//	NormalizeInvoiceNumber("INV-12345")     == "12345"
//	NormalizeInvoiceNumber("Faktura: 0042") == "0042"
//	NormalizeInvoiceNumber("no. 77/2024")   == "772024"
func NormalizeInvoiceNumber(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	s = invoicePrefixPattern.ReplaceAllString(s, "")
	s = nonAlphanumericPattern.ReplaceAllString(s, "")

	return s
}

// NormalizeVendor canonicalizes a vendor name for grouping and
// claim-tracking keys. It is intentionally blunt (uppercase + trim);
// fuzzy comparison is VendorSimilarity's job, not the grouping key's.
func NormalizeVendor(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
