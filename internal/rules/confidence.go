package rules

// Confidence weights for the individual match criteria. An exact
// invoice-number match is by far the strongest signal, amount
// consistency is next, and vendor similarity provides context.
const (
	InvoiceNumberWeight = 50.0
	AmountWeight        = 30.0
	VendorWeight        = 20.0

	// MinValidScore is the threshold below which a candidate pairing is
	// not considered a match at all.
	MinValidScore = 50.0
)

// ConfidenceScore combines the three match criteria into a single score
// in [0, 100] and decides whether the pairing is valid. Invoice-number
// equality and amount consistency are binary contributions; vendor
// similarity scales its weight.
func ConfidenceScore(invoiceNumberMatch, amountConsistent bool, vendorSimilarity float64) (score float64, valid bool) {
	if invoiceNumberMatch {
		score += InvoiceNumberWeight
	}

	if amountConsistent {
		score += AmountWeight
	}

	score += vendorSimilarity * VendorWeight

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return score, score >= MinValidScore
}
