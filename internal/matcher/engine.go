// Package matcher implements the core pairing algorithm for invoice
// reconciliation.
//
// The engine pairs authoritative ledger records with external document
// records using a greedy, single-pass heuristic:
//  1. Candidate selection within the same normalized-vendor group
//  2. Confidence scoring from identifier, amount, and vendor evidence
//  3. Best-valid-candidate selection with claim tracking, so no external
//     record is ever paired twice
//
// The pass is deliberately order-dependent: authoritative records are
// processed in input order, and a claimed external record stays claimed
// even when a later authoritative record would have scored higher
// against it. Globally optimal assignment is out of scope; the greedy
// pass is part of the engine's contract and its determinism for a fixed
// input order is relied on by callers.
//
// Example usage:
//
//	engine, err := matcher.NewEngine(matcher.DefaultConfig())
//	result := engine.Match(authoritative, external, nil)
//	outcome := matcher.Aggregate(result)
package matcher

import (
	"fmt"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/rules"

	"github.com/shopspring/decimal"
)

// Config holds the tunable parameters of the matching engine.
type Config struct {
	// Tolerance is the maximum absolute amount difference still treated
	// as equal, in currency units.
	Tolerance decimal.Decimal `json:"tolerance"`
}

// DefaultConfig returns a configuration with the standard 0.01 currency
// unit tolerance.
func DefaultConfig() *Config {
	return &Config{Tolerance: rules.DefaultTolerance}
}

// Validate checks if the matching configuration is valid
func (c *Config) Validate() error {
	if c.Tolerance.IsNegative() {
		return fmt.Errorf("tolerance cannot be negative: %s", c.Tolerance.String())
	}
	return nil
}

// Engine pairs authoritative records with external records. It is
// stateless across invocations: the claim bookkeeping lives on the
// stack of a single Match call, so concurrent calls on disjoint inputs
// need no locking.
type Engine struct {
	amounts *rules.AmountPolicy
}

// NewEngine creates a matching engine from the given configuration.
// A nil config selects the defaults.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching configuration: %w", err)
	}

	policy, err := rules.NewAmountPolicy(config.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("invalid matching configuration: %w", err)
	}

	return &Engine{amounts: policy}, nil
}

// AmountPolicy exposes the engine's amount comparison policy, used by
// discrepancy detection and reporting.
func (e *Engine) AmountPolicy() *rules.AmountPolicy {
	return e.amounts
}

// Result is the labeled output of one matching pass, consumed by
// Aggregate.
type Result struct {
	// Pairs holds every authoritative record that claimed an external
	// record, in authoritative input order.
	Pairs []*models.MatchedPair
	// UnmatchedAuthoritative holds authoritative records with no valid
	// pairing, in input order.
	UnmatchedAuthoritative []*models.InvoiceRecord
	// UnmatchedExternal holds external records never claimed, in input
	// order.
	UnmatchedExternal []*models.InvoiceRecord
}

// claimKey identifies one external record for claim tracking.
type claimKey struct {
	vendor string
	number string
}

func keyFor(rec *models.InvoiceRecord) claimKey {
	return claimKey{
		vendor: rec.VendorNormalized,
		number: rules.NormalizeInvoiceNumber(rec.InvoiceNumber),
	}
}

// Match runs the greedy pairing pass. externalByVendor, when non-nil,
// must be equivalent to grouping external by normalized vendor at call
// time; it is an optimization handed in by loaders that already hold the
// grouping and never changes the result.
func (e *Engine) Match(authoritative, external []*models.InvoiceRecord, externalByVendor map[string][]*models.InvoiceRecord) *Result {
	if externalByVendor == nil {
		externalByVendor = models.GroupByVendor(external)
	}

	claimed := make(map[claimKey]bool)
	result := &Result{
		Pairs:                  []*models.MatchedPair{},
		UnmatchedAuthoritative: []*models.InvoiceRecord{},
		UnmatchedExternal:      []*models.InvoiceRecord{},
	}

	for _, auth := range authoritative {
		best := e.selectBest(auth, externalByVendor[auth.VendorNormalized], claimed)
		if best == nil {
			result.UnmatchedAuthoritative = append(result.UnmatchedAuthoritative, auth)
			continue
		}

		claimed[keyFor(best.record)] = true
		result.Pairs = append(result.Pairs, &models.MatchedPair{
			Authoritative: auth,
			External:      best.record,
			Confidence:    best.score,
			Discrepancies: e.findDiscrepancies(auth, best.record),
		})
	}

	for _, ext := range external {
		if !claimed[keyFor(ext)] {
			result.UnmatchedExternal = append(result.UnmatchedExternal, ext)
		}
	}

	return result
}

// scoredCandidate is one external record with its confidence score.
type scoredCandidate struct {
	record *models.InvoiceRecord
	score  float64
}

// selectBest scores every unclaimed candidate and returns the one with
// the strictly highest valid score. On ties the first-encountered
// candidate wins; there is no secondary tiebreak.
func (e *Engine) selectBest(auth *models.InvoiceRecord, candidates []*models.InvoiceRecord, claimed map[claimKey]bool) *scoredCandidate {
	var best *scoredCandidate

	for _, cand := range candidates {
		if claimed[keyFor(cand)] {
			continue
		}

		score, valid := e.scorePair(auth, cand)
		if !valid {
			continue
		}

		if best == nil || score > best.score {
			best = &scoredCandidate{record: cand, score: score}
		}
	}

	return best
}

// scorePair computes the confidence score for one candidate pairing.
func (e *Engine) scorePair(auth, ext *models.InvoiceRecord) (float64, bool) {
	authNum := rules.NormalizeInvoiceNumber(auth.InvoiceNumber)
	extNum := rules.NormalizeInvoiceNumber(ext.InvoiceNumber)

	// Empty identifiers never auto-match.
	numberMatch := authNum != "" && extNum != "" && authNum == extNum

	amountConsistent := e.amounts.Consistent(auth.TotalAmount, ext.TotalAmount)
	vendorSimilarity := rules.VendorSimilarity(auth.VendorNormalized, ext.VendorNormalized)

	return rules.ConfidenceScore(numberMatch, amountConsistent, vendorSimilarity)
}

// findDiscrepancies runs the field-level checks for a selected pair.
// Currently amount only; further kinds slot in here without touching
// the pairing pass.
func (e *Engine) findDiscrepancies(auth, ext *models.InvoiceRecord) []models.Discrepancy {
	var discrepancies []models.Discrepancy

	if !e.amounts.Consistent(auth.TotalAmount, ext.TotalAmount) {
		discrepancies = append(discrepancies, models.AmountDiscrepancy{
			Authoritative: rules.Quantize(auth.TotalAmount),
			External:      rules.Quantize(ext.TotalAmount),
			Magnitude:     e.amounts.Difference(auth.TotalAmount, ext.TotalAmount),
		})
	}

	return discrepancies
}
