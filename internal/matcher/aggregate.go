package matcher

import (
	"invoice-reconciliation-service/internal/models"
)

// Aggregate folds a matching result into a reconciliation outcome.
// Pairs without discrepancies become matches, pairs with discrepancies
// become mismatches, and the unmatched leftovers map to the two missing
// buckets. Relative input order is preserved within every bucket.
func Aggregate(result *Result) *models.ReconciliationOutcome {
	outcome := models.NewReconciliationOutcome()

	if result == nil {
		return outcome
	}

	for _, pair := range result.Pairs {
		if pair.IsPerfectMatch() {
			outcome.Matches = append(outcome.Matches, pair)
		} else {
			outcome.Mismatches = append(outcome.Mismatches, pair)
		}
	}

	outcome.MissingExternalSide = append(outcome.MissingExternalSide, result.UnmatchedAuthoritative...)
	outcome.MissingAuthoritativeSide = append(outcome.MissingAuthoritativeSide, result.UnmatchedExternal...)

	return outcome
}
