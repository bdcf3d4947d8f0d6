package matcher

import (
	"testing"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/rules"

	"github.com/shopspring/decimal"
)

func record(t *testing.T, number, vendor, amount string, side models.Side) *models.InvoiceRecord {
	t.Helper()
	total, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("invalid test amount %q: %v", amount, err)
	}
	return models.NewInvoiceRecord(number, vendor, rules.NormalizeVendor(vendor), total, side)
}

func authRecord(t *testing.T, number, vendor, amount string) *models.InvoiceRecord {
	return record(t, number, vendor, amount, models.SideAuthoritative)
}

func extRecord(t *testing.T, number, vendor, amount string) *models.InvoiceRecord {
	return record(t, number, vendor, amount, models.SideExternal)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine
}

func TestNewEngineValidation(t *testing.T) {
	if _, err := NewEngine(&Config{Tolerance: decimal.New(-1, -2)}); err == nil {
		t.Error("negative tolerance should be rejected")
	}

	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("nil config should select defaults: %v", err)
	}
	if !engine.AmountPolicy().Tolerance().Equal(rules.DefaultTolerance) {
		t.Errorf("default tolerance = %s, want %s", engine.AmountPolicy().Tolerance(), rules.DefaultTolerance)
	}
}

func TestMatchExactPair(t *testing.T) {
	engine := newTestEngine(t)

	authoritative := []*models.InvoiceRecord{authRecord(t, "INV-1001", "ACME", "100.00")}
	external := []*models.InvoiceRecord{extRecord(t, "1001", "ACME", "100.00")}

	result := engine.Match(authoritative, external, nil)

	if len(result.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
	}

	pair := result.Pairs[0]
	if pair.Confidence != 100.0 {
		t.Errorf("confidence = %f, want 100", pair.Confidence)
	}
	if len(pair.Discrepancies) != 0 {
		t.Errorf("expected no discrepancies, got %d", len(pair.Discrepancies))
	}
	if len(result.UnmatchedAuthoritative) != 0 || len(result.UnmatchedExternal) != 0 {
		t.Error("expected no unmatched records")
	}
}

func TestMatchSignConvention(t *testing.T) {
	engine := newTestEngine(t)

	authoritative := []*models.InvoiceRecord{authRecord(t, "INV-2001", "ACME", "100.00")}
	external := []*models.InvoiceRecord{extRecord(t, "2001", "ACME", "-100.00")}

	result := engine.Match(authoritative, external, nil)

	if len(result.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
	}
	if len(result.Pairs[0].Discrepancies) != 0 {
		t.Error("opposite sign conventions should not raise a discrepancy")
	}
}

func TestMatchAmountDiscrepancy(t *testing.T) {
	engine := newTestEngine(t)

	authoritative := []*models.InvoiceRecord{authRecord(t, "INV-3001", "ACME", "100.00")}
	external := []*models.InvoiceRecord{extRecord(t, "3001", "ACME", "90.00")}

	result := engine.Match(authoritative, external, nil)

	if len(result.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
	}

	pair := result.Pairs[0]
	if len(pair.Discrepancies) != 1 {
		t.Fatalf("expected 1 discrepancy, got %d", len(pair.Discrepancies))
	}
	if pair.Discrepancies[0].Kind() != models.DiscrepancyAmount {
		t.Errorf("discrepancy kind = %s, want %s", pair.Discrepancies[0].Kind(), models.DiscrepancyAmount)
	}

	amount, ok := pair.Discrepancies[0].(models.AmountDiscrepancy)
	if !ok {
		t.Fatalf("discrepancy has unexpected type %T", pair.Discrepancies[0])
	}
	if amount.Magnitude.StringFixed(2) != "10.00" {
		t.Errorf("magnitude = %s, want 10.00", amount.Magnitude.StringFixed(2))
	}
}

func TestMatchBelowThreshold(t *testing.T) {
	engine := newTestEngine(t)

	// Number differs, amount differs; vendor similarity alone scores 20.
	authoritative := []*models.InvoiceRecord{authRecord(t, "INV-4001", "ACME", "100.00")}
	external := []*models.InvoiceRecord{extRecord(t, "9999", "ACME", "55.00")}

	result := engine.Match(authoritative, external, nil)

	if len(result.Pairs) != 0 {
		t.Fatalf("expected no pairs, got %d", len(result.Pairs))
	}
	if len(result.UnmatchedAuthoritative) != 1 || len(result.UnmatchedExternal) != 1 {
		t.Error("both records should be unmatched")
	}
}

func TestMatchSelectsBestCandidate(t *testing.T) {
	engine := newTestEngine(t)

	authoritative := []*models.InvoiceRecord{authRecord(t, "INV-5001", "ACME", "100.00")}
	external := []*models.InvoiceRecord{
		// Amount + vendor only: 30 + 20 = 50.
		extRecord(t, "0000", "ACME", "100.00"),
		// Number + amount + vendor: 100.
		extRecord(t, "5001", "ACME", "100.00"),
	}

	result := engine.Match(authoritative, external, nil)

	if len(result.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
	}
	if result.Pairs[0].External.InvoiceNumber != "5001" {
		t.Errorf("matched %q, want the higher-scoring candidate 5001", result.Pairs[0].External.InvoiceNumber)
	}
	if result.Pairs[0].Confidence != 100.0 {
		t.Errorf("confidence = %f, want 100", result.Pairs[0].Confidence)
	}
}

func TestMatchTieKeepsFirstCandidate(t *testing.T) {
	engine := newTestEngine(t)

	authoritative := []*models.InvoiceRecord{authRecord(t, "INV-6001", "ACME", "100.00")}
	// Identical scores; candidate order decides.
	external := []*models.InvoiceRecord{
		extRecord(t, "6001", "ACME", "100.00"),
		extRecord(t, "6001", "ACME", "100.00"),
	}
	external[0].SourceFile = "first.pdf"
	external[1].SourceFile = "second.pdf"

	result := engine.Match(authoritative, external, nil)

	if len(result.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
	}
	if result.Pairs[0].External.SourceFile != "first.pdf" {
		t.Errorf("matched %q, want the first-encountered candidate", result.Pairs[0].External.SourceFile)
	}
}

func TestMatchNoDoubleClaim(t *testing.T) {
	engine := newTestEngine(t)

	// Two authoritative records competing for one external record.
	authoritative := []*models.InvoiceRecord{
		authRecord(t, "7001", "ACME", "100.00"),
		authRecord(t, "7001", "ACME", "100.00"),
	}
	external := []*models.InvoiceRecord{extRecord(t, "7001", "ACME", "100.00")}

	result := engine.Match(authoritative, external, nil)

	if len(result.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
	}
	if result.Pairs[0].Authoritative != authoritative[0] {
		t.Error("first authoritative record should claim the external record")
	}
	if len(result.UnmatchedAuthoritative) != 1 || result.UnmatchedAuthoritative[0] != authoritative[1] {
		t.Error("second authoritative record should be unmatched")
	}
}

func TestMatchOrderSensitivity(t *testing.T) {
	engine := newTestEngine(t)

	// A1 scores 100 against E1, A2 scores 50 (amount + vendor only).
	// Processed first, A1 claims E1 and A2 ends up unmatched even
	// though E1 was its only candidate. Reversing the input order
	// flips which record wins.
	a1 := authRecord(t, "8001", "ACME", "100.00")
	a2 := authRecord(t, "8777", "ACME", "100.00")
	e1 := extRecord(t, "8001", "ACME", "100.00")

	result := engine.Match([]*models.InvoiceRecord{a1, a2}, []*models.InvoiceRecord{e1}, nil)

	if len(result.Pairs) != 1 || result.Pairs[0].Authoritative != a1 {
		t.Fatal("A1 should claim E1 when processed first")
	}
	if len(result.UnmatchedAuthoritative) != 1 || result.UnmatchedAuthoritative[0] != a2 {
		t.Error("A2 should be unmatched")
	}

	reversed := engine.Match([]*models.InvoiceRecord{a2, a1}, []*models.InvoiceRecord{e1}, nil)

	if len(reversed.Pairs) != 1 || reversed.Pairs[0].Authoritative != a2 {
		t.Fatal("A2 should claim E1 when processed first")
	}
	if reversed.Pairs[0].Confidence != 50.0 {
		t.Errorf("confidence = %f, want 50", reversed.Pairs[0].Confidence)
	}
}

func TestMatchVendorGroupIsolation(t *testing.T) {
	engine := newTestEngine(t)

	// Same number and amount, different vendor group: never considered.
	authoritative := []*models.InvoiceRecord{authRecord(t, "9001", "ACME", "100.00")}
	external := []*models.InvoiceRecord{extRecord(t, "9001", "GLOBEX", "100.00")}

	result := engine.Match(authoritative, external, nil)

	if len(result.Pairs) != 0 {
		t.Fatalf("expected no pairs across vendor groups, got %d", len(result.Pairs))
	}
}

func TestMatchEmptyInvoiceNumbersNeverEqual(t *testing.T) {
	engine := newTestEngine(t)

	// Both numbers normalize to empty; score is amount + vendor = 50,
	// valid, but without the number contribution.
	authoritative := []*models.InvoiceRecord{authRecord(t, "", "ACME", "100.00")}
	external := []*models.InvoiceRecord{extRecord(t, "---", "ACME", "100.00")}

	result := engine.Match(authoritative, external, nil)

	if len(result.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
	}
	if result.Pairs[0].Confidence != 50.0 {
		t.Errorf("confidence = %f, want 50 (no invoice-number contribution)", result.Pairs[0].Confidence)
	}
}

func TestMatchConservation(t *testing.T) {
	engine := newTestEngine(t)

	authoritative := []*models.InvoiceRecord{
		authRecord(t, "1", "ACME", "10.00"),
		authRecord(t, "2", "ACME", "20.00"),
		authRecord(t, "3", "GLOBEX", "30.00"),
		authRecord(t, "4", "GLOBEX", "40.00"),
	}
	external := []*models.InvoiceRecord{
		extRecord(t, "1", "ACME", "10.00"),
		extRecord(t, "3", "GLOBEX", "35.00"),
		extRecord(t, "5", "INITECH", "50.00"),
	}

	result := engine.Match(authoritative, external, nil)

	gotAuth := len(result.Pairs) + len(result.UnmatchedAuthoritative)
	if gotAuth != len(authoritative) {
		t.Errorf("authoritative conservation violated: %d pairs + %d unmatched != %d inputs",
			len(result.Pairs), len(result.UnmatchedAuthoritative), len(authoritative))
	}

	gotExt := len(result.Pairs) + len(result.UnmatchedExternal)
	if gotExt != len(external) {
		t.Errorf("external conservation violated: %d pairs + %d unmatched != %d inputs",
			len(result.Pairs), len(result.UnmatchedExternal), len(external))
	}
}

func TestMatchDeterministic(t *testing.T) {
	engine := newTestEngine(t)

	authoritative := []*models.InvoiceRecord{
		authRecord(t, "INV-1", "ACME", "10.00"),
		authRecord(t, "INV-2", "ACME", "20.00"),
		authRecord(t, "INV-3", "GLOBEX", "30.00"),
	}
	external := []*models.InvoiceRecord{
		extRecord(t, "2", "ACME", "20.00"),
		extRecord(t, "1", "ACME", "-10.00"),
		extRecord(t, "3", "GLOBEX", "31.00"),
	}

	first := engine.Match(authoritative, external, nil)
	second := engine.Match(authoritative, external, nil)

	if len(first.Pairs) != len(second.Pairs) {
		t.Fatalf("pair counts differ across runs: %d vs %d", len(first.Pairs), len(second.Pairs))
	}
	for i := range first.Pairs {
		if first.Pairs[i].Authoritative != second.Pairs[i].Authoritative ||
			first.Pairs[i].External != second.Pairs[i].External ||
			first.Pairs[i].Confidence != second.Pairs[i].Confidence {
			t.Errorf("pair %d differs across identical runs", i)
		}
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	engine := newTestEngine(t)

	result := engine.Match(nil, nil, nil)

	if len(result.Pairs) != 0 || len(result.UnmatchedAuthoritative) != 0 || len(result.UnmatchedExternal) != 0 {
		t.Error("empty inputs should produce an empty result")
	}
}

func TestMatchWithPrecomputedGrouping(t *testing.T) {
	engine := newTestEngine(t)

	authoritative := []*models.InvoiceRecord{authRecord(t, "1", "ACME", "10.00")}
	external := []*models.InvoiceRecord{extRecord(t, "1", "ACME", "10.00")}

	grouped := engine.Match(authoritative, external, models.GroupByVendor(external))
	derived := engine.Match(authoritative, external, nil)

	if len(grouped.Pairs) != len(derived.Pairs) {
		t.Error("precomputed grouping should not change the result")
	}
}
