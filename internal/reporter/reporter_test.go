package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/rules"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildOutcome(t *testing.T) *models.ReconciliationOutcome {
	t.Helper()

	rec := func(number, vendor, amount string, side models.Side) *models.InvoiceRecord {
		total, err := decimal.NewFromString(amount)
		require.NoError(t, err)
		return models.NewInvoiceRecord(number, vendor, rules.NormalizeVendor(vendor), total, side)
	}

	engine, err := matcher.NewEngine(nil)
	require.NoError(t, err)

	authoritative := []*models.InvoiceRecord{
		rec("INV-1", "ACME", "100.00", models.SideAuthoritative),
		rec("INV-2", "ACME", "200.00", models.SideAuthoritative),
		rec("INV-3", "GLOBEX", "300.00", models.SideAuthoritative),
	}
	external := []*models.InvoiceRecord{
		rec("1", "ACME", "100.00", models.SideExternal),
		rec("2", "ACME", "210.00", models.SideExternal),
		rec("9", "INITECH", "50.00", models.SideExternal),
	}

	return matcher.Aggregate(engine.Match(authoritative, external, nil))
}

func newGenerator(t *testing.T, config *ReportConfig) *ReportGenerator {
	t.Helper()
	rg, err := NewReportGenerator(config)
	require.NoError(t, err)
	rg.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return rg
}

func TestStatusFor(t *testing.T) {
	assert.Contains(t, StatusFor(100.0), "EXCELLENT")
	assert.Contains(t, StatusFor(95.0), "EXCELLENT")
	assert.Contains(t, StatusFor(94.9), "GOOD")
	assert.Contains(t, StatusFor(85.0), "GOOD")
	assert.Contains(t, StatusFor(84.9), "ATTENTION REQUIRED")
	assert.Contains(t, StatusFor(0.0), "ATTENTION REQUIRED")
}

func TestConfigValidation(t *testing.T) {
	bad := &ReportConfig{Format: "yaml"}
	assert.Error(t, bad.Validate())

	_, err := NewReportGenerator(bad)
	assert.Error(t, err)

	negative := DefaultReportConfig()
	negative.MaxListedRecords = -1
	assert.Error(t, negative.Validate())
}

func TestConsoleReport(t *testing.T) {
	rg := newGenerator(t, nil)

	var buf bytes.Buffer
	require.NoError(t, rg.GenerateReport(buildOutcome(t), &buf))
	out := buf.String()

	assert.Contains(t, out, "INVOICE RECONCILIATION REPORT")
	assert.Contains(t, out, "Authoritative records:   3")
	assert.Contains(t, out, "External records:        3")
	assert.Contains(t, out, "Matches:                 1")
	assert.Contains(t, out, "Mismatches:              1")
	assert.Contains(t, out, "Match rate:              33.3%")
	assert.Contains(t, out, "ATTENTION REQUIRED")

	// Default config lists mismatches and missing records, not matches.
	assert.Contains(t, out, "=== MISMATCHES ===")
	assert.Contains(t, out, "=== MISSING ON EXTERNAL SIDE ===")
	assert.Contains(t, out, "=== MISSING ON AUTHORITATIVE SIDE ===")
	assert.NotContains(t, out, "=== MATCHES ===")

	// Mismatch rows carry the discrepancy detail.
	assert.Contains(t, out, "INV-2")
	assert.Contains(t, out, "amount")
}

func TestConsoleReportTruncation(t *testing.T) {
	config := DefaultReportConfig()
	config.MaxListedRecords = 1
	rg := newGenerator(t, config)

	var buf bytes.Buffer
	require.NoError(t, rg.GenerateReport(buildOutcome(t), &buf))

	assert.Contains(t, buf.String(), "... and ")
}

func TestJSONReportPreservesContract(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatJSON
	rg := newGenerator(t, config)

	var buf bytes.Buffer
	require.NoError(t, rg.GenerateReport(buildOutcome(t), &buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	require.Contains(t, decoded, "summary")
	require.Contains(t, decoded, "matches")
	require.Contains(t, decoded, "mismatches")
	require.Contains(t, decoded, "missing_external_side")
	require.Contains(t, decoded, "missing_authoritative_side")

	summary := decoded["summary"].(map[string]interface{})
	assert.Equal(t, float64(3), summary["total_authoritative"])
	assert.Equal(t, float64(1), summary["matches"])
}

func TestCSVReport(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatCSV
	config.IncludeMatches = true
	rg := newGenerator(t, config)

	var buf bytes.Buffer
	require.NoError(t, rg.GenerateReport(buildOutcome(t), &buf))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)

	// Header + 1 match + 1 mismatch + 2 missing.
	require.Len(t, rows, 5)
	assert.Equal(t, "Type", rows[0][0])
	assert.Equal(t, "Match", rows[1][0])
	assert.Equal(t, "Mismatch", rows[2][0])
	assert.Equal(t, "10.00", rows[2][5])
	assert.Equal(t, "Missing External", rows[3][0])
	assert.Equal(t, "Missing Authoritative", rows[4][0])
}

func TestGenerateReportNilOutcome(t *testing.T) {
	rg := newGenerator(t, nil)
	assert.Error(t, rg.GenerateReport(nil, &bytes.Buffer{}))
}
