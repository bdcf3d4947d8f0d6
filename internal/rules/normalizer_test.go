package rules

import "testing"

func TestNormalizeInvoiceNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain number", "12345", "12345"},
		{"lowercase letters", "abc123", "ABC123"},
		{"surrounding whitespace", "  INV-001  ", "001"},
		{"inv prefix with dash", "INV-12345", "12345"},
		{"invoice prefix with dash", "INVOICE-12345", "12345"},
		{"invoice prefix with colon", "Invoice: 12345", "12345"},
		{"faktura prefix", "Faktura: 0042", "0042"},
		{"doc prefix", "DOC 789", "789"},
		{"numero sign prefix", "№ 456", "456"},
		{"no dot prefix", "no. 77/2024", "772024"},
		{"hash prefix", "#555", "555"},
		{"leading zeros preserved", "INV-000123", "000123"},
		{"embedded separators stripped", "2024/03-A1", "202403A1"},
		{"underscore stripped", "INV_42", "42"},
		{"cyrillic letters kept", "ФК-0042", "ФК0042"},
		{"only one prefix stripped", "INV-INV-1", "INV1"},
		{"empty string", "", ""},
		{"whitespace only", "   ", ""},
		{"punctuation only", "---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeInvoiceNumber(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeInvoiceNumber(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeInvoiceNumberIdempotent(t *testing.T) {
	inputs := []string{"INV-12345", "Faktura: 0042", "no. 77/2024", "abc-123", ""}

	for _, input := range inputs {
		once := NormalizeInvoiceNumber(input)
		twice := NormalizeInvoiceNumber(once)
		if once != twice {
			t.Errorf("NormalizeInvoiceNumber not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestNormalizeVendor(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "acme ltd", "ACME LTD"},
		{"mixed case", "Acme Ltd", "ACME LTD"},
		{"surrounding whitespace", "  ACME  ", "ACME"},
		{"inner whitespace preserved", "ACME  LTD", "ACME  LTD"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeVendor(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeVendor(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
