package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestReconcilerErrorMessage(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "file not found: data.json")
	if err.Error() != "file not found: data.json" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	err.WithSuggestion("check the path")
	want := "file not found: data.json (suggestion: check the path)"
	if err.Error() != want {
		t.Errorf("message with suggestion = %q, want %q", err.Error(), want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, CategoryDataset, CodeInvalidJSON, "invalid JSON")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match its cause with errors.Is")
	}

	if Wrap(nil, CategoryDataset, CodeInvalidJSON, "x") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected int
	}{
		{CategoryFile, 2},
		{CategoryDataset, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryReconciliation, 5},
		{CategoryInternal, 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := New(tt.category, "any", "message")
			if got := err.GetExitCode(); got != tt.expected {
				t.Errorf("exit code for %s = %d, want %d", tt.category, got, tt.expected)
			}
		})
	}
}

func TestErrorContext(t *testing.T) {
	err := FileError(CodeFileNotFound, "/tmp/x.json", nil)

	if err.Context["file_path"] != "/tmp/x.json" {
		t.Errorf("file_path context = %v", err.Context["file_path"])
	}
	if err.Suggestion == "" {
		t.Error("constructor should attach a suggestion")
	}
}

func TestAsReconcilerError(t *testing.T) {
	inner := DatasetError(CodeInvalidDataset, "ledger.json", "missing all_invoices", nil)
	wrapped := fmt.Errorf("loading failed: %w", inner)

	got, ok := AsReconcilerError(wrapped)
	if !ok {
		t.Fatal("AsReconcilerError should find the error through the chain")
	}
	if got.Code != CodeInvalidDataset {
		t.Errorf("code = %s, want %s", got.Code, CodeInvalidDataset)
	}

	if _, ok := AsReconcilerError(stderrors.New("plain")); ok {
		t.Error("plain errors should not be recognized")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	original := ValidationError(CodeInvalidAmount, "total_amount", "abc", nil)

	if got := WrapIfNeeded(original, CategoryInternal, CodeUnexpectedError, "x"); got != original {
		t.Error("already-typed errors should pass through unchanged")
	}

	plain := stderrors.New("plain")
	got := WrapIfNeeded(plain, CategoryInternal, CodeUnexpectedError, "wrapped")
	if got.Category != CategoryInternal {
		t.Errorf("category = %s, want %s", got.Category, CategoryInternal)
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconcilerError{
		FileError(CodeFileNotFound, "a.json", nil),
		DatasetError(CodeInvalidJSON, "b.json", "bad token", nil),
		DatasetError(CodeInvalidJSON, "c.json", "bad token", nil),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 3 {
		t.Errorf("total = %d, want 3", summary.Total)
	}
	if summary.ByCategory[CategoryDataset] != 2 {
		t.Errorf("dataset count = %d, want 2", summary.ByCategory[CategoryDataset])
	}
	if !summary.HasCategory(CategoryFile) {
		t.Error("summary should report the file category")
	}
	if summary.HasCategory(CategoryInternal) {
		t.Error("summary should not report absent categories")
	}
	// Dataset errors exit at 3, file errors at 2; the worst one wins.
	if summary.GetExitCode() != 3 {
		t.Errorf("exit code = %d, want 3", summary.GetExitCode())
	}
}

func TestEmptyErrorSummary(t *testing.T) {
	summary := NewErrorSummary(nil)

	if summary.Error() != "no errors" {
		t.Errorf("message = %q", summary.Error())
	}
	if summary.GetExitCode() != 0 {
		t.Errorf("exit code = %d, want 0", summary.GetExitCode())
	}
}
