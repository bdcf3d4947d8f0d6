package rules

import (
	"math"
	"testing"
)

func TestConfidenceScore(t *testing.T) {
	tests := []struct {
		name             string
		numberMatch      bool
		amountConsistent bool
		vendorSimilarity float64
		expectedScore    float64
		expectedValid    bool
	}{
		{"all criteria", true, true, 1.0, 100.0, true},
		{"number match only", true, false, 0.0, 50.0, true},
		{"amount and full vendor", false, true, 1.0, 50.0, true},
		{"amount and weak vendor", false, true, 0.49, 39.8, false},
		{"number and amount", true, true, 0.0, 80.0, true},
		{"number and substring vendor", true, false, 0.8, 66.0, true},
		{"vendor only", false, false, 1.0, 20.0, false},
		{"nothing", false, false, 0.0, 0.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, valid := ConfidenceScore(tt.numberMatch, tt.amountConsistent, tt.vendorSimilarity)
			if math.Abs(score-tt.expectedScore) > 1e-9 {
				t.Errorf("score = %f, want %f", score, tt.expectedScore)
			}
			if valid != tt.expectedValid {
				t.Errorf("valid = %v, want %v", valid, tt.expectedValid)
			}
		})
	}
}

func TestConfidenceScoreClamped(t *testing.T) {
	// Similarity outside [0, 1] must not escape the score range.
	score, _ := ConfidenceScore(true, true, 2.5)
	if score > 100.0 {
		t.Errorf("score %f exceeds 100", score)
	}

	score, _ = ConfidenceScore(false, false, -1.0)
	if score < 0.0 {
		t.Errorf("score %f below 0", score)
	}
}

func TestConfidenceThresholdBoundary(t *testing.T) {
	// Exactly at the threshold counts as valid.
	score, valid := ConfidenceScore(true, false, 0.0)
	if score != MinValidScore {
		t.Fatalf("score = %f, want %f", score, MinValidScore)
	}
	if !valid {
		t.Error("score at threshold should be valid")
	}

	// Just below the threshold is not.
	score, valid = ConfidenceScore(false, true, 0.99)
	if score >= MinValidScore {
		t.Fatalf("score = %f, expected below threshold", score)
	}
	if valid {
		t.Error("score below threshold should not be valid")
	}
}
