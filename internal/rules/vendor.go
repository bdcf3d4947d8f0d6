package rules

import "strings"

// Similarity scores for the non-Jaccard vendor comparison outcomes.
const (
	exactVendorScore     = 1.0
	substringVendorScore = 0.8
)

// VendorSimilarity computes a fuzzy similarity score in [0, 1] between
// two vendor names. Empty input on either side scores 0. Exact matches
// (case-insensitive) score 1.0, substring containment scores 0.8, and
// everything else falls back to word-set Jaccard similarity, which
// tolerates reordered words and legal-form suffixes ("ACME LTD" vs
// "LTD ACME").
func VendorSimilarity(vendor1, vendor2 string) float64 {
	v1 := NormalizeVendor(vendor1)
	v2 := NormalizeVendor(vendor2)

	if v1 == "" || v2 == "" {
		return 0.0
	}

	if v1 == v2 {
		return exactVendorScore
	}

	if strings.Contains(v1, v2) || strings.Contains(v2, v1) {
		return substringVendorScore
	}

	words1 := wordSet(v1)
	words2 := wordSet(v2)
	if len(words1) == 0 || len(words2) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range words1 {
		if _, ok := words2[w]; ok {
			intersection++
		}
	}
	union := len(words1) + len(words2) - intersection

	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}
