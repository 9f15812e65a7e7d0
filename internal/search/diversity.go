package search

import "github.com/sergi/go-diff/diffmatchpatch"

// diversitySimilarity scores how alike two records' content is using a
// Levenshtein-based ratio, distinct from the Jaccard signature the dedup
// stage uses: the diversity pass needs a finer-grained distance between
// records that already survived dedup, not a duplicate/not-duplicate call.
func diversitySimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}

	dmp := diffmatchpatch.New()

	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)

	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}

	if maxLen == 0 {
		return 1.0
	}

	similarity := 1 - float64(distance)/float64(maxLen)
	if similarity < 0 {
		similarity = 0
	}

	return similarity
}
