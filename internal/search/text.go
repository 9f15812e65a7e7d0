package search

import (
	"sort"
	"strings"
)

// words lowercases and splits s on whitespace/punctuation into tokens.
func words(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return false
		case r >= 0x4e00 && r <= 0x9fff: // CJK unified ideographs; a run of them stays one token
			return false
		default:
			return true
		}
	})

	return fields
}

// topWords returns up to n of the most frequent tokens in s, ties broken by
// first occurrence, sorted for a stable dedup signature.
func topWords(s string, n int) []string {
	freq := make(map[string]int)

	var order []string

	for _, w := range words(s) {
		if _, seen := freq[w]; !seen {
			order = append(order, w)
		}

		freq[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}

	sorted := append([]string(nil), order...)
	sort.Strings(sorted)

	return sorted
}

// jaccard computes the Jaccard similarity of two string sets.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	setA := toSet(a)
	setB := toSet(b)

	intersection := 0

	for w := range setA {
		if setB[w] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}

	return set
}

// contentSignature builds the dedup signature described in spec §4.5 step 4:
// "{title-top-10-words-sorted} | {content-top-50-words-sorted-first-25}".
type contentSignature struct {
	titleWords   []string
	contentWords []string
}

func buildSignature(r Record) contentSignature {
	contentTop50 := topWords(r.Content, 50)
	if len(contentTop50) > 25 {
		contentTop50 = contentTop50[:25]
	}

	return contentSignature{
		titleWords:   topWords(r.Title, 10),
		contentWords: contentTop50,
	}
}

// similarity returns the Jaccard-mean of the title and content parts, used
// by the dedup stage to decide whether two records are duplicates.
func (s contentSignature) similarity(other contentSignature) float64 {
	titleSim := jaccard(s.titleWords, other.titleWords)
	contentSim := jaccard(s.contentWords, other.contentWords)

	return (titleSim + contentSim) / 2
}

// keywordHitRate returns the fraction of keywords present in text, with
// title hits weighted double, used by the relevance score.
func keywordHitRate(text, title string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	lowerText := strings.ToLower(text)
	lowerTitle := strings.ToLower(title)

	var hits float64

	for _, kw := range keywords {
		k := strings.ToLower(kw)
		if k == "" {
			continue
		}

		switch {
		case strings.Contains(lowerTitle, k):
			hits += 2
		case strings.Contains(lowerText, k):
			hits += 1
		}
	}

	maxScore := float64(len(keywords)) * 2

	return hits / maxScore
}
