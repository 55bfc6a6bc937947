package files

import "sort"

// suggestion is one similarity-ranked candidate line returned when an edit's
// old_string has zero exact matches.
type suggestion struct {
	Line       int     `json:"line"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// similaritySuggestions scores every line of content against needle using
// normalized Levenshtein similarity and returns the top-K lines at or above
// minScore, highest first. Both the 0.6 threshold and top-3 cap are product
// choices called out as configurable, not invariants.
func similaritySuggestions(content, needle string, topK int, minScore float64) []suggestion {
	if needle == "" {
		return nil
	}
	lines := splitLines(content)
	candidates := make([]suggestion, 0, len(lines))
	for i, line := range lines {
		score := normalizedSimilarity(line, needle)
		if score >= minScore {
			candidates = append(candidates, suggestion{Line: i + 1, Text: line, Similarity: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

func normalizedSimilarity(a, b string) float64 {
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// levenshtein computes the classic edit distance between two strings over
// runes, using a two-row rolling table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
