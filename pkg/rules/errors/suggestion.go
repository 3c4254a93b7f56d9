package errors

import (
	"fmt"
	"strings"
)

// SuggestName suggests the closest valid name for an unknown one.
// It uses Levenshtein distance; kind names the thing in the fallback listing
// ("strategies", "fields").
func SuggestName(unknown string, valid []string, kind string) string {
	if len(valid) == 0 {
		return ""
	}

	minDistance := 1000
	var bestMatch string

	for _, name := range valid {
		dist := levenshteinDistance(strings.ToLower(unknown), strings.ToLower(name))
		if dist < minDistance {
			minDistance = dist
			bestMatch = name
		}
	}

	if minDistance < 5 {
		return fmt.Sprintf("Did you mean '%s'?", bestMatch)
	}

	if len(valid) > 6 {
		return fmt.Sprintf("Valid %s include: %s, ...", kind, strings.Join(valid[:6], ", "))
	}
	return fmt.Sprintf("Valid %s: %s", kind, strings.Join(valid, ", "))
}

// SuggestMissingField suggests adding a required key.
func SuggestMissingField(key string, exampleValue string) string {
	if exampleValue != "" {
		return fmt.Sprintf("Add '%s: %s' to the entry", key, exampleValue)
	}
	return fmt.Sprintf("Add '%s' to the entry", key)
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	len1 := len(s1)
	len2 := len(s2)

	prev := make([]int, len2+1)
	curr := make([]int, len2+1)
	for j := 0; j <= len2; j++ {
		prev[j] = j
	}

	for i := 1; i <= len1; i++ {
		curr[0] = i
		for j := 1; j <= len2; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // Deletion
				curr[j-1]+1,    // Insertion
				prev[j-1]+cost, // Substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len2]
}
