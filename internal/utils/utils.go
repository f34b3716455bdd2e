package utils

import "strings"

// UniqueStrings returns input without duplicates, preserving first-seen order.
func UniqueStrings(input []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, val := range input {
		if !seen[val] {
			result = append(result, val)
			seen[val] = true
		}
	}
	return result
}

// LowerAll returns a lower-cased copy of every element.
func LowerAll(input []string) []string {
	out := make([]string, 0, len(input))
	for _, s := range input {
		out = append(out, strings.ToLower(s))
	}
	return out
}

// ContainsAnyFold reports whether haystack contains any of the lower-cased needles,
// ignoring case. It returns the first needle that matched.
func ContainsAnyFold(haystack string, lowerNeedles []string) (string, bool) {
	if haystack == "" || len(lowerNeedles) == 0 {
		return "", false
	}
	h := strings.ToLower(haystack)
	for _, n := range lowerNeedles {
		if n != "" && strings.Contains(h, n) {
			return n, true
		}
	}
	return "", false
}

// StripPrefix removes Reddit's "t3_" fullname prefix from post IDs.
func StripPrefix(id string) string {
	if strings.HasPrefix(id, "t1_") || strings.HasPrefix(id, "t3_") {
		return id[3:]
	}
	return id
}
