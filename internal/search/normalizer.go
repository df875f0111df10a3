package search

import "strings"

// Normalize trims and lowercases a raw query. An empty result means the
// caller should short-circuit to an empty result list.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Tokenize splits a normalized query into whitespace-separated terms.
func Tokenize(query string) []string {
	return strings.Fields(query)
}
