package search

import (
	"strings"
	"unicode/utf8"

	"github.com/kbassist/kbsearch/internal/kb"
)

const (
	maxHighlightsPerField  = 3
	maxHighlightsPerResult = 10
	highlightContextChars  = 20
	highlightFieldPreview  = 200
)

// BuildHighlights extracts contextual spans for each query token across
// the title and the first 200 characters of problem and solution.
// At most 3 spans per field and 10 per result.
func BuildHighlights(query string, entry kb.Entry) []Highlight {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	fields := []struct {
		name string
		text string
	}{
		{"title", entry.Title},
		{"problem", truncate(entry.Problem, highlightFieldPreview)},
		{"solution", truncate(entry.Solution, highlightFieldPreview)},
	}

	var highlights []Highlight
	for _, field := range fields {
		perField := 0

		for _, token := range tokens {
			if perField >= maxHighlightsPerField || len(highlights) >= maxHighlightsPerResult {
				break
			}

			for _, start := range findAll(field.text, token) {
				if perField >= maxHighlightsPerField || len(highlights) >= maxHighlightsPerResult {
					break
				}

				end := start + len(token)
				highlights = append(highlights, Highlight{
					Field:   field.name,
					Start:   start,
					End:     end,
					Text:    field.text[start:end],
					Context: contextAround(field.text, start, end),
				})
				perField++
			}
		}
	}

	return highlights
}

// findAll returns the start offsets of every non-overlapping,
// case-insensitive occurrence of needle in haystack. Offsets index
// haystack itself, so spans sliced from them stay rune-aligned even
// where lowercasing would change byte lengths.
func findAll(haystack, needle string) []int {
	if needle == "" {
		return nil
	}

	var offsets []int
	n := len(needle)
	for i := 0; i+n <= len(haystack); {
		if strings.EqualFold(haystack[i:i+n], needle) {
			offsets = append(offsets, i)
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(haystack[i:])
		i += size
	}
	return offsets
}

// contextAround returns the span text padded with surrounding
// characters, nudging the window edges onto rune boundaries.
func contextAround(text string, start, end int) string {
	ctxStart := start - highlightContextChars
	if ctxStart < 0 {
		ctxStart = 0
	}
	for ctxStart < start && !utf8.RuneStart(text[ctxStart]) {
		ctxStart++
	}

	ctxEnd := end + highlightContextChars
	if ctxEnd > len(text) {
		ctxEnd = len(text)
	}
	for ctxEnd < len(text) && !utf8.RuneStart(text[ctxEnd]) {
		ctxEnd++
	}
	return text[ctxStart:ctxEnd]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
