// Package kb defines the knowledge-base entry model shared by all
// retrieval sources. Entries are owned by an external store; this
// package only reads them.
package kb

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Entry is a single knowledge-base record. Entries are immutable per
// version; the search core never mutates them.
type Entry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
	Category string `json:"category"`

	Tags []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UsageCount   int `json:"usage_count"`
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

// Rated reports whether the entry has any success/failure feedback.
func (e *Entry) Rated() bool {
	return e.SuccessCount+e.FailureCount > 0
}

// SuccessRate returns the fraction of rated uses that succeeded (0-1).
// Returns 0 for unrated entries; callers that need to distinguish
// "unrated" from "always failed" should check Rated first.
func (e *Entry) SuccessRate() float64 {
	total := e.SuccessCount + e.FailureCount
	if total == 0 {
		return 0
	}
	return float64(e.SuccessCount) / float64(total)
}

// Age returns the time elapsed since the entry was created.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// CreatedWithin reports whether the entry was created within d of now.
func (e *Entry) CreatedWithin(now time.Time, d time.Duration) bool {
	return e.Age(now) <= d
}

// SearchText returns the concatenated searchable text of the entry,
// lower-cased. Used by the local scan source for substring matching.
func (e *Entry) SearchText() string {
	parts := []string{e.Title, e.Problem, e.Solution, strings.Join(e.Tags, " ")}
	return strings.ToLower(strings.Join(parts, " "))
}

// HasTag reports whether the entry carries the given tag (case-insensitive).
func (e *Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// LoadFile reads entries from a JSON file containing an array of entries.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entries file: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse entries file %s: %w", path, err)
	}
	return entries, nil
}
