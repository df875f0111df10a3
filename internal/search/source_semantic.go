package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/kbassist/kbsearch/internal/ai"
	kberrors "github.com/kbassist/kbsearch/internal/errors"
	"github.com/kbassist/kbsearch/internal/kb"
)

const (
	// maxSemanticEntries bounds the entry count for which semantic
	// retrieval is attempted at all.
	maxSemanticEntries = 100
	// maxPromptEntries bounds how many entries go into the prompt.
	maxPromptEntries = 50
	// maxSemanticResults bounds how many rankings the collaborator may return.
	maxSemanticResults = 10
	// promptFieldChars truncates problem/solution fields in the prompt.
	promptFieldChars = 120
)

// SemanticSource asks the AI collaborator to rank entries for a query.
// Its failures are recovered by the orchestrator as an empty
// contribution, never a fatal search error.
type SemanticSource struct {
	client *ai.Client
	logger *slog.Logger
}

// NewSemanticSource creates the AI-backed source. A nil client disables it.
func NewSemanticSource(client *ai.Client, logger *slog.Logger) *SemanticSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &SemanticSource{client: client, logger: logger}
}

var _ Source = (*SemanticSource)(nil)

// Name implements Source.
func (s *SemanticSource) Name() string { return SourceAI }

// Enabled reports whether this source can run for the given call.
func (s *SemanticSource) Enabled(entries []kb.Entry, opts Options) bool {
	return s.client != nil && !opts.aiDisabled() && len(entries) <= maxSemanticEntries
}

// aiRanking is one element of the collaborator's JSON response.
type aiRanking struct {
	Index       int     `json:"index"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation,omitempty"`
}

// Search prompts the collaborator and parses its ranked response.
// Confidence is returned on a 0-100 scale and used directly as the
// score; metadata carries it rescaled to [0, 1].
func (s *SemanticSource) Search(ctx context.Context, query string, entries []kb.Entry, opts Options) ([]Result, error) {
	if s.client == nil {
		return []Result{}, nil
	}
	if len(entries) == 0 {
		return []Result{}, nil
	}

	start := time.Now()
	response, err := s.client.Complete(ctx, buildPrompt(query, entries))
	if err != nil {
		return nil, err
	}

	rankings, err := parseRankings(response)
	if err != nil {
		return nil, kberrors.New(kberrors.ErrCodeAIResponseInvalid,
			"semantic response did not contain a ranking array", err)
	}
	elapsed := time.Since(start)

	results := make([]Result, 0, len(rankings))
	seen := make(map[int]struct{})
	for _, r := range rankings {
		if len(results) >= maxSemanticResults {
			break
		}
		// Discard out-of-range indices and nonsense confidences.
		if r.Index < 0 || r.Index >= len(entries) || r.Index >= maxPromptEntries {
			continue
		}
		if math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 100 {
			continue
		}
		if _, dup := seen[r.Index]; dup {
			continue
		}
		seen[r.Index] = struct{}{}

		results = append(results, Result{
			Entry:       entries[r.Index],
			Score:       r.Confidence,
			MatchType:   MatchAI,
			Explanation: r.Explanation,
			Metadata: Metadata{
				Source:         SourceAI,
				ProcessingTime: elapsed,
				Confidence:     r.Confidence / 100,
			},
		})
	}

	return results, nil
}

// buildPrompt renders the query and a bounded entry listing.
func buildPrompt(query string, entries []kb.Entry) string {
	if len(entries) > maxPromptEntries {
		entries = entries[:maxPromptEntries]
	}

	var sb strings.Builder
	sb.WriteString("You rank mainframe knowledge base entries by relevance to a query.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\nEntries:\n", query)

	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s | problem: %s | solution: %s\n",
			i, e.Title, truncate(e.Problem, promptFieldChars), truncate(e.Solution, promptFieldChars))
	}

	fmt.Fprintf(&sb, `
Return ONLY a JSON array of at most %d objects, most relevant first:
[{"index": <entry number>, "confidence": <0-100>, "explanation": "<short reason>"}]
Skip entries that are not relevant.
`, maxSemanticResults)

	return sb.String()
}

// parseRankings extracts the JSON array from a completion that may wrap
// it in prose or code fences.
func parseRankings(response string) ([]aiRanking, error) {
	var rankings []aiRanking

	// Fast path: the whole response is the array.
	if err := json.Unmarshal([]byte(response), &rankings); err == nil {
		return rankings, nil
	}

	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	if err := json.Unmarshal([]byte(response[start:end+1]), &rankings); err != nil {
		return nil, fmt.Errorf("parse ranking array: %w", err)
	}
	return rankings, nil
}
