package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbassist/kbsearch/internal/ai"
	kberrors "github.com/kbassist/kbsearch/internal/errors"
	"github.com/kbassist/kbsearch/internal/kb"
	"github.com/kbassist/kbsearch/internal/logging"
)

func aiTestClient(t *testing.T, response string) *ai.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": response, "done": true})
	}))
	t.Cleanup(srv.Close)

	return ai.NewClient(ai.Config{
		Host: srv.URL,
		Retry: kberrors.RetryConfig{
			MaxRetries:   1,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
		},
	}, logging.Discard())
}

func TestSemantic_RanksEntries(t *testing.T) {
	client := aiTestClient(t, `[
		{"index": 0, "confidence": 85, "explanation": "directly describes the abend"},
		{"index": 2, "confidence": 40}
	]`)
	src := NewSemanticSource(client, logging.Discard())

	results, err := src.Search(context.Background(), "s0c7 abend", kbFixture(), Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "kb-001", results[0].Entry.ID)
	assert.Equal(t, 85.0, results[0].Score)
	assert.Equal(t, MatchAI, results[0].MatchType)
	assert.Equal(t, SourceAI, results[0].Metadata.Source)
	assert.InDelta(t, 0.85, results[0].Metadata.Confidence, 0.001)
	assert.Equal(t, "directly describes the abend", results[0].Explanation)

	assert.Equal(t, "kb-003", results[1].Entry.ID)
}

func TestSemantic_ResponseWrappedInProse(t *testing.T) {
	client := aiTestClient(t, "Here are the rankings:\n```json\n[{\"index\": 1, \"confidence\": 70}]\n```\nHope that helps.")
	src := NewSemanticSource(client, logging.Discard())

	results, err := src.Search(context.Background(), "jcl", kbFixture(), Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kb-002", results[0].Entry.ID)
}

func TestSemantic_DiscardsInvalidRankings(t *testing.T) {
	client := aiTestClient(t, `[
		{"index": 99, "confidence": 80},
		{"index": -1, "confidence": 80},
		{"index": 0, "confidence": 150},
		{"index": 0, "confidence": -5},
		{"index": 1, "confidence": 60},
		{"index": 1, "confidence": 50}
	]`)
	src := NewSemanticSource(client, logging.Discard())

	results, err := src.Search(context.Background(), "jcl", kbFixture(), Options{})
	require.NoError(t, err)

	// Only the first valid, non-duplicate ranking survives.
	require.Len(t, results, 1)
	assert.Equal(t, "kb-002", results[0].Entry.ID)
	assert.Equal(t, 60.0, results[0].Score)
}

func TestSemantic_NoJSONInResponse(t *testing.T) {
	client := aiTestClient(t, "I could not find any relevant entries.")
	src := NewSemanticSource(client, logging.Discard())

	_, err := src.Search(context.Background(), "jcl", kbFixture(), Options{})
	require.Error(t, err)
	assert.Equal(t, kberrors.ErrCodeAIResponseInvalid, kberrors.GetCode(err))
}

func TestSemantic_EnabledGating(t *testing.T) {
	client := aiTestClient(t, "[]")
	src := NewSemanticSource(client, logging.Discard())
	entries := kbFixture()

	assert.True(t, src.Enabled(entries, Options{}))
	assert.True(t, src.Enabled(entries, Options{UseAI: Bool(true)}))
	assert.False(t, src.Enabled(entries, Options{UseAI: Bool(false)}))

	// Too many entries makes the prompt uneconomical.
	big := make([]kb.Entry, maxSemanticEntries+1)
	assert.False(t, src.Enabled(big, Options{}))

	// No client, no semantic retrieval.
	none := NewSemanticSource(nil, logging.Discard())
	assert.False(t, none.Enabled(entries, Options{}))
}

func TestSemantic_PromptBoundsEntries(t *testing.T) {
	entries := make([]kb.Entry, 80)
	for i := range entries {
		entries[i] = entryFixture("kb-x")
	}

	prompt := buildPrompt("query", entries)
	assert.Contains(t, prompt, "49. ")
	assert.NotContains(t, prompt, "50. ")
}

func TestParseRankings(t *testing.T) {
	rankings, err := parseRankings(`[{"index": 1, "confidence": 50}]`)
	require.NoError(t, err)
	require.Len(t, rankings, 1)
	assert.Equal(t, 1, rankings[0].Index)

	_, err = parseRankings("no array here")
	assert.Error(t, err)

	_, err = parseRankings("prefix [not json] suffix")
	assert.Error(t, err)
}
