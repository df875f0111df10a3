package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbassist/kbsearch/internal/kb"
	"github.com/kbassist/kbsearch/internal/logging"
)

func TestLocalScan_ExactTitleMatch(t *testing.T) {
	src := NewLocalScanSource(logging.Discard())

	results, err := src.Search(context.Background(), "s0c7", kbFixture(), Options{})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "kb-001", top.Entry.ID)
	assert.Equal(t, MatchExact, top.MatchType)
	// Exact substring (+1.0) plus title bonus (+0.5) alone put the
	// pre-scaling heuristic at 1.5 or more.
	assert.GreaterOrEqual(t, top.Score, 100.0)
}

func TestLocalScan_ThresholdFiltersWeakMatches(t *testing.T) {
	src := NewLocalScanSource(logging.Discard())

	// "enqueue" appears only in kb-003's solution: 0.15 + coverage 0.5.
	results, err := src.Search(context.Background(), "enqueue", kbFixture(), Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// With a high threshold the same match is dropped.
	results, err = src.Search(context.Background(), "enqueue", kbFixture(), Options{}.WithThreshold(2.0))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLocalScan_ZeroThresholdKeepsEverythingMatched(t *testing.T) {
	src := NewLocalScanSource(logging.Discard())

	def, err := src.Search(context.Background(), "status", kbFixture(), Options{})
	require.NoError(t, err)

	all, err := src.Search(context.Background(), "status", kbFixture(), Options{}.WithThreshold(0))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(all), len(def))
}

func TestLocalScan_UnrelatedQueryMatchesNothing(t *testing.T) {
	src := NewLocalScanSource(logging.Discard())

	// kb-001 is heavily used, well rated, and only days old; those
	// boosts alone must not surface it for a query it never matches,
	// even with the threshold lowered to zero.
	for _, opts := range []Options{{}, Options{}.WithThreshold(0)} {
		results, err := src.Search(context.Background(), "zzqqxx", kbFixture(), opts)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
}

func TestLocalScan_CategoryFilter(t *testing.T) {
	src := NewLocalScanSource(logging.Discard())

	results, err := src.Search(context.Background(), "job fails", kbFixture(), Options{Category: "jcl"})
	require.NoError(t, err)

	for _, r := range results {
		assert.Equal(t, "jcl", r.Entry.Category)
	}
	require.NotEmpty(t, results)
}

func TestLocalScan_TagFilter(t *testing.T) {
	src := NewLocalScanSource(logging.Discard())

	results, err := src.Search(context.Background(), "status", kbFixture(), Options{Tags: []string{"vsam"}})
	require.NoError(t, err)

	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "kb-003", r.Entry.ID)
	}
}

func TestLocalScan_MatchTypeDerivation(t *testing.T) {
	tests := []struct {
		name         string
		exactPhrase  bool
		matched      int
		total        int
		tagOverlap   int
		categoryHit  bool
		want         MatchType
	}{
		{"exact phrase wins", true, 0, 2, 3, true, MatchExact},
		{"all words covered", false, 2, 2, 1, false, MatchFuzzy},
		{"tag overlap partial coverage", false, 1, 2, 1, false, MatchTag},
		{"category named", false, 1, 2, 0, true, MatchCategory},
		{"residual fuzzy", false, 1, 2, 0, false, MatchFuzzy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveMatchType(tt.exactPhrase, tt.matched, tt.total, tt.tagOverlap, tt.categoryHit)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalScan_FuzzyCreditForNearMisses(t *testing.T) {
	src := NewLocalScanSource(logging.Discard())

	entries := []kb.Entry{{
		ID:      "kb-010",
		Title:   "Compile listing",
		Problem: "compiler reports truncation",
	}}

	// "compilr" has no exact hit but sits above the 0.8 similarity
	// threshold against "compiler".
	results, err := src.Search(context.Background(), "compilr", entries, Options{}.WithThreshold(0.05))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, MatchFuzzy, results[0].MatchType)
}

func TestLocalScan_ScoresWithinBounds(t *testing.T) {
	src := NewLocalScanSource(logging.Discard())

	results, err := src.Search(context.Background(), "s0c7 abend cobol", kbFixture(), Options{})
	require.NoError(t, err)

	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 100.0)
		assert.Equal(t, SourceLocal, r.Metadata.Source)
	}
}

func TestLocalScan_NoEntries(t *testing.T) {
	src := NewLocalScanSource(logging.Discard())

	results, err := src.Search(context.Background(), "anything", nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
