package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(id string, score float64, source string) Result {
	return Result{
		Entry:    entryFixture(id),
		Score:    score,
		Metadata: Metadata{Source: source},
	}
}

func TestMerger_MultiSourceAgreementBoost(t *testing.T) {
	m := &Merger{}

	// Same entry from two sources: baseline 40 kept, boosted by the
	// second occurrence's score times its source weight times 0.3.
	merged := m.Merge([][]Result{
		{result("kb-001", 40, SourceDatabase)},
		{result("kb-001", 60, SourceFullText)},
	}, Options{})

	require.Len(t, merged, 1)
	assert.InDelta(t, 58.0, merged[0].Score, 0.001) // 40 + 60*1.0*0.3
}

func TestMerger_BoostCappedAt100(t *testing.T) {
	m := &Merger{}

	merged := m.Merge([][]Result{
		{result("kb-001", 95, SourceFullText)},
		{result("kb-001", 90, SourceFullText)},
	}, Options{})

	require.Len(t, merged, 1)
	assert.Equal(t, 100.0, merged[0].Score)
}

func TestMerger_SourceWeights(t *testing.T) {
	tests := []struct {
		source string
		want   float64
	}{
		{SourceFullText, 40 + 50*1.0*0.3},
		{SourceDatabase, 40 + 50*0.9*0.3},
		{SourceAI, 40 + 50*0.8*0.3},
		{SourceLocal, 40 + 50*0.7*0.3},
		{"mystery", 40 + 50*0.5*0.3},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			m := &Merger{}
			merged := m.Merge([][]Result{
				{result("kb-001", 40, SourceDatabase)},
				{result("kb-001", 50, tt.source)},
			}, Options{})

			require.Len(t, merged, 1)
			assert.InDelta(t, tt.want, merged[0].Score, 0.001)
		})
	}
}

func TestMerger_DeduplicatesByEntryID(t *testing.T) {
	m := &Merger{}

	merged := m.Merge([][]Result{
		{result("kb-001", 50, SourceFullText), result("kb-002", 40, SourceFullText)},
		{result("kb-001", 30, SourceLocal), result("kb-003", 20, SourceLocal)},
	}, Options{})

	seen := make(map[string]bool)
	for _, r := range merged {
		assert.False(t, seen[r.Entry.ID], "duplicate entry %s", r.Entry.ID)
		seen[r.Entry.ID] = true
	}
	assert.Len(t, merged, 3)
}

func TestMerger_AppendsHighlightsFromLaterOccurrences(t *testing.T) {
	m := &Merger{}

	first := result("kb-001", 50, SourceFullText)
	first.Highlights = []Highlight{{Field: "title", Text: "s0c7"}}
	second := result("kb-001", 30, SourceLocal)
	second.Highlights = []Highlight{{Field: "problem", Text: "abend"}}

	merged := m.Merge([][]Result{{first}, {second}}, Options{})

	require.Len(t, merged, 1)
	require.Len(t, merged[0].Highlights, 2)
	assert.Equal(t, "title", merged[0].Highlights[0].Field)
	assert.Equal(t, "problem", merged[0].Highlights[1].Field)
}

func TestMerger_SortsDescendingAndTruncates(t *testing.T) {
	m := &Merger{}

	merged := m.Merge([][]Result{{
		result("kb-001", 20, SourceLocal),
		result("kb-002", 80, SourceLocal),
		result("kb-003", 50, SourceLocal),
	}}, Options{Limit: 2})

	require.Len(t, merged, 2)
	assert.Equal(t, "kb-002", merged[0].Entry.ID)
	assert.Equal(t, "kb-003", merged[1].Entry.ID)
}

func TestMerger_Offset(t *testing.T) {
	m := &Merger{}

	lists := [][]Result{{
		result("kb-001", 90, SourceLocal),
		result("kb-002", 80, SourceLocal),
		result("kb-003", 70, SourceLocal),
	}}

	merged := m.Merge(lists, Options{Offset: 1})
	require.Len(t, merged, 2)
	assert.Equal(t, "kb-002", merged[0].Entry.ID)

	merged = m.Merge(lists, Options{Offset: 10})
	assert.Empty(t, merged)
}

func TestMerger_EmptyInput(t *testing.T) {
	m := &Merger{}
	assert.Empty(t, m.Merge(nil, Options{}))
	assert.Empty(t, m.Merge([][]Result{{}, {}}, Options{}))
}
