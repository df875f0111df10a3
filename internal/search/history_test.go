package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_RecentDistinctNewestFirst(t *testing.T) {
	h := NewHistory()

	h.Record("s0c7 abend")
	h.Record("jcl error")
	h.Record("s0c7 abend")
	h.Record("vsam status 93")

	assert.Equal(t, []string{"vsam status 93", "s0c7 abend", "jcl error"}, h.Recent(10))
	assert.Equal(t, []string{"vsam status 93", "s0c7 abend"}, h.Recent(2))
}

func TestHistory_IgnoresEmptyQueries(t *testing.T) {
	h := NewHistory()

	h.Record("")
	assert.Zero(t, h.Size())
	assert.Empty(t, h.Recent(10))
}

func TestHistory_PopularOrdering(t *testing.T) {
	h := NewHistory()

	for i := 0; i < 3; i++ {
		h.Record("s0c7 abend")
	}
	for i := 0; i < 2; i++ {
		h.Record("jcl error")
	}
	h.Record("vsam status 93")
	h.Record("db2 sqlcode")

	popular := h.Popular(3)
	require.Len(t, popular, 3)
	assert.Equal(t, "s0c7 abend", popular[0])
	assert.Equal(t, "jcl error", popular[1])
	// Count ties break alphabetically.
	assert.Equal(t, "db2 sqlcode", popular[2])
}

func TestHistory_RecentRingIsBounded(t *testing.T) {
	h := NewHistory()

	for i := 0; i < historyCapacity+50; i++ {
		h.Record(fmt.Sprintf("query %d", i))
	}

	assert.Equal(t, historyCapacity, h.Size())
	recent := h.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, fmt.Sprintf("query %d", historyCapacity+49), recent[0])
}

func TestHistory_SuggestPopularBeforeDomainTerms(t *testing.T) {
	h := NewHistory()
	h.Record("s0c7 in payroll batch")
	h.Record("s0c7 in payroll batch")

	got := h.Suggest("s0c7", 5)
	require.NotEmpty(t, got)
	assert.Equal(t, "s0c7 in payroll batch", got[0])
	assert.Contains(t, got, "s0c7 abend")
}

func TestHistory_SuggestDomainTermsWithoutHistory(t *testing.T) {
	h := NewHistory()

	got := h.Suggest("sqlcode", 5)
	assert.Equal(t, []string{"db2 sqlcode -811", "db2 sqlcode -904"}, got)
}

func TestHistory_SuggestSkipsExactInput(t *testing.T) {
	h := NewHistory()
	h.Record("s0c7 abend")

	got := h.Suggest("s0c7 abend", 5)
	assert.NotContains(t, got, "s0c7 abend")
}

func TestHistory_SuggestNormalizesPartial(t *testing.T) {
	h := NewHistory()

	got := h.Suggest("  SQLCODE  ", 5)
	assert.Contains(t, got, "db2 sqlcode -811")
}

func TestHistory_SuggestLimitsAndEmptyInput(t *testing.T) {
	h := NewHistory()

	assert.Empty(t, h.Suggest("", 5))
	assert.Empty(t, h.Suggest("abend", 0))
	assert.Len(t, h.Suggest("s", 3), 3)
}
