package search

import (
	"time"

	"github.com/kbassist/kbsearch/internal/kb"
)

func entryFixture(id string) kb.Entry {
	return kb.Entry{
		ID:       id,
		Title:    "Fixture " + id,
		Problem:  "fixture problem",
		Solution: "fixture solution",
	}
}

// kbFixture is a small mainframe knowledge base used across tests.
func kbFixture() []kb.Entry {
	now := time.Now()
	return []kb.Entry{
		{
			ID:           "kb-001",
			Title:        "S0C7 Abend",
			Problem:      "Program abends with S0C7 data exception during a numeric MOVE",
			Solution:     "Initialize COMP-3 fields and validate input before arithmetic; the error disappears once data is clean",
			Category:     "abend",
			Tags:         []string{"s0c7", "cobol"},
			CreatedAt:    now.AddDate(0, 0, -3),
			UsageCount:   20,
			SuccessCount: 18,
			FailureCount: 2,
		},
		{
			ID:         "kb-002",
			Title:      "JCL Dataset Not Found",
			Problem:    "Job fails with IEF212I dataset not found",
			Solution:   "Check the DSN spelling and GDG generation number",
			Category:   "jcl",
			Tags:       []string{"jcl", "dataset"},
			CreatedAt:  now.AddDate(0, -3, 0),
			UsageCount: 4,
		},
		{
			ID:        "kb-003",
			Title:     "VSAM File Status 93",
			Problem:   "VSAM open fails with status 93, resource not available",
			Solution:  "Free the exclusive enqueue held by another job or CICS region",
			Category:  "vsam",
			Tags:      []string{"vsam"},
			CreatedAt: now.AddDate(-1, 0, 0),
		},
	}
}
