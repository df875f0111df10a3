//go:build ignore

// Package main generates a synthetic knowledge base for benchmarking
// and demos.
// Usage: go run scripts/generate-sample-kb.go -entries 500 -output kb.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

var (
	numEntries = flag.Int("entries", 500, "Number of entries to generate")
	outputPath = flag.String("output", "kb.json", "Output file")
	seed       = flag.Int64("seed", 42, "Random seed for reproducibility")
)

type entry struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Problem      string    `json:"problem"`
	Solution     string    `json:"solution"`
	Category     string    `json:"category"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UsageCount   int       `json:"usage_count"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
}

var categories = []string{"abend", "jcl", "vsam", "db2", "cics", "sort", "security", "storage"}

var symptoms = map[string][]string{
	"abend":    {"S0C7 data exception", "S0C4 protection exception", "S0CB divide by zero", "U4038 user abend"},
	"jcl":      {"IEF212I dataset not found", "JCL ERROR on DD statement", "S322 time limit exceeded", "duplicate dataset on DISP=NEW"},
	"vsam":     {"file status 93 resource unavailable", "file status 35 on OPEN", "VSAM cluster out of space", "alternate index out of sync"},
	"db2":      {"SQLCODE -811 multiple rows", "SQLCODE -904 resource unavailable", "deadlock SQLCODE -911", "plan not found -805"},
	"cics":     {"ASRA abend in transaction", "AICA runaway task", "DFHAC2206 transaction failed", "storage violation"},
	"sort":     {"WER027A insufficient storage", "WER211B SORTWK allocation failed", "E15 exit rejected records"},
	"security": {"ICH408I insufficient access", "RACF dataset profile missing", "password expired on batch id"},
	"storage":  {"SB37 out of space", "SD37 no secondary extents", "SE37 volume full", "GDG generation missing"},
}

var fixes = []string{
	"Check the allocation parameters and resubmit the job",
	"Initialize the field before the arithmetic statement",
	"Increase the region or space parameter and rerun",
	"Free the exclusive enqueue held by the other job",
	"Correct the DSN and verify the GDG generation number",
	"Add an index on the predicate columns and rebind the plan",
	"Request access through the dataset profile owner",
	"Run an IDCAMS VERIFY and reopen the file",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	now := time.Now()
	entries := make([]entry, *numEntries)
	for i := range entries {
		cat := categories[rng.Intn(len(categories))]
		symptom := symptoms[cat][rng.Intn(len(symptoms[cat]))]
		usage := rng.Intn(50)
		success := rng.Intn(usage + 1)
		created := now.AddDate(0, 0, -rng.Intn(365))

		entries[i] = entry{
			ID:           fmt.Sprintf("kb-%04d", i+1),
			Title:        fmt.Sprintf("%s: %s", cat, symptom),
			Problem:      fmt.Sprintf("Production job reports %s during the nightly batch window.", symptom),
			Solution:     fixes[rng.Intn(len(fixes))],
			Category:     cat,
			Tags:         []string{cat, "batch"},
			CreatedAt:    created,
			UpdatedAt:    created,
			UsageCount:   usage,
			SuccessCount: success,
			FailureCount: usage - success,
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outputPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *outputPath, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d entries to %s\n", len(entries), *outputPath)
}
