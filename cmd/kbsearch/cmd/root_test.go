package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the CLI against an isolated home and temp KB.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// setupTestKB points the CLI at a small KB in a temp home directory.
func setupTestKB(t *testing.T) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	data := `[
		{"id":"kb-001","title":"S0C7 Abend","problem":"data exception in numeric move","solution":"validate input fields","category":"abend","tags":["s0c7","cobol"],"usage_count":12,"success_count":10,"failure_count":1},
		{"id":"kb-002","title":"JCL Dataset Not Found","problem":"job fails with IEF212I","solution":"check the DSN spelling","category":"jcl","tags":["jcl"]}
	]`
	dataPath := filepath.Join(home, "kb.json")
	require.NoError(t, os.WriteFile(dataPath, []byte(data), 0o644))

	t.Setenv("KBSEARCH_DATA_PATH", dataPath)
	t.Setenv("KBSEARCH_INDEX_PATH", filepath.Join(home, "index.db"))
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	expected := []string{"search", "suggest", "explain", "index", "stats", "metrics", "config", "version"}
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, name := range expected {
		assert.True(t, names[name], "missing subcommand %s", name)
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	setupTestKB(t)

	out, err := runCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "kbsearch version")
}

func TestSearchCommand_JSONOutput(t *testing.T) {
	setupTestKB(t)

	out, err := runCommand(t, "search", "s0c7", "abend", "--format", "json", "--no-ai")
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)

	entry := results[0]["entry"].(map[string]any)
	assert.Equal(t, "kb-001", entry["id"])
}

func TestSearchCommand_TextOutput(t *testing.T) {
	setupTestKB(t)

	out, err := runCommand(t, "search", "dataset", "not", "found", "--no-ai")
	require.NoError(t, err)
	assert.Contains(t, out, "JCL Dataset Not Found")
	assert.Contains(t, out, "[jcl]")
}

func TestSearchCommand_CategoryFilter(t *testing.T) {
	setupTestKB(t)

	out, err := runCommand(t, "search", "job", "fails", "--category", "jcl", "--no-ai")
	require.NoError(t, err)
	assert.Contains(t, out, "JCL Dataset Not Found")
	assert.NotContains(t, out, "S0C7 Abend")
}

func TestSearchCommand_MissingKB(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("KBSEARCH_DATA_PATH", filepath.Join(home, "missing.json"))
	t.Setenv("KBSEARCH_INDEX_PATH", filepath.Join(home, "index.db"))

	_, err := runCommand(t, "search", "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot load knowledge base")
}

func TestSuggestCommand(t *testing.T) {
	setupTestKB(t)

	out, err := runCommand(t, "suggest", "s0c")
	require.NoError(t, err)
	assert.Contains(t, out, "s0c7 abend")
}

func TestExplainCommand(t *testing.T) {
	setupTestKB(t)

	out, err := runCommand(t, "explain", "s0c7 abend", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "S0C7 Abend")
	assert.Contains(t, out, "query intent: error_resolution")
}

func TestIndexCommand(t *testing.T) {
	setupTestKB(t)

	out, err := runCommand(t, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 entries")
}

func TestSearchCommand_RebuildsStaleIndex(t *testing.T) {
	setupTestKB(t)

	_, err := runCommand(t, "index")
	require.NoError(t, err)

	// Grow the KB behind the index's back; the next invocation must
	// notice the count mismatch and rebuild before searching.
	data := `[
		{"id":"kb-001","title":"S0C7 Abend","problem":"data exception in numeric move","solution":"validate input fields","category":"abend","tags":["s0c7","cobol"]},
		{"id":"kb-002","title":"JCL Dataset Not Found","problem":"job fails with IEF212I","solution":"check the DSN spelling","category":"jcl","tags":["jcl"]},
		{"id":"kb-003","title":"VSAM Status 93","problem":"resource unavailable on open","solution":"free the enqueue and retry","category":"vsam","tags":["vsam"]}
	]`
	require.NoError(t, os.WriteFile(os.Getenv("KBSEARCH_DATA_PATH"), []byte(data), 0o644))

	out, err := runCommand(t, "search", "vsam", "status", "93", "--format", "json", "--no-ai")
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)

	entry := results[0]["entry"].(map[string]any)
	assert.Equal(t, "kb-003", entry["id"])
	meta := results[0]["metadata"].(map[string]any)
	assert.Equal(t, "fts5", meta["source"])
}

func TestStatsCommand(t *testing.T) {
	setupTestKB(t)

	out, err := runCommand(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "entries: 2")
	assert.Contains(t, out, "indexed: true")
}

func TestMetricsCommand_JSON(t *testing.T) {
	setupTestKB(t)

	out, err := runCommand(t, "metrics", "--format", "json")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Contains(t, report, "operations")
	assert.Contains(t, report, "cache")
}

func TestConfigShowCommand(t *testing.T) {
	setupTestKB(t)

	out, err := runCommand(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_results: 50")
	assert.Contains(t, out, "kb.json")
}

func TestConfigInitCommand(t *testing.T) {
	setupTestKB(t)
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	out, err := runCommand(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote .kbsearch.yaml")
	assert.FileExists(t, ".kbsearch.yaml")

	_, err = runCommand(t, "config", "init")
	require.Error(t, err)

	_, err = runCommand(t, "config", "init", "--force")
	require.NoError(t, err)

	// The written template must load cleanly.
	out, err = runCommand(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "model: qwen3:0.6b")
}

func TestVersionCommand_JSON(t *testing.T) {
	setupTestKB(t)

	out, err := runCommand(t, "version", "--format", "json")
	require.NoError(t, err)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
}
