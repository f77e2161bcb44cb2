// Package testutil provides golden file helpers for rendering tests.
// Run tests with -update to rewrite the golden files from actual output.
package testutil

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

var update = flag.Bool("update", false, "update golden files")

// CompareGoldenSlice compares actual lines with a golden file holding a JSON
// array of strings. One entry per line keeps diffs readable.
func CompareGoldenSlice(t *testing.T, goldenPath string, actual []string) {
	t.Helper()

	if *update {
		data, err := json.MarshalIndent(actual, "", "  ")
		if err != nil {
			t.Fatalf("Failed to marshal slice to JSON: %v", err)
		}
		writeGolden(t, goldenPath, append(data, '\n'))
		return
	}

	content, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Fatalf("Failed to read golden file %s: %v", goldenPath, err)
	}

	var expected []string
	if err := json.Unmarshal(content, &expected); err != nil {
		t.Fatalf("Failed to parse JSON from golden file %s: %v", goldenPath, err)
	}

	if !slices.Equal(actual, expected) {
		for i := range max(len(actual), len(expected)) {
			var a, e string
			if i < len(actual) {
				a = actual[i]
			}
			if i < len(expected) {
				e = expected[i]
			}
			if a != e {
				t.Errorf("Golden mismatch for %s at line %d\nExpected: %q\nActual:   %q", goldenPath, i, e, a)
			}
		}
	}
}

func writeGolden(t *testing.T, goldenPath string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", goldenPath, err)
	}
	if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
		t.Fatalf("Failed to update golden file %s: %v", goldenPath, err)
	}
	t.Logf("Updated golden file: %s", goldenPath)
}
