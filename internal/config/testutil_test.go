package config

import (
	"os"
	"testing"
)

// unsetForTest removes variables for the rest of the test. Callers register
// them with t.Setenv first so the original values are restored.
func unsetForTest(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unsetenv %s: %v", k, err)
		}
	}
}
