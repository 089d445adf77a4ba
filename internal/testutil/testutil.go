package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// MkdirTemp creates a temporary directory which is removed when the test
// finishes.
func MkdirTemp(t *testing.T, dir, pattern string) string {
	t.Helper()

	tempDir, err := os.MkdirTemp(dir, pattern)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = os.RemoveAll(tempDir)
	})

	return tempDir
}
