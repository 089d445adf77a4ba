package scan

import (
	"bytes"
	"debug/elf"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distroless-tools/copylibs/internal/cmdutils"
	"github.com/distroless-tools/copylibs/internal/testutil"
)

func writeSharedObject(t *testing.T, path string, needed ...string) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	require.NoError(t, err)
	err = os.WriteFile(path, testutil.BuildSharedObject(elf.EM_X86_64, needed...), 0o644)
	require.NoError(t, err)
}

func TestScanCmd(t *testing.T) {
	tempDir := testutil.MkdirTemp(t, "", "scan-test-*")
	writeSharedObject(t, filepath.Join(tempDir, "a", "lib1.so"), "libx.so.1")
	writeSharedObject(t, filepath.Join(tempDir, "lib2.so"), "liby.so.2", "libx.so.1")

	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-p", tempDir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Equal(t, "libx.so.1\nliby.so.2\n", out.String())
}

func TestScanCmd_JSON(t *testing.T) {
	tempDir := testutil.MkdirTemp(t, "", "scan-test-*")
	writeSharedObject(t, filepath.Join(tempDir, "lib.so"), "libx.so.1")

	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-p", tempDir, "--json"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, out.String(), "libx.so.1")
	assert.Contains(t, out.String(), "[")
}

func TestScanCmd_PathFlagMissing(t *testing.T) {
	cmd := New()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
}

func TestScanCmd_InvalidJobs(t *testing.T) {
	tempDir := testutil.MkdirTemp(t, "", "scan-test-*")

	cmd := New()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-p", tempDir, "--jobs", "0"})

	err := cmd.Execute()
	require.Error(t, err)

	var usageErr *cmdutils.IncorrectUsageError
	assert.ErrorAs(t, err, &usageErr)
}
