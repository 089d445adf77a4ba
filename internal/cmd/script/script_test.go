package script

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

// setupTree creates a scan root with one shared object needing libx.so.1 and
// a copy-from root which contains that library under lib64.
func setupTree(t *testing.T) (soDir, copyFrom string) {
	t.Helper()

	soDir = testutil.MkdirTemp(t, "", "script-test-so-*")
	err := os.WriteFile(filepath.Join(soDir, "plugin.so"),
		testutil.BuildSharedObject(elf.EM_X86_64, "libx.so.1"), 0o644)
	require.NoError(t, err)

	copyFrom = testutil.MkdirTemp(t, "", "script-test-from-*")
	err = os.MkdirAll(filepath.Join(copyFrom, "lib64"), 0o755)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(copyFrom, "lib64", "libx.so.1"), []byte("libx"), 0o644)
	require.NoError(t, err)

	return soDir, copyFrom
}

func TestScriptCmd_PrintsToStdout(t *testing.T) {
	soDir, copyFrom := setupTree(t)

	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-p", soDir, "-f", copyFrom, "-t", "/image/lib"})

	err := cmd.Execute()
	require.NoError(t, err)

	script := out.String()
	assert.Contains(t, script, "#!/bin/sh")
	assert.Contains(t, script, "mkdir -p /image/lib")
	assert.Contains(t, script, "cp "+filepath.Join(copyFrom, "lib64", "libx.so.1")+" /image/lib/libx.so.1")
}

func TestScriptCmd_WritesOutputFile(t *testing.T) {
	soDir, copyFrom := setupTree(t)
	outputFile := filepath.Join(testutil.MkdirTemp(t, "", "script-test-out-*"), "copy-libs.sh")

	cmd := New()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"-p", soDir, "-f", copyFrom, "-t", "/image/lib", "-o", outputFile})

	err := cmd.Execute()
	require.NoError(t, err)

	contents, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "libx.so.1")
}

func TestScriptCmd_RefusesToOverwriteWithoutForce(t *testing.T) {
	soDir, copyFrom := setupTree(t)
	outputFile := filepath.Join(testutil.MkdirTemp(t, "", "script-test-out-*"), "copy-libs.sh")
	err := os.WriteFile(outputFile, []byte("precious"), 0o644)
	require.NoError(t, err)

	cmd := New()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-p", soDir, "-f", copyFrom, "-t", "/image/lib", "-o", outputFile})

	// Not interactive in tests, so this must fail instead of prompting.
	err = cmd.Execute()
	require.Error(t, err)

	var usageErr *cmdutils.IncorrectUsageError
	assert.ErrorAs(t, err, &usageErr)

	contents, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(contents))
}

func TestScriptCmd_OverwritesWithForce(t *testing.T) {
	soDir, copyFrom := setupTree(t)
	outputFile := filepath.Join(testutil.MkdirTemp(t, "", "script-test-out-*"), "copy-libs.sh")
	err := os.WriteFile(outputFile, []byte("precious"), 0o644)
	require.NoError(t, err)

	cmd := New()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"-p", soDir, "-f", copyFrom, "-t", "/image/lib", "-o", outputFile, "--force"})

	err = cmd.Execute()
	require.NoError(t, err)

	contents, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "libx.so.1")
}

func TestScriptCmd_Execute(t *testing.T) {
	soDir, copyFrom := setupTree(t)
	copyTo := filepath.Join(testutil.MkdirTemp(t, "", "script-test-to-*"), "lib")

	cmd := New()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"-p", soDir, "-f", copyFrom, "-t", copyTo, "--execute"})

	err := cmd.Execute()
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(copyTo, "libx.so.1"))
}

func TestScriptCmd_ExecuteAndOutputFileConflict(t *testing.T) {
	soDir, copyFrom := setupTree(t)

	cmd := New()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-p", soDir, "-f", copyFrom, "-t", "/image/lib", "-o", "out.sh", "--execute"})

	err := cmd.Execute()
	require.Error(t, err)

	var usageErr *cmdutils.IncorrectUsageError
	assert.ErrorAs(t, err, &usageErr)
}
