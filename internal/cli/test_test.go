package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_ScenariosPass(t *testing.T) {
	out, err := execute(t, "test", "testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ adults\n")
	assert.Contains(t, out, "✓ retraction\n")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_Failing(t *testing.T) {
	out, err := execute(t, "test", "testdata/failing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ ok\n")
	assert.Contains(t, out, "✗ wrong\n")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTest_JSON(t *testing.T) {
	out, err := execute(t, "test", "--format", "json", "testdata/failing")
	require.Error(t, err)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Scenarios, 2)
	assert.Equal(t, "ok", result.Scenarios[0].Name)
	assert.False(t, result.Scenarios[1].Pass)
	assert.NotEmpty(t, result.Scenarios[1].Errors)
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "test", "--filter", "retr*", "testdata/scenarios")
	require.NoError(t, err)
	assert.NotContains(t, out, "adults")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")

	out, err = execute(t, "test", "--filter", "nothing*", "testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTest_MissingDir(t *testing.T) {
	_, err := execute(t, "test", "testdata/nowhere")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_UpdateGolden(t *testing.T) {
	dir := t.TempDir()
	copyDir(t, "testdata/programs", filepath.Join(dir, "programs"))
	copyDir(t, "testdata/scenarios", filepath.Join(dir, "scenarios"))
	scenarios := filepath.Join(dir, "scenarios")

	// A stale snapshot fails the run.
	stale := filepath.Join(scenarios, "golden", "adults.golden")
	require.NoError(t, os.WriteFile(stale, []byte(`{"name":"adults","statements":[],"steps":[]}`), 0o644))
	out, err := execute(t, "test", scenarios)
	require.Error(t, err)
	assert.Contains(t, out, "statements do not match golden file")

	_, err = execute(t, "test", "--update", scenarios)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(scenarios, "golden", "retraction.golden"))

	got, err := os.ReadFile(stale)
	require.NoError(t, err)
	want, err := os.ReadFile("testdata/scenarios/golden/adults.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	_, err = execute(t, "test", scenarios)
	require.NoError(t, err)
}

func copyDir(t *testing.T, src, dst string) {
	t.Helper()
	require.NoError(t, os.CopyFS(dst, os.DirFS(src)))
}
