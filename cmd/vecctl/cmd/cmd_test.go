package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { showMetrics = false })
	err := Execute(context.Background())
	return out.String(), err
}

func TestRunReportsScenarios(t *testing.T) {
	out, err := execute(t, "run", "--metrics", filepath.Join("..", "..", "..", "service", "testdata", "scenarios.yaml"))
	require.NoError(t, err)
	require.Contains(t, out, "growth")
	require.Contains(t, out, "nothrow-reserve")
	require.Contains(t, out, "rawvec_allocations_total")
}

func TestRunFailsOnMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: bad
steps:
  - op: push
    value: 1
expect:
  values: [2]
`), 0o644))

	out, err := execute(t, "run", path)
	require.ErrorContains(t, err, "1 of 1 scenarios failed")
	require.Contains(t, out, "bad")
}

func TestRunMissingFile(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestBench(t *testing.T) {
	out, err := execute(t, "bench", "--count", "1000")
	require.NoError(t, err)
	require.Contains(t, out, "nothrow-probe")
	require.Contains(t, out, "system memory")
}
