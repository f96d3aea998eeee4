package commands

import (
	"bytes"
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

var sampleDir = filepath.Join("..", "..", "..", "testdata", "maya")

func samplePaths(t *testing.T) []string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(sampleDir, "*"))
	require.NoError(t, err)
	sort.Strings(paths)
	require.Len(t, paths, 7)
	return paths
}

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the CLI with args and returns what it wrote to stdout and
// stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	defer rootCmd.SetOut(nil)
	defer rootCmd.SetErr(nil)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, "umbrella dev (commit: none)\n", out)
}

func TestInvalidEngine(t *testing.T) {
	_, _, err := execute(t, "list-signatures", "--engine", "perl")
	require.ErrorContains(t, err, "invalid --engine")
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "version", "--log-level", "loud")
	require.ErrorContains(t, err, "log level")
}

func TestLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "umbrella.log")
	_, _, err := execute(t, "scan", filepath.Join(t.TempDir(), "missing.py"),
		"--log-file", logFile, "--log-level", "warn")
	require.NoError(t, err)
	require.FileExists(t, logFile)
}
