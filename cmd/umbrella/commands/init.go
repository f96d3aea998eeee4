package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/umbrella-scan/umbrella/internal/config"
	"github.com/umbrella-scan/umbrella/internal/scanner"
)

var (
	flagHook   bool
	flagCIOnly bool
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write starter umbrella configuration files",
	Long:  `Scaffolds .umbrella.yml, .umbrellaignore, and a GitHub Actions workflow that scans pushed Maya files.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&flagHook, "hook", false, "Create a git pre-commit hook that scans changed files")
	initCmd.Flags().BoolVar(&flagCIOnly, "ci", false, "Only generate the GitHub Actions workflow")
	rootCmd.AddCommand(initCmd)
}

type scaffold struct {
	path    string
	content string
	mode    os.FileMode
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	out := io.Writer(os.Stdout)
	if cmd != nil {
		out = cmd.OutOrStdout()
	}

	workflow := scaffold{filepath.Join(dir, ".github", "workflows", "umbrella.yml"), workflowTemplate, 0o644}

	var files []scaffold
	switch {
	case flagHook:
		gitDir := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitDir); os.IsNotExist(err) {
			return fmt.Errorf("no .git directory found in %s (is this a git repository?)", dir)
		}
		files = []scaffold{{filepath.Join(gitDir, "hooks", "pre-commit"), preCommitTemplate, 0o755}}
	case flagCIOnly:
		files = []scaffold{workflow}
	default:
		files = []scaffold{
			{filepath.Join(dir, config.FileNames[0]), config.Template, 0o644},
			{filepath.Join(dir, scanner.IgnoreFile), ignoreTemplate, 0o644},
			workflow,
		}
	}

	for _, f := range files {
		if err := writeScaffold(out, f); err != nil {
			return err
		}
	}
	return nil
}

// writeScaffold creates f unless something already exists at its path.
func writeScaffold(out io.Writer, f scaffold) error {
	if _, err := os.Stat(f.path); err == nil {
		fmt.Fprintf(out, "  skip %s (already exists)\n", f.path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", f.path, err)
	}
	if err := os.WriteFile(f.path, []byte(f.content), f.mode); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	fmt.Fprintf(out, "  create %s\n", f.path)
	return nil
}

const ignoreTemplate = `# umbrella ignore patterns (gitignore syntax)
# Matching files are skipped when scanning directories.

# Maya autosaves and incremental saves
*.ma.swatches
autosave/
incrementalSave/

# Render output and caches
images/
cache/
*.abc

# Python bytecode
__pycache__/
*.pyc

# Version control
.git/
`

const preCommitTemplate = `#!/bin/sh
# umbrella pre-commit hook: block commits that add infected Maya files.
echo "Running umbrella scan on changed files..."
umbrella scan --changed --no-color .
exit $?
`

const workflowTemplate = `name: Umbrella Scan

on:
  push:
    branches: [main]
  pull_request:
    branches: [main]

permissions:
  security-events: write
  contents: read

jobs:
  umbrella:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4

      - uses: actions/setup-go@v5
        with:
          go-version: stable

      - name: Install umbrella
        run: go install github.com/umbrella-scan/umbrella/cmd/umbrella@latest

      - name: Scan Maya files
        id: scan
        continue-on-error: true
        run: umbrella scan . --format sarif --output results.sarif

      - name: Upload SARIF results
        if: always()
        uses: github/codeql-action/upload-sarif@v3
        with:
          sarif_file: results.sarif

      - name: Fail on infected files
        if: steps.scan.outcome == 'failure'
        run: exit 1
`
