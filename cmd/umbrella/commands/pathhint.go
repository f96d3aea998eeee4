package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// checkPathHint prints a one-time hint to w when the umbrella binary lives
// in a go/bin directory that is not on PATH. Errors are ignored.
func checkPathHint(w io.Writer) {
	exe, err := os.Executable()
	if err != nil {
		return
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return
	}
	dir := filepath.Dir(exe)
	if !isGoBinDir(dir) || dirInPATH(dir) {
		return
	}
	showPathHint(w, hintMarkerPath())
}

// showPathHint prints the hint unless marker exists, then creates marker.
// An empty marker disables the hint.
func showPathHint(w io.Writer, marker string) bool {
	if marker == "" {
		return false
	}
	if _, err := os.Stat(marker); err == nil {
		return false
	}

	rc := shellConfigFile()
	fmt.Fprintf(w, "\nTip: Add Go's bin directory to your PATH to run umbrella from anywhere:\n\n")
	fmt.Fprintf(w, "  echo 'export PATH=\"$HOME/go/bin:$PATH\"' >> %s\n", rc)
	fmt.Fprintf(w, "  source %s\n\n", rc)

	_ = os.MkdirAll(filepath.Dir(marker), 0o755)
	_ = os.WriteFile(marker, nil, 0o644)
	return true
}

func isGoBinDir(dir string) bool {
	return strings.HasSuffix(filepath.ToSlash(dir), "/go/bin")
}

func dirInPATH(dir string) bool {
	return slices.Contains(filepath.SplitList(os.Getenv("PATH")), dir)
}

// shellConfigFile guesses the rc file from $SHELL, falling back to zsh on
// macOS and bash elsewhere.
func shellConfigFile() string {
	shell := os.Getenv("SHELL")
	switch {
	case strings.Contains(shell, "zsh"):
		return "~/.zshrc"
	case strings.Contains(shell, "bash"):
		return "~/.bashrc"
	case runtime.GOOS == "darwin":
		return "~/.zshrc"
	default:
		return "~/.bashrc"
	}
}

// hintMarkerPath returns "" when the home directory is unknown.
func hintMarkerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".umbrella", ".path-hint-shown")
}
