// Package discover locates the places Maya loads scripts from on this
// machine, and the well-known files that script worms drop there.
package discover

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// File is a discovered file worth scanning on its own.
type File struct {
	Path   string `json:"path"`
	Reason Reason `json:"reason"`
}

// Result holds the full discovery output.
type Result struct {
	AppDir      string   `json:"app_dir"`
	InstallRoot string   `json:"install_root,omitempty"`
	ScriptDirs  []string `json:"script_dirs"`
	Files       []File   `json:"files"`
}

// Paths returns script directories followed by files, for handing to a
// scanner that expands directories.
func (r *Result) Paths() []string {
	out := append([]string(nil), r.ScriptDirs...)
	for _, f := range r.Files {
		out = append(out, f.Path)
	}
	return out
}

// Empty reports whether nothing was found.
func (r *Result) Empty() bool {
	return len(r.ScriptDirs) == 0 && len(r.Files) == 0
}

// Scan discovers script locations using the current environment.
func Scan() (*Result, error) {
	return ScanEnv(DefaultEnv())
}

// ScanEnv discovers script locations for env. Only existing paths are
// returned.
func ScanEnv(env Env) (*Result, error) {
	result := &Result{AppDir: env.AppDir, InstallRoot: env.InstallRoot}
	result.ScriptDirs = scriptDirs(env.AppDir)

	seen := map[string]bool{}
	add := func(path string, reason Reason) {
		if !seen[path] && isFile(path) {
			seen[path] = true
			result.Files = append(result.Files, File{Path: path, Reason: reason})
		}
	}

	for _, dir := range result.ScriptDirs {
		for _, f := range scriptFiles {
			add(filepath.Join(dir, f.name), f.reason)
		}
	}
	if env.InstallRoot != "" {
		for _, f := range installFiles {
			matches, err := filepath.Glob(filepath.Join(env.InstallRoot, filepath.FromSlash(f.pattern)))
			if err != nil {
				return nil, fmt.Errorf("install pattern %s: %w", f.pattern, err)
			}
			sort.Strings(matches)
			for _, m := range matches {
				add(m, f.reason)
			}
		}
	}
	if env.AppData != "" {
		add(filepath.Join(env.AppData, "syssst"), ReasonArtifact)
	}
	return result, nil
}

// FormatTree returns a human-readable tree of discovered locations.
func FormatTree(result *Result) string {
	if result.Empty() {
		return fmt.Sprintf("No Maya script locations found.\n\nChecked user app dir: %s\n", orNone(result.AppDir))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Maya user app dir: %s\n", orNone(result.AppDir))
	if result.InstallRoot != "" {
		fmt.Fprintf(&b, "Maya install root: %s\n", result.InstallRoot)
	}
	b.WriteString("\n")

	if len(result.ScriptDirs) > 0 {
		b.WriteString("  Script directories\n")
		for i, d := range result.ScriptDirs {
			fmt.Fprintf(&b, "    %s %s\n", branch(i, len(result.ScriptDirs)), d)
		}
		b.WriteString("\n")
	}
	if len(result.Files) > 0 {
		b.WriteString("  Files\n")
		for i, f := range result.Files {
			fmt.Fprintf(&b, "    %s %-20s %s\n", branch(i, len(result.Files)), f.Reason, f.Path)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Total: %d script directories, %d files\n", len(result.ScriptDirs), len(result.Files))
	return b.String()
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
