package scanner

import (
	"os/exec"
	"path/filepath"
	"strings"
)

// GitChangedFiles returns files under root that are modified, staged, or
// untracked in its git repository, as paths joined to root. Binary
// extensions are dropped. Outside a git repository, or without a git
// binary, it returns nothing and no error.
func GitChangedFiles(root string) ([]string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, nil
	}
	if _, err := runGit(root, "rev-parse", "--git-dir"); err != nil {
		return nil, nil
	}

	seen := make(map[string]bool)
	var files []string
	add := func(out string) {
		for _, f := range splitLines(out) {
			if f == "" || seen[f] || isBinaryExt(f) {
				continue
			}
			seen[f] = true
			files = append(files, filepath.Join(root, filepath.FromSlash(f)))
		}
	}

	// Repos without a first commit have no HEAD to diff against.
	out, err := runGit(root, "diff", "--name-only", "--relative", "HEAD")
	if err != nil {
		out, err = runGit(root, "diff", "--name-only", "--relative", "--cached")
		if err != nil {
			return nil, nil
		}
	}
	add(out)

	if out, err := runGit(root, "ls-files", "--others", "--exclude-standard"); err == nil {
		add(out)
	}
	return files, nil
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
