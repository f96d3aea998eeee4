package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFile is read from the root of every directory scan.
const IgnoreFile = ".umbrellaignore"

// TargetDiscovery walks a directory and returns the files worth scanning.
type TargetDiscovery struct {
	IgnorePatterns []string
}

// Discover walks root and returns file paths in lexical order, respecting
// .umbrellaignore and the configured ignore patterns.
func (td *TargetDiscovery) Discover(root string) ([]string, error) {
	matcher := td.compileIgnore(root)

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible files
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			switch d.Name() {
			case ".git", "node_modules", ".umbrella", "__pycache__":
				return filepath.SkipDir
			}
			if matcher.MatchesPath(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || isBinaryExt(path) {
			return nil
		}
		if d.Name() == IgnoreFile || matcher.MatchesPath(rel) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

func (td *TargetDiscovery) compileIgnore(root string) *ignore.GitIgnore {
	lines := append([]string(nil), td.IgnorePatterns...)
	if data, err := os.ReadFile(filepath.Join(root, IgnoreFile)); err == nil {
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	return ignore.CompileIgnoreLines(lines...)
}

var binaryExts = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".ico": true, ".tif": true, ".tiff": true, ".exr": true,
	".hdr": true, ".tx": true, ".zip": true, ".tar": true,
	".gz": true, ".bz2": true, ".xz": true, ".7z": true,
	".pdf": true, ".mp3": true, ".mp4": true, ".mov": true,
	".mb": true, ".fbx": true, ".abc": true, ".obj": true,
	".pyc": true, ".pyd": true, ".mll": true, ".bundle": true,
}

func isBinaryExt(path string) bool {
	return binaryExts[strings.ToLower(filepath.Ext(path))]
}
