package signatures

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// LoadFromFS loads signatures from an embed.FS or any fs.FS.
func LoadFromFS(fsys fs.FS) ([]RawSignature, error) {
	var all []RawSignature
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		sigs, err := parseMultiDocYAML(data)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		all = append(all, sigs...)
		return nil
	})
	return all, err
}

// maxSignatureFileSize is the maximum size for a single YAML signature file (1 MB).
const maxSignatureFileSize = 1 << 20

// LoadFromDir loads signatures from a directory on disk. Oversized files
// are skipped with a warning on logger. Unknown YAML keys are rejected.
func LoadFromDir(dir string, logger *log.Logger) ([]RawSignature, error) {
	if logger == nil {
		logger = log.Default()
	}
	var all []RawSignature
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxSignatureFileSize {
			logger.Warn("skipping oversized signature file", "path", path, "size", info.Size(), "max", maxSignatureFileSize)
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		sigs, err := parseMultiDocYAML(data)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		all = append(all, sigs...)
		return nil
	})
	return all, err
}

// parseMultiDocYAML splits a YAML file on "---" boundaries and parses each document.
func parseMultiDocYAML(data []byte) ([]RawSignature, error) {
	var sigs []RawSignature
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	for {
		var raw RawSignature
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if raw.ID != "" {
			sigs = append(sigs, raw)
		}
	}
	return sigs, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
