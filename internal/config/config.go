// Package config loads .umbrella.yml configuration files: signature
// selection, ignore patterns, and scan settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/umbrella-scan/umbrella/internal/detector"
)

// FileNames are the config file names looked up, in order.
var FileNames = []string{".umbrella.yml", ".umbrella.yaml"}

const maxConfigSize = 1 << 20

// Config represents the .umbrella.yml configuration file.
type Config struct {
	Paths              []string `yaml:"paths,omitempty"`
	Sets               []string `yaml:"sets,omitempty"`
	Signatures         []string `yaml:"signatures,omitempty"`
	SignaturesDir      string   `yaml:"signatures_dir,omitempty"`
	DisabledSignatures []string `yaml:"disabled_signatures,omitempty"`
	Ignore             []string `yaml:"ignore,omitempty"`
	Engine             string   `yaml:"engine,omitempty"`
	Workers            int      `yaml:"workers,omitempty"`
	Timeout            string   `yaml:"timeout,omitempty"`
	Format             string   `yaml:"format,omitempty"`
	FailOnInfected     *bool    `yaml:"fail_on_infected,omitempty"`
	Strict             bool     `yaml:"strict,omitempty"`
	Decode             bool     `yaml:"decode,omitempty"`
}

// Load reads the .umbrella.yml or .umbrella.yaml config file from the given path.
// If path is a file, its parent directory is used. If no config file is found,
// it returns a zero Config (not an error).
func Load(dir string) (Config, error) {
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
		if info.Size() > maxConfigSize {
			return Config{}, fmt.Errorf("config file too large: %s (%d bytes, max 1 MB)", path, info.Size())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		if err := cfg.Validate(); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		if cfg.SignaturesDir != "" && !filepath.IsAbs(cfg.SignaturesDir) {
			cfg.SignaturesDir = filepath.Join(dir, cfg.SignaturesDir)
		}
		return cfg, nil
	}
	return Config{}, nil
}

// Validate checks values that can be rejected without touching the disk.
func (c Config) Validate() error {
	if _, err := detector.ParseEngine(c.Engine); err != nil {
		return err
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// TimeoutDuration parses Timeout. An empty value means no timeout.
func (c Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: negative", c.Timeout)
	}
	return d, nil
}

// Template is the starter config written by "umbrella init".
const Template = `# umbrella configuration
# Signature sets to use (file, jobscript, virus20240430).
sets:
  - file

# Extra patterns, matched in addition to the selected sets.
# signatures:
#   - "import vaccine"

# Directory of custom YAML signatures.
# signatures_dir: signatures/

# Signature IDs to skip.
# disabled_signatures:
#   - JOB_USER_SETUP

# Gitignore-style patterns excluded from directory scans.
ignore:
  - "*.bak"

# Regex engine: re2 or pcre.
engine: re2

# Per-file load timeout, e.g. 5s. Empty means none.
# timeout: 5s

# Output format: terminal, json, markdown, html, sarif.
format: terminal

# Exit with status 1 when an infected file is found.
fail_on_infected: true

# Treat files that could not be read as failures.
strict: false

# Also match inside base64 and hex blobs.
decode: false
`
