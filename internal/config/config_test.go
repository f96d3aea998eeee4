package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/umbrella-scan/umbrella/internal/config"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`
paths:
  - scripts/
sets:
  - file
  - jobscript
signatures:
  - "import vaccine"
signatures_dir: custom-signatures/
disabled_signatures:
  - JOB_USER_SETUP
ignore:
  - "*.bak"
  - vendor/
engine: pcre
workers: 4
timeout: 3s
format: sarif
fail_on_infected: false
strict: true
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".umbrella.yml"), data, 0644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"scripts/"}, cfg.Paths)
	require.Equal(t, []string{"file", "jobscript"}, cfg.Sets)
	require.Equal(t, []string{"import vaccine"}, cfg.Signatures)
	require.Equal(t, filepath.Join(dir, "custom-signatures"), cfg.SignaturesDir)
	require.Equal(t, []string{"JOB_USER_SETUP"}, cfg.DisabledSignatures)
	require.Equal(t, []string{"*.bak", "vendor/"}, cfg.Ignore)
	require.Equal(t, "pcre", cfg.Engine)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, "sarif", cfg.Format)
	require.NotNil(t, cfg.FailOnInfected)
	require.False(t, *cfg.FailOnInfected)
	require.True(t, cfg.Strict)

	d, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, d)
}

func TestLoadConfigYAMLExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".umbrella.yaml"), []byte("engine: re2\n"), 0644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.Equal(t, "re2", cfg.Engine)
}

func TestLoadConfigYMLWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".umbrella.yml"), []byte("format: json\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".umbrella.yaml"), []byte("format: sarif\n"), 0644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.Equal(t, "json", cfg.Format)
}

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, config.Config{}, cfg)
}

func TestLoadConfigFromFilePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".umbrella.yml"), []byte("workers: 2\n"), 0644))
	script := filepath.Join(dir, "userSetup.py")
	require.NoError(t, os.WriteFile(script, []byte("print(1)\n"), 0644))

	cfg, err := config.Load(script)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Workers)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":    "sets: [file\n",
		"bad engine":  "engine: hyperscan\n",
		"bad timeout": "timeout: soon\n",
		"neg timeout": "timeout: -1s\n",
		"neg workers": "workers: -3\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, ".umbrella.yml"), []byte(body), 0644))
			_, err := config.Load(dir)
			require.Error(t, err)
		})
	}
}

func TestLoadConfigTooLarge(t *testing.T) {
	dir := t.TempDir()
	big := "# " + strings.Repeat("x", 1<<20) + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".umbrella.yml"), []byte(big), 0644))
	_, err := config.Load(dir)
	require.ErrorContains(t, err, "config file too large")
}

func TestTemplateParses(t *testing.T) {
	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(config.Template), &cfg))
	require.NoError(t, cfg.Validate())
	require.Equal(t, []string{"file"}, cfg.Sets)
	require.True(t, *cfg.FailOnInfected)
}
