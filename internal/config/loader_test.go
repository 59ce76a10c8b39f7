package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile writes content to the default gapd config location with
// secure permissions and returns the path. The file is removed on cleanup.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	dir := filepath.Join(home, ".config", "gapd")
	require.NoError(t, os.MkdirAll(dir, 0700))

	path := filepath.Join(dir, "config_test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Cleanup(func() { os.Remove(path) })

	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := Load(filepath.Join(home, ".config", "gapd", "does_not_exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 9270, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Detection.WindowSize)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfigFile(t, `
server:
  http_port: 8088
detection:
  window_size: 250
  lookback: 168h
reasoning:
  model: test-model
  api_key: sk-test
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 250, cfg.Detection.WindowSize)
	assert.Equal(t, 7*24*time.Hour, cfg.Detection.Lookback.Duration())
	assert.Equal(t, "test-model", cfg.Reasoning.Model)
	assert.Equal(t, "sk-test", cfg.Reasoning.APIKey.Value())
	// Unset fields still get defaults.
	assert.Equal(t, 2, cfg.Detection.MinClusterSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  http_port: 8088
`)

	t.Setenv("SERVER_HTTP_PORT", "9999")
	t.Setenv("DETECTION_MAX_CLUSTERS", "20")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Detection.MaxClusters)
}

func TestLoad_SectionOntoDefaults(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  output:
    otel: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	section := struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
		Output struct {
			Stdout bool `koanf:"stdout"`
			OTEL   bool `koanf:"otel"`
		} `koanf:"output"`
	}{Level: "info", Format: "json"}
	section.Output.Stdout = true

	require.NoError(t, cfg.Section("logging", &section))

	assert.Equal(t, "debug", section.Level)
	assert.True(t, section.Output.OTEL)
	// Keys absent from the file keep the caller's defaults.
	assert.Equal(t, "json", section.Format)
	assert.True(t, section.Output.Stdout)
}

func TestLoad_RejectsInsecurePermissions(t *testing.T) {
	path := writeConfigFile(t, "server:\n  http_port: 8088\n")
	require.NoError(t, os.Chmod(path, 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoad_RejectsPathOutsideAllowedDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: {}\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be in")
}
