package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cboone/pageready/internal/config"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		config.ConfigPathEnv,
		"PAGEREADY_BASE_URL", "FOSSFLOW_TEST_URL",
		"PAGEREADY_REMOTE_URL", "WEBDRIVER_URL",
		"PAGEREADY_DRIVER", "PAGEREADY_LOG_LEVEL", "PAGEREADY_ARTIFACTS_DIR",
		"PAGEREADY_IMPLICIT_WAIT", "PAGEREADY_HEADLESS", "PAGEREADY_PLAYWRIGHT_INSTALL",
		"PAGEREADY_CHROME_PATH",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, "http://localhost:3000", cfg.BaseURL)
	assert.Equal(t, "http://localhost:4444", cfg.RemoteURL)
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGEREADY_BASE_URL", "http://app.internal:8080")
	t.Setenv("PAGEREADY_DRIVER", "playwright")
	t.Setenv("PAGEREADY_IMPLICIT_WAIT", "3s")
	t.Setenv("PAGEREADY_HEADLESS", "false")

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://app.internal:8080", cfg.BaseURL)
	assert.Equal(t, config.DriverPlaywright, cfg.Driver)
	assert.Equal(t, 3*time.Second, cfg.ImplicitWait)
	assert.False(t, cfg.Headless)
}

func TestLoadLegacyEnvironmentNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("FOSSFLOW_TEST_URL", "http://legacy:3000")
	t.Setenv("WEBDRIVER_URL", "http://grid:4444")

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://legacy:3000", cfg.BaseURL)
	assert.Equal(t, "http://grid:4444", cfg.RemoteURL)
}

func TestLoadFileThenEnvThenOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "pageready.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://file:1\nlog_level: debug\nremote_url: local\n"), 0o644))
	t.Setenv(config.ConfigPathEnv, path)
	t.Setenv("PAGEREADY_LOG_LEVEL", "warn")

	cfg, err := config.Load(map[string]any{"base_url": "http://flag:2"})
	require.NoError(t, err)
	assert.Equal(t, "http://flag:2", cfg.BaseURL)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.Local())
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.ConfigPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"defaults", func(*config.Config) {}, ""},
		{"local remote", func(c *config.Config) { c.RemoteURL = config.RemoteLocal }, ""},
		{"relative base", func(c *config.Config) { c.BaseURL = "localhost" }, "base_url"},
		{"bad remote", func(c *config.Config) { c.RemoteURL = "::" }, "remote_url"},
		{"unknown driver", func(c *config.Config) { c.Driver = "selenium" }, "unknown driver"},
		{"zero wait", func(c *config.Config) { c.ImplicitWait = 0 }, "implicit_wait"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := config.Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
