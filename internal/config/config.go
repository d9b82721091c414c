// Package config loads pageready settings from defaults, an optional YAML
// file, the environment, and explicit overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Driver names accepted in Config.Driver.
const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

// RemoteLocal as the remote URL launches a local browser instead of
// connecting to an endpoint.
const RemoteLocal = "local"

// ConfigPathEnv names the environment variable holding a YAML config path.
const ConfigPathEnv = "PAGEREADY_CONFIG"

// Config is the effective configuration.
type Config struct {
	BaseURL           string        `mapstructure:"base_url"`
	RemoteURL         string        `mapstructure:"remote_url"`
	Driver            string        `mapstructure:"driver"`
	LogLevel          string        `mapstructure:"log_level"`
	ArtifactsDir      string        `mapstructure:"artifacts_dir"`
	ImplicitWait      time.Duration `mapstructure:"implicit_wait"`
	Headless          bool          `mapstructure:"headless"`
	PlaywrightInstall bool          `mapstructure:"playwright_install"`

	// ChromePath is the local browser binary. Empty means a $PATH lookup.
	ChromePath string `mapstructure:"chrome_path"`
}

// Default returns the built-in defaults: the application on localhost:3000
// and the browser endpoint on localhost:4444.
func Default() Config {
	return Config{
		BaseURL:      "http://localhost:3000",
		RemoteURL:    "http://localhost:4444",
		Driver:       DriverChromedp,
		LogLevel:     "info",
		ImplicitWait: 10 * time.Second,
		Headless:     true,
	}
}

// envAliases are extra variable names honoured for a key, after the
// PAGEREADY_ one.
var envAliases = map[string][]string{
	"base_url":   {"FOSSFLOW_TEST_URL"},
	"remote_url": {"WEBDRIVER_URL"},
}

// Load returns the effective configuration. Overrides use the mapstructure
// key names and win over everything else.
func Load(overrides map[string]any) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(ConfigPathEnv); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := bindEnv(v); err != nil {
		return Config{}, err
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("remote_url", def.RemoteURL)
	v.SetDefault("driver", def.Driver)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("artifacts_dir", def.ArtifactsDir)
	v.SetDefault("implicit_wait", def.ImplicitWait)
	v.SetDefault("headless", def.Headless)
	v.SetDefault("playwright_install", def.PlaywrightInstall)
	v.SetDefault("chrome_path", def.ChromePath)
}

func bindEnv(v *viper.Viper) error {
	for _, key := range []string{
		"base_url", "remote_url", "driver", "log_level",
		"artifacts_dir", "implicit_wait", "headless", "playwright_install",
		"chrome_path",
	} {
		names := append([]string{"PAGEREADY_" + strings.ToUpper(key)}, envAliases[key]...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks a configuration for values no session could use.
func Validate(cfg Config) error {
	var errs []error
	if err := checkURL("base_url", cfg.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if cfg.RemoteURL != RemoteLocal {
		if err := checkURL("remote_url", cfg.RemoteURL); err != nil {
			errs = append(errs, err)
		}
	}
	switch cfg.Driver {
	case DriverChromedp, DriverPlaywright:
	default:
		errs = append(errs, fmt.Errorf("driver: unknown driver %q (want %s or %s)", cfg.Driver, DriverChromedp, DriverPlaywright))
	}
	if cfg.ImplicitWait <= 0 {
		errs = append(errs, fmt.Errorf("implicit_wait: must be positive, got %v", cfg.ImplicitWait))
	}
	return errors.Join(errs...)
}

func checkURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s: %q is not an absolute URL", key, raw)
	}
	return nil
}

// Local reports whether the configuration asks for a locally launched
// browser.
func (c Config) Local() bool {
	return c.RemoteURL == RemoteLocal
}
