// Package config loads the process configuration for nsfsctl: the config
// root directory, its backend, the GlacierWAL log directories, the upgrade
// script directory, and the various probe/wait timeouts.
//
// Configuration sources, in order of precedence:
//  1. CLI flags (highest priority)
//  2. Environment variables (NSFS_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/nsfscore/nsfsctl/pkg/configfs"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the static process configuration for nsfsctl.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ConfigRoot is the POSIX directory holding accounts/, buckets/,
	// access_keys/ and system.json.
	ConfigRoot string `mapstructure:"config_root" validate:"required" yaml:"config_root"`

	// ConfigRootBackend selects the atomic-replace strategy used when
	// writing into ConfigRoot: "none" (plain rename) or "gpfs" (linkat-based
	// replace emulation for clustered filesystems).
	ConfigRootBackend string `mapstructure:"config_root_backend" validate:"omitempty,oneof=none gpfs" yaml:"config_root_backend"`

	// Glacier configures the GlacierWAL append logs.
	Glacier GlacierConfig `mapstructure:"glacier" yaml:"glacier"`

	// Upgrade configures the UpgradeController.
	Upgrade UpgradeConfig `mapstructure:"upgrade" yaml:"upgrade"`

	// Identity configures identity-probe behavior.
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// GlacierConfig configures the newline-framed append-only WAL logs used to
// queue Glacier migrate/restore work, and the backend those jobs drive.
type GlacierConfig struct {
	// LogsDir is the directory holding the migrate/restore WAL segments.
	// Overridden by NSFS_GLACIER_LOGS_DIR.
	LogsDir string `mapstructure:"logs_dir" validate:"required" yaml:"logs_dir"`

	// MaxActiveAge is loaded from configuration (default 24h); no code in
	// this module schedules WAL swaps from it.
	MaxActiveAge time.Duration `mapstructure:"max_active_age" yaml:"max_active_age"`

	// Backend configures the cold-storage driver migrate/restore jobs call
	// into. Empty Bucket means no backend is configured and
	// glacier.NullBackend is used instead.
	Backend GlacierBackendConfig `mapstructure:"backend" yaml:"backend"`
}

// GlacierBackendConfig configures pkg/glacier/s3backend's S3-compatible
// storage-class transition driver.
type GlacierBackendConfig struct {
	// Bucket, when set, selects the S3-compatible backend; empty leaves
	// migrate/restore jobs running against glacier.NullBackend.
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

// UpgradeConfig configures the UpgradeController.
type UpgradeConfig struct {
	// ScriptsDir is loaded from configuration but not read by the upgrade
	// controller; the scripts it runs are the compiled-in registry plus any
	// listed under CustomScriptsDir.
	ScriptsDir string `mapstructure:"scripts_dir" yaml:"scripts_dir"`

	// CustomScriptsDir, when set, is searched for external executable
	// upgrade scripts in addition to the compiled-in registry.
	CustomScriptsDir string `mapstructure:"custom_scripts_dir" yaml:"custom_scripts_dir"`
}

// IdentityConfig configures identity resolution and probing.
type IdentityConfig struct {
	// ProbeTimeout is loaded from configuration (default 10s) but not
	// passed to the new_buckets_path probe, which ManageAPI runs with its
	// own fixed five-second timeout.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
}

// ConfigRootBackendKind converts the loaded string into a configfs.Backend.
func (c *Config) ConfigRootBackendKind() configfs.Backend {
	switch strings.ToLower(c.ConfigRootBackend) {
	case "gpfs":
		return configfs.BackendGPFS
	default:
		return configfs.BackendNone
	}
}

const envPrefix = "NSFS"

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	} else {
		// No file: still let env vars (e.g. NSFS_CONFIG_ROOT) override
		// the compiled-in defaults via viper's AutomaticEnv binding.
		bindDefaultsForEnv(v, cfg)
		if err := v.Unmarshal(cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyLegacyEnvOverrides(cfg)

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stderr",
		},
		ConfigRoot:        defaultConfigRoot(),
		ConfigRootBackend: "none",
		Glacier: GlacierConfig{
			LogsDir:      filepath.Join(defaultConfigRoot(), "glacier_logs"),
			MaxActiveAge: 24 * time.Hour,
		},
		Upgrade: UpgradeConfig{
			ScriptsDir: "",
		},
		Identity: IdentityConfig{
			ProbeTimeout: 10 * time.Second,
		},
	}
}

func defaultConfigRoot() string {
	if v := os.Getenv("NSFS_NC_DEFAULT_CONF_DIR"); v != "" {
		return v
	}
	return "/etc/nsfs"
}

// applyLegacyEnvOverrides applies the spec's named environment variables
// that don't follow the NSFS_<FIELD> viper convention directly.
func applyLegacyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NSFS_NC_DEFAULT_CONF_DIR"); v != "" {
		cfg.ConfigRoot = v
	}
	if v := os.Getenv("NSFS_GLACIER_LOGS_DIR"); v != "" {
		cfg.Glacier.LogsDir = v
	}
}

// RandomSeedDisabled reports whether DISABLE_INIT_RANDOM_SEED is set to
// 1, true or yes (case-insensitive). No other code in this module reads it.
func RandomSeedDisabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DISABLE_INIT_RANDOM_SEED")))
	return v == "1" || v == "true" || v == "yes"
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func getConfigDir() string {
	if dir := os.Getenv("NSFS_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "/etc/nsfs"
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// bindDefaultsForEnv seeds viper with the zero-config defaults so
// AutomaticEnv lookups have a typed fallback to decode against.
func bindDefaultsForEnv(v *viper.Viper, cfg *Config) {
	v.SetDefault("config_root", cfg.ConfigRoot)
	v.SetDefault("config_root_backend", cfg.ConfigRootBackend)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
	v.SetDefault("glacier.logs_dir", cfg.Glacier.LogsDir)
	v.SetDefault("glacier.max_active_age", cfg.Glacier.MaxActiveAge)
	v.SetDefault("glacier.backend.bucket", cfg.Glacier.Backend.Bucket)
	v.SetDefault("glacier.backend.region", cfg.Glacier.Backend.Region)
	v.SetDefault("glacier.backend.endpoint", cfg.Glacier.Backend.Endpoint)
	v.SetDefault("glacier.backend.access_key_id", cfg.Glacier.Backend.AccessKeyID)
	v.SetDefault("glacier.backend.secret_access_key", cfg.Glacier.Backend.SecretAccessKey)
	v.SetDefault("upgrade.scripts_dir", cfg.Upgrade.ScriptsDir)
	v.SetDefault("upgrade.custom_scripts_dir", cfg.Upgrade.CustomScriptsDir)
	v.SetDefault("identity.probe_timeout", cfg.Identity.ProbeTimeout)
}

// durationDecodeHook lets YAML/env values like "30s" decode into
// time.Duration fields, matching the teacher's config decode-hook pattern.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch val := data.(type) {
		case string:
			return time.ParseDuration(val)
		case int:
			return time.Duration(val), nil
		case int64:
			return time.Duration(val), nil
		case float64:
			return time.Duration(val), nil
		default:
			return data, nil
		}
	}
}
