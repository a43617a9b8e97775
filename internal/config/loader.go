package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nzmon/nzmon/internal/errors"
	"github.com/spf13/viper"
)

const (
	// GlobalConfigDir is the config directory relative to the home directory.
	GlobalConfigDir = ".config/nzmon"
	// GlobalConfigFile is the config file name inside GlobalConfigDir.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. NZMON_SERVER_URL.
	EnvPrefix = "NZMON"
)

// DefaultPath returns ~/.config/nzmon/config.yaml, or "" when the home
// directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// Find locates the config file:
// 1. explicit path (from --config), which must exist
// 2. ~/.config/nzmon/config.yaml
//
// Returns "" when no file exists.
func Find(explicit string) (string, error) {
	explicit = ExpandPath(explicit)
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path, or run 'nzmon settings' to create one")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	if path := DefaultPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", nil
}

// Load reads config from path, layering NZMON_* environment overrides and
// defaults underneath. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'nzmon settings' to create one, or point --config at an existing file")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file is valid YAML")
		}
	}

	cfg := DefaultConfig()
	// Viper supplies the default IDs; decoding into a populated slice would
	// leave stale trailing entries behind.
	cfg.Settings.ServerIDs = nil
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+displayPath(path))
	}
	cfg.Settings = cfg.Settings.Normalized()

	cfg.LegacyPath = ExpandPath(cfg.LegacyPath)
	if cfg.LegacyPath != "" {
		legacy, err := LoadLegacy(cfg.LegacyPath)
		if err != nil {
			return nil, err
		}
		cfg.Settings = legacy
	}

	return cfg, nil
}

// LoadOrDefault finds and loads the config, falling back to defaults (plus
// environment overrides) when no file exists. Returns the path that was
// loaded, or "" for defaults.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// newViper builds a viper instance with defaults and env binding. Every key
// gets a default so AutomaticEnv can see it during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("server_url", "")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("server_ids", def.Settings.ServerIDs)
	v.SetDefault("interval", def.Interval.String())
	v.SetDefault("timeout", def.Timeout.String())
	v.SetDefault("rate_limit", def.RateLimit)
	v.SetDefault("listen", def.Listen)
	v.SetDefault("legacy_path", "")
	return v
}

func displayPath(path string) string {
	if path == "" {
		return "your config"
	}
	return path
}
