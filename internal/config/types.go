package config

import (
	"strings"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
const CurrentConfigVersion = 1

// MaxServers is the maximum number of server IDs that can be tracked at once.
const MaxServers = 6

// Poll defaults.
const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 10 * time.Second
	DefaultListen   = "127.0.0.1:7878"
)

// FallbackServerID is used when a stored ID list is empty or unparseable.
const FallbackServerID = 7

// Settings is the data exchanged with the settings surface: where the
// dashboard lives, how to log in, and which servers to show.
type Settings struct {
	// ServerURL is the dashboard base URL, e.g. https://status.example.com.
	// The /api/v1 prefix is added by the client.
	ServerURL string `yaml:"server_url" mapstructure:"server_url" json:"server_url" validate:"required,url"`

	Username string `yaml:"username" mapstructure:"username" json:"username" validate:"required"`
	Password string `yaml:"password" mapstructure:"password" json:"password,omitempty"`

	// ServerIDs is the ordered list of tracked servers. Order is display
	// order; duplicates are allowed.
	ServerIDs []int `yaml:"server_ids" mapstructure:"server_ids" json:"server_ids" validate:"min=1,max=6,dive,gt=0"`
}

// Configured reports whether there is enough to build an API client.
func (s Settings) Configured() bool {
	return strings.TrimSpace(s.ServerURL) != ""
}

// Normalized returns a copy with surrounding whitespace and trailing
// slashes removed from the URL and username.
func (s Settings) Normalized() Settings {
	out := s
	out.ServerURL = strings.TrimRight(strings.TrimSpace(s.ServerURL), "/")
	out.Username = strings.TrimSpace(s.Username)
	out.ServerIDs = append([]int(nil), s.ServerIDs...)
	return out
}

// RedactedPassword replaces a non-empty password in Redacted output.
const RedactedPassword = "********"

// Redacted returns a copy safe for display and logs.
func (s Settings) Redacted() Settings {
	out := s.Normalized()
	if out.Password != "" {
		out.Password = RedactedPassword
	}
	return out
}

// WithPasswordFrom returns a copy that keeps prev's password when s carries
// the redaction marker, so a redacted copy can be edited and sent back.
func (s Settings) WithPasswordFrom(prev Settings) Settings {
	out := s
	if out.Password == RedactedPassword {
		out.Password = prev.Password
	}
	return out
}

// Config is the complete nzmon configuration file.
type Config struct {
	Version  int      `yaml:"version" mapstructure:"version"`
	Settings Settings `yaml:",inline" mapstructure:",squash"`

	// Interval between poll cycles for the watch and serve commands.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// Timeout bounds each individual HTTP request to the dashboard.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// RateLimit caps outgoing API requests per second; 0 disables the limit.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`

	// Listen is the address for the HTTP host started by 'nzmon serve'.
	Listen string `yaml:"listen" mapstructure:"listen"`

	// LegacyPath points at a nezha_config.txt file to read settings from
	// instead of this file. Writes go back to the same file.
	LegacyPath string `yaml:"legacy_path" mapstructure:"legacy_path"`
}

// DefaultSettings returns the settings used before anything is configured.
func DefaultSettings() Settings {
	return Settings{
		ServerIDs: []int{1, 2, 3},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:   CurrentConfigVersion,
		Settings:  DefaultSettings(),
		Interval:  DefaultInterval,
		Timeout:   DefaultTimeout,
		RateLimit: 0,
		Listen:    DefaultListen,
	}
}
