package config

import (
	"testing"
	"time"

	"github.com/nzmon/nzmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSettings(t *testing.T) {
	valid := Settings{
		ServerURL: "https://status.example.com",
		Username:  "admin",
		Password:  "pw",
		ServerIDs: []int{1, 2},
	}

	tests := []struct {
		name        string
		mutate      func(*Settings)
		wantErr     bool
		errContains string
	}{
		{
			name:   "valid",
			mutate: func(*Settings) {},
		},
		{
			name:   "empty password allowed",
			mutate: func(s *Settings) { s.Password = "" },
		},
		{
			name:        "missing url",
			mutate:      func(s *Settings) { s.ServerURL = "" },
			wantErr:     true,
			errContains: "Server URL is required",
		},
		{
			name:        "not a url",
			mutate:      func(s *Settings) { s.ServerURL = "status example" },
			wantErr:     true,
			errContains: "doesn't look like a URL",
		},
		{
			name:        "missing username",
			mutate:      func(s *Settings) { s.Username = "" },
			wantErr:     true,
			errContains: "Username is required",
		},
		{
			name:        "no ids",
			mutate:      func(s *Settings) { s.ServerIDs = nil },
			wantErr:     true,
			errContains: "At least one server ID",
		},
		{
			name:        "too many ids",
			mutate:      func(s *Settings) { s.ServerIDs = []int{1, 2, 3, 4, 5, 6, 7} },
			wantErr:     true,
			errContains: "at most 6",
		},
		{
			name:   "six ids is the cap",
			mutate: func(s *Settings) { s.ServerIDs = []int{1, 2, 3, 4, 5, 6} },
		},
		{
			name:        "non-positive id",
			mutate:      func(s *Settings) { s.ServerIDs = []int{1, 0} },
			wantErr:     true,
			errContains: "positive integers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			s.ServerIDs = append([]int(nil), valid.ServerIDs...)
			tt.mutate(&s)

			err := ValidateSettings(s)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{"defaults ok", func(*Config) {}, ""},
		{"newer version", func(c *Config) { c.Version = 99 }, "newer nzmon"},
		{"interval too short", func(c *Config) { c.Interval = 100 * time.Millisecond }, "Interval too short"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "Timeout must be positive"},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "rate_limit"},
		{"settings left to CheckLoaded", func(c *Config) {
			c.Settings.ServerURL = "status.example.com"
			c.Settings.ServerIDs = []int{1, 2, 3, 4, 5, 6, 7}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestCheckLoaded(t *testing.T) {
	tests := []struct {
		name     string
		in       Settings
		wantIDs  []int
		warnings []string
	}{
		{
			name:    "valid settings pass untouched",
			in:      Settings{ServerURL: "https://a.example.com", Username: "admin", ServerIDs: []int{1, 2}},
			wantIDs: []int{1, 2},
		},
		{
			name:     "too many ids are truncated",
			in:       Settings{ServerURL: "https://a.example.com", Username: "admin", ServerIDs: []int{1, 2, 3, 4, 5, 6, 7, 8}},
			wantIDs:  []int{1, 2, 3, 4, 5, 6},
			warnings: []string{"tracking only the first 6 (1,2,3,4,5,6)"},
		},
		{
			name:     "url without scheme is a warning",
			in:       Settings{ServerURL: "status.example.com", Username: "admin", ServerIDs: []int{3}},
			wantIDs:  []int{3},
			warnings: []string{"doesn't look like a URL"},
		},
		{
			name:    "unconfigured is left alone",
			in:      Settings{ServerIDs: []int{1}},
			wantIDs: []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := CheckLoaded(tt.in)
			assert.Equal(t, tt.wantIDs, got.ServerIDs)
			assert.Equal(t, tt.in.ServerURL, got.ServerURL)
			require.Len(t, warnings, len(tt.warnings))
			for i, w := range tt.warnings {
				assert.Contains(t, warnings[i], w)
			}
		})
	}
}

func TestCheckLoadedDoesNotAlias(t *testing.T) {
	in := Settings{ServerURL: "https://a.example.com", Username: "u", ServerIDs: []int{1, 2, 3, 4, 5, 6, 7}}
	got, _ := CheckLoaded(in)
	got.ServerIDs[0] = 99
	assert.Equal(t, 1, in.ServerIDs[0])
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		input   string
		want    []int
		wantErr bool
	}{
		{"1,2,3", []int{1, 2, 3}, false},
		{" 7 , 2 ", []int{7, 2}, false},
		{"5,,6,", []int{5, 6}, false},
		{"", nil, true},
		{"1,x", nil, true},
		{"0", nil, true},
		{"-3", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseIDs(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatIDs(t *testing.T) {
	assert.Equal(t, "1,7,2", FormatIDs([]int{1, 7, 2}))
	assert.Equal(t, "", FormatIDs(nil))
}
