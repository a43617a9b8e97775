package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nzmon/nzmon/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report yaml key names so messages match what users write.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateSettings checks settings coming from the settings surface. The
// tracked server cap is enforced here rather than by a fixed-size display.
func ValidateSettings(s Settings) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.WrapWithCode(err, errors.ErrConfig, "Invalid settings", "")
	}

	e := verrs[0]
	message, suggestion := describeFieldError(e)
	return errors.New(errors.ErrConfig, message, suggestion)
}

func describeFieldError(e validator.FieldError) (string, string) {
	field := e.Field()
	if strings.HasPrefix(field, "server_ids[") {
		return fmt.Sprintf("Server IDs must be positive integers (got %v)", e.Value()),
			"Use the numeric IDs shown in your dashboard, e.g. 1,2,7"
	}

	switch field {
	case "server_url":
		if e.Tag() == "required" {
			return "Server URL is required", "Enter your dashboard address, e.g. https://status.example.com"
		}
		return fmt.Sprintf("'%v' doesn't look like a URL", e.Value()),
			"Include the scheme, e.g. https://status.example.com"
	case "username":
		return "Username is required", "Use the account you log into the dashboard with"
	case "server_ids":
		if e.Tag() == "max" {
			return fmt.Sprintf("Too many servers: at most %d can be tracked", MaxServers),
				"Remove some IDs from the list"
		}
		return "At least one server ID is required", "Enter a comma-separated list, e.g. 1,2,3"
	}
	return fmt.Sprintf("Invalid value for %s", field), ""
}

// Validate checks the parts of a loaded Config nzmon cannot run without.
// Settings read from disk go through CheckLoaded instead; ValidateSettings
// only guards changes.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from a newer nzmon (version %d, this build knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade nzmon")
	}
	if cfg.Interval < 500*time.Millisecond {
		return errors.New(errors.ErrConfig,
			"Interval too short",
			"Minimum interval is 500ms to avoid hammering the dashboard")
	}
	if cfg.Timeout <= 0 {
		return errors.New(errors.ErrConfig,
			"Timeout must be positive",
			"Use a duration like 10s")
	}
	if cfg.RateLimit < 0 {
		return errors.New(errors.ErrConfig,
			"rate_limit cannot be negative",
			"Use 0 to disable the limit")
	}
	return nil
}

// CheckLoaded tolerates settings read from disk the way the widget plugin
// did: only the first MaxServers IDs are tracked, and anything else wrong is
// reported as a warning rather than refusing to start.
func CheckLoaded(s Settings) (Settings, []string) {
	var warnings []string
	if len(s.ServerIDs) > MaxServers {
		warnings = append(warnings, fmt.Sprintf("%d server IDs configured, tracking only the first %d (%s)",
			len(s.ServerIDs), MaxServers, FormatIDs(s.ServerIDs[:MaxServers])))
		s.ServerIDs = append([]int(nil), s.ServerIDs[:MaxServers]...)
	}
	if s.Configured() {
		if err := ValidateSettings(s); err != nil {
			warnings = append(warnings, errors.Summary(err))
		}
	}
	return s, warnings
}

// ParseIDs parses a comma-separated list of server IDs as typed by a user.
// Unlike the legacy parser it rejects bad tokens instead of skipping them.
func ParseIDs(input string) ([]int, error) {
	var ids []int
	for _, tok := range strings.Split(input, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		id, ok := parsePositive(tok)
		if !ok {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' is not a valid server ID", tok),
				"Server IDs are positive integers, e.g. 1,2,7")
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"At least one server ID is required",
			"Enter a comma-separated list, e.g. 1,2,3")
	}
	return ids, nil
}

// FormatIDs renders IDs as a comma-separated list.
func FormatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
