package cli

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/nzmon/nzmon/internal/config"
	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/logger"
	"github.com/nzmon/nzmon/internal/monitor"
	"github.com/nzmon/nzmon/internal/nezha"
)

// minInterval keeps polls from hammering the dashboard.
const minInterval = 500 * time.Millisecond

// app is what every command works against: the resolved config and the
// service built from it.
type app struct {
	cfg  *config.Config
	path string // loaded config file, "" for defaults
	svc  *monitor.Service
	log  logger.Logger

	// warnings are problems found in the loaded settings that did not stop
	// startup.
	warnings []string
}

// appOptions carries the global flag values into loadApp.
type appOptions struct {
	ConfigPath string
	LegacyPath string
	Interval   string

	// Logger defaults to an env logger on stderr.
	Logger logger.Logger
}

func globalAppOptions() appOptions {
	return appOptions{
		ConfigPath: cfgFile,
		LegacyPath: legacyFile,
		Interval:   intervalFlag,
	}
}

// loadApp loads config, applies flag overrides, validates and builds the
// service. Loaded settings are tolerated rather than rejected: extra server
// IDs are dropped and other problems become warnings. Settings changes made through the service are saved back to
// wherever they were read from.
func loadApp(opts appOptions) (*app, error) {
	cfg, path, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.LegacyPath != "" {
		cfg.LegacyPath = config.ExpandPath(opts.LegacyPath)
		legacy, err := config.LoadLegacy(cfg.LegacyPath)
		switch {
		case err == nil:
			cfg.Settings = legacy
		case errors.Is(err, fs.ErrNotExist):
			// Created on the first settings change.
		default:
			return nil, err
		}
	}

	if opts.Interval != "" {
		interval, err := parseInterval(opts.Interval)
		if err != nil {
			return nil, err
		}
		cfg.Interval = interval
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewEnvLogger("[nzmon]")
	}

	var warnings []string
	cfg.Settings, warnings = config.CheckLoaded(cfg.Settings)
	for _, w := range warnings {
		log.Warn("%s", w)
	}

	svc := monitor.NewService(cfg.Settings, monitor.ServiceOptions{
		Store: config.StoreFor(cfg, path),
		Transport: nezha.TransportOptions{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
		},
		Logger: log,
	})

	return &app{cfg: cfg, path: path, svc: svc, log: log, warnings: warnings}, nil
}

// requireConfigured fails with a pointer to 'nzmon settings' when no
// dashboard has been set up yet.
func (a *app) requireConfigured() error {
	if a.svc.Settings().Configured() {
		return nil
	}
	return errors.New(errors.ErrConfig,
		"No dashboard configured",
		"Run 'nzmon settings' to enter the dashboard URL and login")
}

// parseInterval parses a poll interval flag.
func parseInterval(flag string) (time.Duration, error) {
	d, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid interval: %s", flag),
			"Use a valid duration like 2s, 5s, or 1m")
	}
	if d < minInterval {
		return 0, errors.New(errors.ErrConfig,
			"Interval too short",
			"Minimum interval is 500ms to avoid hammering the dashboard")
	}
	return d, nil
}
