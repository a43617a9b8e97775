package cli

import (
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nzmon/nzmon/internal/dashboard"
	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/logger"
	"github.com/nzmon/nzmon/internal/ui"
	"github.com/spf13/cobra"
)

// watchLogPath receives log output while the dashboard owns the screen.
var watchLogPath = filepath.Join(os.TempDir(), "nzmon-debug.log")

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard for the tracked servers",
	Long: `Start an interactive terminal dashboard that polls the configured
servers and shows CPU, memory, disk and network throughput with history
graphs.

Log output is discarded while the dashboard runs. Set NZMON_DEBUG=1 to
write it to nzmon-debug.log in the temp directory instead.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Poll now
  s           Cycle sort order (config/CPU/memory/disk/network)
  up/k        Select previous server
  down/j      Select next server
  Enter       Expand selected server
  Esc         Collapse / go back
  ?           Show help

Examples:
  nzmon watch
  nzmon watch --interval 5s
  nzmon --legacy ~/nezha_config.txt watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, closeLog, err := watchLogger()
		if err != nil {
			return err
		}
		defer closeLog()

		opts := globalAppOptions()
		opts.Logger = l
		a, err := loadApp(opts)
		if err != nil {
			return err
		}
		return watchCommand(a, os.Stderr)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// watchLogger keeps log lines off the alt screen. With NZMON_DEBUG set they
// go to watchLogPath, otherwise they are dropped.
func watchLogger() (logger.Logger, func(), error) {
	if os.Getenv(logger.DebugEnv) == "" {
		return logger.Noop(), func() {}, nil
	}
	f, err := tea.LogToFile(watchLogPath, "")
	if err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot open debug log: "+watchLogPath,
			"Unset "+logger.DebugEnv+" or make the temp directory writable")
	}
	closeLog := func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}
	return logger.NewEnvLogger("[nzmon]"), closeLog, nil
}

// printWarnings shows load warnings before the dashboard takes the screen.
func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		printf(w, "%s\n", ui.WarningLine(msg))
	}
}

// watchCommand runs the dashboard until the user quits.
func watchCommand(a *app, stderr io.Writer) error {
	if err := a.requireConfigured(); err != nil {
		return err
	}
	printWarnings(stderr, a.warnings)

	model := dashboard.NewModel(a.svc, dashboard.Options{
		Interval: a.cfg.Interval,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "Dashboard exited with an error")
	}
	return nil
}
