package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/output"
	"github.com/nzmon/nzmon/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile      string
	legacyFile   string
	intervalFlag string
	noColor      bool
)

var rootCmd = &cobra.Command{
	Use:   "nzmon",
	Short: "Watch servers on a Nezha monitoring dashboard",
	Long: `nzmon polls a Nezha dashboard and shows CPU, memory, disk and network
throughput for up to six servers.

Run 'nzmon settings' once to point it at your dashboard, then use
'nzmon watch' for a live view or 'nzmon serve' to expose the readings
over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" || machineMode {
			ui.DisableColors()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/nzmon/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&legacyFile, "legacy", "", "read and write settings in a nezha_config.txt file")
	rootCmd.PersistentFlags().StringVar(&intervalFlag, "interval", "", "poll interval (e.g., 2s, 5s, 1m)")
	rootCmd.PersistentFlags().BoolVar(&machineMode, "json", false, "print JSON instead of human output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if machineMode {
			_ = output.WriteError(os.Stdout, err)
		} else {
			fmt.Fprint(os.Stderr, formatError(err))
		}
		os.Exit(1)
	}
}

// formatError renders err for a terminal. Structured errors already carry
// their own layout; cobra's usage errors get a pointer to --help.
func formatError(err error) string {
	var nzErr *errors.Error
	if errors.As(err, &nzErr) {
		return ui.ErrorStyle().Render(strings.TrimRight(nzErr.Error(), "\n")) + "\n"
	}
	msg := ui.ErrorStyle().Render(ui.SymbolFail+" "+err.Error()) + "\n"
	if isUsageError(err) {
		msg += "\n  " + ui.MutedStyle().Render("Run 'nzmon --help' to see the available commands and flags") + "\n"
	}
	return msg
}

// isUsageError reports whether err came from cobra's argument or flag parsing.
func isUsageError(err error) bool {
	s := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "invalid argument", "accepts ", "requires "} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// printf writes to w, ignoring errors like fmt.Printf does.
func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
