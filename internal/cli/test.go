package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/nzmon/nzmon/internal/config"
	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/nezha"
	"github.com/nzmon/nzmon/internal/output"
	"github.com/nzmon/nzmon/internal/ui"
	"github.com/nzmon/nzmon/internal/util"
	"github.com/spf13/cobra"
)

// defaultProbeTimeout bounds a connection test from the command line.
const defaultProbeTimeout = 30 * time.Second

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Check that the dashboard accepts the configured login",
	Long: `Log in to the configured dashboard with a throwaway client and list
its servers. Nothing is saved and the running session is not touched.

Examples:
  nzmon test
  nzmon test --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(globalAppOptions())
		if err != nil {
			return err
		}
		return testCommand(cmd.Context(), os.Stdout, a)
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}

// probeReport is the --json payload of a successful connection test.
type probeReport struct {
	OK      bool   `json:"ok"`
	Outcome string `json:"outcome"`
	Servers int    `json:"servers"`
}

func testCommand(ctx context.Context, w io.Writer, a *app) error {
	if err := a.requireConfigured(); err != nil {
		return err
	}
	r := runProbe(ctx, w, a, a.svc.Settings(), defaultProbeTimeout)
	if !r.OK() {
		return r.Err
	}
	if machineMode {
		return output.WriteSuccess(w, probeReport{OK: true, Outcome: r.Outcome.String(), Servers: r.Servers})
	}
	return nil
}

// runProbe tests s on its own goroutine while a spinner runs. A probe that
// outlives timeout is reported as a transport failure.
func runProbe(ctx context.Context, w io.Writer, a *app, s config.Settings, timeout time.Duration) nezha.ProbeResult {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	spinnerOut := w
	if machineMode {
		spinnerOut = io.Discard
	}
	spinner := ui.NewSpinner("Testing connection to "+s.Normalized().ServerURL, spinnerOut)
	spinner.Start()

	var r nezha.ProbeResult
	select {
	case r = <-a.svc.TestConnection(ctx, s):
	case <-ctx.Done():
		r = nezha.ProbeResult{
			Outcome: nezha.ProbeFailed,
			Err: errors.WrapWithCode(ctx.Err(), errors.ErrTransport,
				"Connection test timed out",
				"Check the dashboard URL is reachable from this machine"),
		}
	}

	if r.OK() {
		spinner.Success("(" + util.CountNoun(r.Servers, "server", "servers") + " visible)")
	} else {
		spinner.Fail()
	}
	return r
}
