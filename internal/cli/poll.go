package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nzmon/nzmon/internal/monitor"
	"github.com/nzmon/nzmon/internal/ui"
	"github.com/spf13/cobra"
)

// defaultPollTimeout bounds a one-shot poll from the command line.
const defaultPollTimeout = 30 * time.Second

var (
	pollItemsFlag   bool
	pollTooltipFlag bool
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll the tracked servers once and print the readings",
	Long: `Run a single poll cycle and print the formatted values for every
tracked server plus the combined network throughput.

Counter-based dashboards need two samples before throughput is known, so
a single poll reports 0 B/s for them.

Examples:
  nzmon poll
  nzmon poll --json
  nzmon poll --items --json
  nzmon poll --tooltip`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(globalAppOptions())
		if err != nil {
			return err
		}
		return pollCommand(cmd.Context(), os.Stdout, a, pollOptions{
			Items:   pollItemsFlag,
			Tooltip: pollTooltipFlag,
		})
	},
}

func init() {
	pollCmd.Flags().BoolVar(&pollItemsFlag, "items", false, "print the flat metric item list instead of the table")
	pollCmd.Flags().BoolVar(&pollTooltipFlag, "tooltip", false, "print the status summary instead of the table")
	rootCmd.AddCommand(pollCmd)
}

type pollOptions struct {
	Items   bool
	Tooltip bool
	Timeout time.Duration
}

// pollResult is the --json payload of 'nzmon poll'.
type pollResult struct {
	State    string           `json:"state"`
	Snapshot monitor.Snapshot `json:"snapshot"`
}

func pollCommand(ctx context.Context, w io.Writer, a *app, opts pollOptions) error {
	if err := a.requireConfigured(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snap := a.svc.Poll(ctx)

	switch {
	case opts.Tooltip:
		tooltip := a.svc.Tooltip()
		return emit(w, map[string]string{"tooltip": tooltip}, func(w io.Writer) {
			printf(w, "%s\n", tooltip)
		})
	case opts.Items:
		items := a.svc.Items()
		return emit(w, items, func(w io.Writer) {
			for _, item := range items {
				printf(w, "%-10s %s\n", item.ID, item.Value)
			}
		})
	}

	result := pollResult{State: a.svc.ConnectionState(), Snapshot: snap}
	return emit(w, result, func(w io.Writer) {
		renderSnapshot(w, snap)
	})
}

// renderSnapshot prints a snapshot as a table followed by the total.
func renderSnapshot(w io.Writer, snap monitor.Snapshot) {
	columns := []ui.TableColumn{
		{Title: "", Width: 1},
		{Title: "ID", Width: 3},
		{Title: "Name", Width: 12},
		{Title: "CPU", Width: 8},
		{Title: "Memory", Width: 16},
		{Title: "Disk", Width: 16},
		{Title: "Network", Width: 16},
	}

	rows := make([][]string, 0, len(snap.Servers))
	var problems []monitor.ServerSnapshot
	for _, s := range snap.Servers {
		rows = append(rows, []string{
			statusSymbol(s.Status),
			fmt.Sprintf("S%d", s.ID),
			s.Name,
			s.CPU,
			s.Memory,
			s.Disk,
			s.Network,
		})
		if s.Error != "" {
			problems = append(problems, s)
		}
	}

	if table := ui.RenderTable(columns, rows); table != "" {
		printf(w, "%s\n", table)
	}
	printf(w, "%s %s\n", ui.MutedStyle().Render("Total network:"), snap.TotalNetwork)

	for _, s := range problems {
		printf(w, "%s\n", ui.StatusLine(false, fmt.Sprintf("S%d: %s", s.ID, s.Error)))
	}
}

// statusSymbol returns the plain one-cell marker for a server's status. The
// table measures cell widths, so these stay unstyled.
func statusSymbol(status monitor.ServerStatus) string {
	switch status {
	case monitor.StatusOK:
		return ui.SymbolComplete
	case monitor.StatusFailed:
		return ui.SymbolFail
	case monitor.StatusWaiting:
		return ui.SymbolProgress
	default:
		return ui.SymbolPending
	}
}
