package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nzmon/nzmon/internal/server"
	"github.com/spf13/cobra"
)

var serveListenFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the readings over an HTTP API",
	Long: `Poll the tracked servers on the configured interval and serve the
latest values over HTTP until interrupted.

Endpoints:
  GET  /healthz              Liveness
  GET  /api/items            Flat list of metric items
  GET  /api/snapshot         Latest snapshot
  POST /api/poll             Poll now and return the snapshot
  GET  /api/tooltip          Plain-text status summary
  GET  /api/settings         Current settings, password redacted
  PUT  /api/settings         Replace settings
  POST /api/settings/test    Test a login without saving

Examples:
  nzmon serve
  nzmon serve --listen 0.0.0.0:7878 --interval 5s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(globalAppOptions())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serveCommand(ctx, os.Stderr, a, serveListenFlag)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListenFlag, "listen", "", "listen address (default from config, 127.0.0.1:7878)")
	rootCmd.AddCommand(serveCmd)
}

// serveCommand runs the HTTP host until ctx is cancelled. Unlike watch it
// starts unconfigured, so settings can be supplied through PUT /api/settings.
func serveCommand(ctx context.Context, w io.Writer, a *app, listen string) error {
	if listen == "" {
		listen = a.cfg.Listen
	}

	srv := server.New(a.svc, server.Options{
		Interval: a.cfg.Interval,
		Logger:   a.log,
	})

	if !machineMode {
		printf(w, "Serving on http://%s (polling every %s)\n", listen, a.cfg.Interval)
	}
	return srv.Run(ctx, listen)
}
