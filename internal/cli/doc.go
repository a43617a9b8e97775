// Package cli implements the nzmon command-line interface.
//
// Each cobra command is a thin shell over a *Command function that takes its
// writer and an app (config plus monitor.Service), so tests can drive the
// same code paths against a fake dashboard.
//
// # Command Structure
//
//	nzmon watch              - Full-screen dashboard
//	nzmon poll               - One poll cycle, printed as a table or JSON
//	nzmon serve              - HTTP API over the same service
//	nzmon settings           - Edit settings in a form
//	nzmon settings show      - Print the current settings
//	nzmon settings set       - Change settings from flags
//	nzmon test               - Check the dashboard login works
//	nzmon version            - Build information
//
// # Flag Handling
//
// Global flags (--config, --legacy, --interval, --json, --no-color) live on
// the root command. --json switches every command to the shared envelope
// from internal/output, including errors.
package cli
