package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/nzmon/nzmon/internal/config"
	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/ui"
	"github.com/spf13/cobra"
)

// settingsFlags are the non-interactive inputs of 'nzmon settings set'.
type settingsFlags struct {
	URL      string
	Username string
	Password string
	IDs      string
	SkipTest bool
}

var setFlags settingsFlags

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Edit the dashboard URL, login and tracked servers",
	Long: `Open a form to enter the dashboard URL, username, password and the
IDs of up to six servers to track. The login is tested before anything
is saved.

Settings are written back to the file they were read from: the YAML
config, or the legacy text file given with --legacy.

Examples:
  nzmon settings
  nzmon settings show
  nzmon settings set --url https://nezha.example.com --user admin --ids 1,2,7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(globalAppOptions())
		if err != nil {
			return err
		}
		if machineMode || !ui.IsTerminal(os.Stdin) {
			return errors.New(errors.ErrConfig,
				"The settings form needs an interactive terminal",
				"Use 'nzmon settings set' with flags instead")
		}
		next, err := settingsForm(a.svc.Settings())
		if err != nil {
			return err
		}
		if next == nil {
			printf(os.Stdout, "%s\n", ui.MutedStyle().Render("Cancelled, nothing saved"))
			return nil
		}
		return saveSettings(cmd.Context(), os.Stdout, a, *next, false)
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings with the password hidden",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(globalAppOptions())
		if err != nil {
			return err
		}
		return settingsShowCommand(os.Stdout, a)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings from flags",
	Long: `Change settings without the form. Flags that are not given keep their
current value. The login is tested first unless --skip-test is set.

Examples:
  nzmon settings set --ids 1,2,3
  nzmon settings set --url https://nezha.example.com --user admin --password secret`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(globalAppOptions())
		if err != nil {
			return err
		}
		return settingsSetCommand(cmd.Context(), os.Stdout, a, setFlags)
	},
}

func init() {
	settingsSetCmd.Flags().StringVar(&setFlags.URL, "url", "", "dashboard URL")
	settingsSetCmd.Flags().StringVar(&setFlags.Username, "user", "", "dashboard username")
	settingsSetCmd.Flags().StringVar(&setFlags.Password, "password", "", "dashboard password")
	settingsSetCmd.Flags().StringVar(&setFlags.IDs, "ids", "", fmt.Sprintf("comma-separated server IDs (up to %d)", config.MaxServers))
	settingsSetCmd.Flags().BoolVar(&setFlags.SkipTest, "skip-test", false, "save without testing the login")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func settingsShowCommand(w io.Writer, a *app) error {
	s := a.svc.Settings().Redacted()
	return emit(w, s, func(w io.Writer) {
		label := ui.MutedStyle()
		printf(w, "%s %s\n", label.Render("URL:     "), orDash(s.ServerURL))
		printf(w, "%s %s\n", label.Render("User:    "), orDash(s.Username))
		printf(w, "%s %s\n", label.Render("Password:"), orDash(s.Password))
		printf(w, "%s %s\n", label.Render("Servers: "), config.FormatIDs(s.ServerIDs))
		printf(w, "%s %s\n", label.Render("Saved to:"), a.storeDescription())
	})
}

// settingsSetCommand merges the given flags over the current settings.
func settingsSetCommand(ctx context.Context, w io.Writer, a *app, f settingsFlags) error {
	next, err := mergeSettings(a.svc.Settings(), f)
	if err != nil {
		return err
	}
	return saveSettings(ctx, w, a, next, f.SkipTest)
}

// mergeSettings overlays the non-empty flags on current.
func mergeSettings(current config.Settings, f settingsFlags) (config.Settings, error) {
	next := current
	if f.URL != "" {
		next.ServerURL = f.URL
	}
	if f.Username != "" {
		next.Username = f.Username
	}
	if f.Password != "" {
		next.Password = f.Password
	}
	if f.IDs != "" {
		ids, err := config.ParseIDs(f.IDs)
		if err != nil {
			return config.Settings{}, err
		}
		next.ServerIDs = ids
	}
	return next.Normalized(), nil
}

// saveSettings validates, optionally probes, then applies next through the
// service, which persists it.
func saveSettings(ctx context.Context, w io.Writer, a *app, next config.Settings, skipTest bool) error {
	if err := config.ValidateSettings(next); err != nil {
		return err
	}

	if !skipTest {
		r := runProbe(ctx, w, a, next, defaultProbeTimeout)
		if !r.OK() {
			code := errors.CodeOf(r.Err)
			if code == "" {
				code = errors.ErrTransport
			}
			return errors.WrapWithCode(r.Err, code,
				"Settings not saved: the connection test failed",
				"Fix the values, or pass --skip-test to save them anyway")
		}
	}

	if err := a.svc.ApplySettings(next); err != nil {
		return err
	}

	saved := a.svc.Settings().Redacted()
	return emit(w, saved, func(w io.Writer) {
		printf(w, "%s\n", ui.StatusLine(true, "Settings saved to "+a.storeDescription()))
	})
}

// storeDescription names where settings are written.
func (a *app) storeDescription() string {
	switch s := config.StoreFor(a.cfg, a.path).(type) {
	case config.LegacyStore:
		return s.Path + " (legacy format)"
	case config.YAMLStore:
		return s.Path
	default:
		return "nowhere (no home directory)"
	}
}

// settingsForm asks for new settings. Returns nil when the user aborts.
func settingsForm(current config.Settings) (*config.Settings, error) {
	url := current.ServerURL
	username := current.Username
	password := ""
	ids := config.FormatIDs(current.ServerIDs)

	passwordHint := "Leave empty to keep the current password"
	if current.Password == "" {
		passwordHint = "The dashboard login password"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dashboard URL").
				Description("Base URL of the Nezha dashboard").
				Placeholder("https://nezha.example.com").
				Value(&url).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						return fmt.Errorf("dashboard URL is required")
					}
					if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
						return fmt.Errorf("URL must start with http:// or https://")
					}
					return nil
				}),
			huh.NewInput().
				Title("Username").
				Value(&username).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("username is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				Description(passwordHint).
				EchoMode(huh.EchoModePassword).
				Value(&password),
			huh.NewInput().
				Title("Server IDs").
				Description(fmt.Sprintf("Comma-separated, up to %d", config.MaxServers)).
				Placeholder("1,2,3").
				Value(&ids).
				Validate(func(s string) error {
					parsed, err := config.ParseIDs(s)
					if err != nil {
						return fmt.Errorf("%s", errors.Summary(err))
					}
					if len(parsed) > config.MaxServers {
						return fmt.Errorf("at most %d servers", config.MaxServers)
					}
					return nil
				}),
		),
	)

	if err := form.Run(); err != nil {
		if stderrors.Is(err, huh.ErrUserAborted) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use 'nzmon settings set'")
	}

	if password == "" {
		password = current.Password
	}
	parsed, err := config.ParseIDs(ids)
	if err != nil {
		return nil, err
	}
	next := config.Settings{
		ServerURL: url,
		Username:  username,
		Password:  password,
		ServerIDs: parsed,
	}.Normalized()
	return &next, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
