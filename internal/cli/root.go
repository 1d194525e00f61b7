package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"posadmin/internal/api"
	"posadmin/internal/config"
	"posadmin/internal/format"
	"posadmin/internal/logging"
	"posadmin/internal/metrics"
	"posadmin/internal/prefs"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type App struct {
	APIURL          string
	Token           string
	DB              string
	PrettyJSON      bool
	Format          string
	LogLevel        string
	MetricsTextfile string

	// client replaces the REST client when set (tests).
	client api.Client
	log    logrus.FieldLogger
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{})
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "posadmin",
		Short:        "Point-of-sale admin collections (TUI + CLI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI on the apps page
  posadmin

  # Open a specific list page (shortcut for: posadmin tui payment-terms)
  posadmin payment-terms

  # Scriptable commands
  posadmin list apps --group --search pay
  posadmin delete payment-terms 3 7 --yes
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app, "")
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		path := strings.TrimSpace(app.MetricsTextfile)
		if path == "" {
			return nil
		}
		if err := metrics.WriteTextfile(path); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", envOr("POSADMIN_API_URL", ""), "Admin API base url (overrides apiBaseUrl in config.json)")
	cmd.PersistentFlags().StringVar(&app.Token, "token", "", "API bearer token (default: POSADMIN_TOKEN, then config.json)")
	cmd.PersistentFlags().StringVar(&app.DB, "db", "", "Tenant database url (default: POSADMIN_DB, then currentDb in config.json)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output (draws borders for tables)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("POSADMIN_FORMAT", "json"), "Output format (json|table)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("POSADMIN_LOG_LEVEL", ""), "Log level (debug|info|warn|error; default: logLevel in config.json, then warn)")
	cmd.PersistentFlags().StringVar(&app.MetricsTextfile, "metrics-textfile", "", "Write request and bulk counters to this file on exit (node-exporter textfile format)")

	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newKindsCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newCreateCmd(app))
	cmd.AddCommand(newRenameCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newDuplicateCmd(app))
	cmd.AddCommand(newPrefsCmd(app))
	cmd.AddCommand(newDBCmd(app))

	return cmd
}

// session is what a command needs to reach the backend.
type session struct {
	cfg    config.Config
	db     string
	client api.Client
	log    logrus.FieldLogger
}

// connect resolves config, tenant and client. Precedence for every setting is
// flag > environment > config.json.
func connect(cmd *cobra.Command, app *App) (*session, error) {
	stored, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg := stored.WithEnv()
	if v := strings.TrimSpace(app.APIURL); v != "" {
		cfg.APIBaseURL = v
	}
	if v := strings.TrimSpace(app.Token); v != "" {
		cfg.Token = v
	}
	log := logger(cmd, app, cfg.LogLevel)

	s := &session{cfg: cfg, db: cfg.EffectiveDB(app.DB), log: log}
	if app.client != nil {
		s.client = app.client
		return s, nil
	}
	hc, err := api.NewHTTPClient(api.HTTPConfig{
		BaseURL:           cfg.APIBaseURL,
		DB:                s.db,
		Token:             cfg.Token,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            log,
	})
	if err != nil {
		return nil, err
	}
	s.client = hc
	return s, nil
}

// logger returns the command logger, writing to stderr unless the TUI
// already installed a file logger.
func logger(cmd *cobra.Command, app *App, fallback string) logrus.FieldLogger {
	if app.log != nil {
		return app.log
	}
	level := app.LogLevel
	if strings.TrimSpace(level) == "" {
		level = fallback
	}
	app.log = logging.New(level, cmd.ErrOrStderr())
	return app.log
}

func openPrefs(cmd *cobra.Command, log logrus.FieldLogger) (*prefs.Store, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	return prefs.Open(cmd.Context(), filepath.Join(dir, prefs.FileName), log)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}
