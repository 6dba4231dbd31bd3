package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/luki/tempdash/internal/api"
	"github.com/luki/tempdash/internal/config"
	"github.com/luki/tempdash/internal/dashboard"
	"github.com/luki/tempdash/internal/logging"
	"github.com/luki/tempdash/internal/socket"
	"github.com/luki/tempdash/internal/store"
)

const logFileName = "tempdash.log"

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// app carries what every command resolves before running.
type app struct {
	v       *viper.Viper
	cfgFile string
	noColor bool

	cfg *config.Config
	log *zap.Logger
}

// NewRootCmd builds the tempdash command tree. Running it without a
// subcommand starts the interactive dashboard.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:   "tempdash",
		Short: "Temperature sensor dashboard",
		Long: `tempdash monitors temperature sensors served by a sensor backend.

Without a subcommand it opens the interactive dashboard: pick a device,
load its readings bucketed by minute, hour, day or month, and tune the
simulated sensor's signal. Push notifications for settings changes and
lost sensor connections are shown live.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			defer a.log.Sync()
			return a.runDashboard(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is "+config.DefaultPath()+")")
	flags.String("api-url", "", "backend origin, e.g. http://localhost:8000")
	flags.String("api-prefix", "", "REST path prefix")
	flags.String("socket-url", "", "push channel origin (defaults to --api-url)")
	flags.Duration("timeout", 0, "HTTP request timeout")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	flags.String("log-file", "", "log destination (the dashboard defaults to <data-dir>/"+logFileName+")")
	flags.String("data-dir", "", "reading cache directory (default is "+store.DataDir()+")")
	flags.Bool("record", true, "cache loaded readings in the data directory")
	flags.String("timezone", "", "IANA time zone for bucketing (default is local time)")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	for key, name := range map[string]string{
		config.KeyAPIBaseURL: "api-url",
		config.KeyAPIPrefix:  "api-prefix",
		config.KeySocketURL:  "socket-url",
		config.KeyTimeout:    "timeout",
		config.KeyLogLevel:   "log-level",
		config.KeyLogFormat:  "log-format",
		config.KeyLogFile:    "log-file",
		config.KeyDataDir:    "data-dir",
		config.KeyRecord:     "record",
		config.KeyTimezone:   "timezone",
	} {
		a.v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		newDevicesCmd(a),
		newReadingsCmd(a),
		newSettingsCmd(a),
		newWatchCmd(a),
		newViewCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup resolves the configuration and builds the logger. Interactive
// commands log to a file so the screen stays clean.
func (a *app) setup(interactive bool) error {
	if a.noColor {
		color.NoColor = true
	}
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	out := cfg.LogFile
	if out == "" && interactive {
		dir := cfg.DataDir
		if dir == "" {
			dir = store.DataDir()
		}
		out = "discard"
		if dir != "" {
			out = filepath.Join(dir, logFileName)
		}
	}
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: out})
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func (a *app) apiClient() (*api.Client, error) {
	return api.New(a.cfg.APIURL(),
		api.WithTimeout(a.cfg.Timeout),
		api.WithLogger(a.log.Named("api")))
}

func (a *app) socketClient() (*socket.Client, error) {
	return socket.New(a.cfg.SocketURL, socket.WithLogger(a.log.Named("socket")))
}

// recorder returns the reading cache, or nil when recording is off.
func (a *app) recorder() (*store.DiskStore, error) {
	if !a.cfg.Record {
		return nil, nil
	}
	return store.New(a.cfg.DataDir)
}

func (a *app) runDashboard(cmd *cobra.Command) error {
	ctx := cmd.Context()

	client, err := a.apiClient()
	if err != nil {
		return err
	}
	sock, err := a.socketClient()
	if err != nil {
		return err
	}
	ds, err := a.recorder()
	if err != nil {
		a.log.Warn("reading cache disabled", zap.Error(err))
		ds = nil
	}

	events := dashboard.Subscribe(sock)
	go sock.Run(ctx)

	a.log.Info("dashboard starting",
		zap.String("api", a.cfg.APIURL()),
		zap.String("socket", a.cfg.SocketURL),
		zap.Bool("record", ds != nil))

	p := tea.NewProgram(
		dashboard.New(dashboard.Options{
			Backend:  client,
			Events:   events,
			Store:    ds,
			Location: a.cfg.Location(),
			Log:      a.log.Named("dashboard"),
			Context:  ctx,
		}),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// Helper functions for consistent output

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", green("[OK]"), fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", yellow("[WARN]"), fmt.Sprintf(format, args...))
}
