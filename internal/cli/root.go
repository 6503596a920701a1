// Package cli implements the dsg command tree and the evaluation TUI.
package cli

import (
	"fmt"
	"io"

	"github.com/JourneyJu/dsg-sub008/internal/apiclient"
	"github.com/JourneyJu/dsg-sub008/internal/config"
	"github.com/JourneyJu/dsg-sub008/internal/logging"
	"github.com/JourneyJu/dsg-sub008/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// App holds what commands need. Fields left nil are built from the loaded
// configuration before a command runs.
type App struct {
	Config *config.Config
	Log    *logrus.Logger
	Eval   service.EvaluationService

	// IsInteractive reports whether stdin is a terminal.
	IsInteractive func() bool
}

type rootFlags struct {
	configPath string
	endpoint   string
	logLevel   string
	logFormat  string
}

// NewRootCmd creates the top-level "dsg" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "dsg",
		Short:         "Assessment target evaluation for the data governance platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default $DSG_CONFIG or ~/.dsg/config.yaml)")
	pf.StringVar(&flags.endpoint, "endpoint", "", "Platform API endpoint")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format (text or json)")

	root.AddCommand(
		newTargetsCmd(app),
		newEvalCmd(app),
		newPlanCmd(app),
		newServeCmd(app),
	)
	return root
}

// setup loads configuration and wires the API client. Flags override the
// file and environment.
func (app *App) setup(cmd *cobra.Command, flags rootFlags) error {
	if app.Config == nil {
		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return err
		}
		app.Config = cfg
	}
	cfg := app.Config
	if flags.endpoint != "" {
		cfg.API.Endpoint = flags.endpoint
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}

	if app.Log == nil {
		log, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		app.Log = log
	}

	if app.Eval == nil {
		client := apiclient.New(apiclient.Config{
			Endpoint:   cfg.API.Endpoint,
			Token:      cfg.API.Token,
			Timeout:    cfg.API.Timeout.Std(),
			MaxRetries: cfg.API.MaxRetries,
		}, app.Log, apiclient.NewLogObserver(app.Log))
		app.Eval = service.NewEvaluationService(client, service.EvaluationOptions{
			PageSize:          cfg.Evaluation.PageSize,
			SubmitConcurrency: cfg.Evaluation.SubmitConcurrency,
		}, service.NewLogUseCaseObserver(app.Log))
	}
	return nil
}

func (app *App) interactive() bool {
	if app.IsInteractive == nil {
		return false
	}
	return app.IsInteractive()
}

func printf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
