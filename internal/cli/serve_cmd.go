package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/JourneyJu/dsg-sub008/internal/db"
	"github.com/JourneyJu/dsg-sub008/internal/repository"
	"github.com/JourneyJu/dsg-sub008/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr, dbPath string
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local development backend for the assessment API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config.Server
			if addr != "" {
				cfg.Addr = addr
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}

			database, err := db.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			if seed {
				created, err := server.Seed(cmd.Context(), db.NewSQLiteUnitOfWork(database), repository.NewSQLiteTargetRepo(database))
				if err != nil {
					return err
				}
				if created {
					app.Log.WithField("target_id", server.DemoTargetID).Info("seeded demo target")
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(cfg.Addr, database, cfg.Token, app.Log).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	cmd.Flags().BoolVar(&seed, "seed", true, "Create the demo target when missing")
	return cmd
}

