package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pickup-service/config"
	"pickup-service/internal/app"
	"pickup-service/internal/clock"
	"pickup-service/internal/database"
	"pickup-service/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()

	if err := newRootCmd(log).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(log *zap.Logger) *cobra.Command {
	var a *app.App
	var closeDB func()

	root := &cobra.Command{
		Use:   "jobs",
		Short: "Background jobs of the pickup service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(log)
			db := database.ConnectDB(&cfg.DB.Config, log)
			closeDB = func() { database.CloseDB(db, log) }

			var err error
			a, err = app.Build(cfg, db, clock.NewSystem(), log)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.Close()
			}
			if closeDB != nil {
				closeDB()
			}
		},
		SilenceUsage: true,
	}

	runOnce := func(name string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			n, err := a.Scheduler.RunOnceNow(cmd.Context(), name)
			if err != nil {
				return err
			}
			log.Info("job finished", zap.String("task", name), zap.Int("count", n))
			return nil
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   app.TaskSweep,
			Short: "Expire overdue pending pickups once and exit",
			RunE:  runOnce(app.TaskSweep),
		},
		&cobra.Command{
			Use:   app.TaskRelease,
			Short: "Release matured withheld commission once and exit",
			RunE:  runOnce(app.TaskRelease),
		},
		&cobra.Command{
			Use:   "run",
			Short: "Run the scheduler until interrupted",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				a.Scheduler.Start()
				<-ctx.Done()

				stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				a.Scheduler.Stop(stopCtx)
				return nil
			},
		},
	)
	return root
}
